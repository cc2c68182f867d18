package domain

// PlaybackState is the mode of the playback controller.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"    // No trace loaded
	PlaybackPaused  PlaybackState = "paused"  // Cursor is fixed
	PlaybackPlaying PlaybackState = "playing" // Cursor advances on every tick
)

// Snapshot is a read-only copy of the playback controller state.
type Snapshot struct {
	State  PlaybackState `json:"state"`
	Cursor int           `json:"cursor"`
	Total  int           `json:"total"`
}

// Playing reports whether autoplay is active.
func (s Snapshot) Playing() bool { return s.State == PlaybackPlaying }

// AtEnd reports whether the cursor is on the last step.
func (s Snapshot) AtEnd() bool { return s.Total > 0 && s.Cursor == s.Total-1 }

// Phase is the host-level status of a workbench. It adds an explicit error
// phase on top of the playback states.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseExecuting Phase = "executing"
	PhaseReady     Phase = "ready"
	PhaseError     Phase = "error"
)
