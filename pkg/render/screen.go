package render

import (
	"fmt"

	"github.com/aretw0/stepview/pkg/domain"
)

// Screen is everything a front end needs to draw one frame.
type Screen struct {
	Phase    domain.Phase    `json:"phase"`
	Playback domain.Snapshot `json:"playback"`
	Language domain.Language `json:"language,omitempty"`

	// Step is nil when there is no step under the cursor.
	Step *View `json:"step,omitempty"`

	// TraceStatus and TraceError come from the backend.
	TraceStatus   domain.Status `json:"trace_status,omitempty"`
	TraceError    string        `json:"trace_error,omitempty"`
	ExecutionTime float64       `json:"execution_time,omitempty"`

	// Error is a host-side failure (transport, backend rejection).
	Error string `json:"error,omitempty"`

	HighlightLine int `json:"highlight_line,omitempty"`

	// Stale is set when the source was edited after the trace was produced.
	Stale bool `json:"stale,omitempty"`
}

// NewScreen assembles a Screen from a trace and the playback snapshot.
func NewScreen(phase domain.Phase, snap domain.Snapshot, trace *domain.ExecutionState) Screen {
	s := Screen{Phase: phase, Playback: snap}
	if trace == nil {
		return s
	}

	s.Language = trace.Language
	s.TraceStatus = trace.Status
	s.ExecutionTime = trace.ExecutionTime
	if step := trace.Step(snap.Cursor); step != nil {
		v := Project(step)
		s.Step = &v
		s.HighlightLine = step.Line
	}
	if trace.Failed() {
		s.TraceError = traceError(trace)
	}
	return s
}

func traceError(trace *domain.ExecutionState) string {
	for i := len(trace.Steps) - 1; i >= 0; i-- {
		if msg := trace.Steps[i].Error; msg != "" {
			return msg
		}
	}
	return "execution failed"
}

// Progress returns the "Step i of N" label, empty without steps.
func (s Screen) Progress() string {
	if s.Playback.Total == 0 {
		return ""
	}
	return fmt.Sprintf("Step %d of %d", s.Playback.Cursor+1, s.Playback.Total)
}

// Ratio returns the progress bar fill in [0, 1].
func (s Screen) Ratio() float64 {
	if s.Playback.Total == 0 {
		return 0
	}
	return float64(s.Playback.Cursor+1) / float64(s.Playback.Total)
}

// StatusLine describes the host state when there is nothing to draw.
func (s Screen) StatusLine() string {
	switch s.Phase {
	case domain.PhaseExecuting:
		return "Executing..."
	case domain.PhaseError:
		return "Execution request failed"
	case domain.PhaseIdle:
		return "Ready to visualize. Run the code to start."
	}
	if s.Playback.Total == 0 {
		return "The trace has no steps."
	}
	return ""
}
