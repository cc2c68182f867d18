package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Recording is a trace persisted for offline replay or response caching.
type Recording struct {
	ID          string          `json:"id"`
	RecordedAt  time.Time       `json:"recorded_at"`
	Fingerprint string          `json:"fingerprint"`
	Trace       *ExecutionState `json:"trace"`
}

// Fingerprint identifies the program behind a request: same language and
// same source text yield the same fingerprint.
func Fingerprint(language Language, code string) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

// NewRecording wraps a trace for storage under id.
func NewRecording(id string, trace *ExecutionState) *Recording {
	rec := &Recording{
		ID:         id,
		RecordedAt: time.Now().UTC(),
		Trace:      trace,
	}
	if trace != nil {
		rec.Fingerprint = Fingerprint(trace.Language, trace.Code)
	}
	return rec
}
