package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/stepview/pkg/editor"
	"github.com/aretw0/stepview/pkg/render"
)

// Event types emitted by JSONHandler.
const (
	EventView   = "view"
	EventSystem = "system"
)

// Event is one line of JSONHandler output.
type Event struct {
	Type    string         `json:"type"`
	Screen  *render.Screen `json:"screen,omitempty"`
	Message string         `json:"message,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	pump    *linePump
	mu      sync.Mutex
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONHandler{
		pump:    newLinePump(r),
		Encoder: enc,
	}
}

// Show emits the screen as a single JSON line.
func (h *JSONHandler) Show(ctx context.Context, screen render.Screen, _ *editor.Buffer) error {
	return h.emit(Event{Type: EventView, Screen: &screen})
}

// Close stops the background reader once its pending read returns.
func (h *JSONHandler) Close() error {
	h.pump.stop()
	return nil
}

// Input reads a line that is either a JSON string ("next") or a raw command (next).
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.pump.next(ctx)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return SanitizeInput(val)
	}
	return text, nil
}

// SystemOutput emits a meta-message as a JSON line.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(Event{Type: EventSystem, Message: msg})
}

func (h *JSONHandler) emit(e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(e)
}
