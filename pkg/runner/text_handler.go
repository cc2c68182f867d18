package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/stepview/pkg/editor"
	"github.com/aretw0/stepview/pkg/render"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Prompt is written after every frame.
const Prompt = "> "

const hints = "n next · p prev · ⏎ play/pause · g N goto · r reset · e run · h help · q quit"

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	pump   *linePump
	Writer io.Writer

	// Terminal draws the panels.
	Terminal *render.Terminal

	// Clear wipes the terminal before each frame.
	Clear bool

	// Color enables syntax colouring of the source listing.
	Color bool

	// Context limits the source listing to this many lines around the
	// current line. Zero lists everything.
	Context int
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerTerminal configures the panel renderer.
func WithTextHandlerTerminal(t *render.Terminal) TextHandlerOption {
	return func(h *TextHandler) {
		h.Terminal = t
	}
}

// WithClearScreen overrides terminal detection for screen clearing.
func WithClearScreen(enabled bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Clear = enabled
	}
}

// WithColor overrides terminal detection for source colouring.
func WithColor(enabled bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Color = enabled
	}
}

// WithListingContext sets how many lines around the current line are listed.
func WithListingContext(lines int) TextHandlerOption {
	return func(h *TextHandler) {
		h.Context = lines
	}
}

// NewTextHandler creates a handler for standard text IO. When w is a
// terminal the screen is cleared between frames and the listing is coloured.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}

	tty, width := terminalInfo(w)
	h := &TextHandler{
		pump:   newLinePump(r),
		Writer: w,
		Clear:  tty,
		Color:  tty,
	}
	termOpts := []render.TerminalOption{render.WithRenderer(lipgloss.NewRenderer(w))}
	if width > 0 {
		termOpts = append(termOpts, render.WithWidth(width))
	}
	h.Terminal = render.NewTerminal(termOpts...)

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Show draws the source listing, the panels and the prompt.
func (h *TextHandler) Show(ctx context.Context, screen render.Screen, src *editor.Buffer) error {
	var b strings.Builder
	if src != nil {
		if listing := src.Listing(editor.ListingOptions{Color: h.Color, Context: h.Context}); listing != "" {
			b.WriteString(listing)
			b.WriteString("\n")
		}
	}
	b.WriteString(h.Terminal.Render(screen))
	b.WriteString(hints)
	b.WriteString("\n")
	b.WriteString(Prompt)

	if h.Clear {
		termenv.NewOutput(h.Writer).ClearScreen()
	}
	_, err := io.WriteString(h.Writer, b.String())
	return err
}

// Input reads one command line.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	return h.pump.next(ctx)
}

// Close stops the background reader once its pending read returns.
func (h *TextHandler) Close() error {
	h.pump.stop()
	return nil
}

// SystemOutput prints a meta-message followed by a fresh prompt.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n%s", msg, Prompt)
	return err
}

// terminalInfo reports whether w is a terminal and its width.
func terminalInfo(w io.Writer) (bool, int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return true, 0
	}
	return true, width
}
