package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("39")  // blue
	colorOK     = lipgloss.Color("42")  // green
	colorError  = lipgloss.Color("196") // red
	colorMuted  = lipgloss.Color("245") // gray
)

// Terminal draws a Screen as boxed panels for a terminal.
type Terminal struct {
	width    int
	barWidth int

	header      lipgloss.Style
	panel       lipgloss.Style
	title       lipgloss.Style
	muted       lipgloss.Style
	errorBanner lipgloss.Style
	barFill     lipgloss.Style
	barEmpty    lipgloss.Style
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithWidth sets the total width in cells.
func WithWidth(w int) TerminalOption {
	return func(t *Terminal) {
		if w > 20 {
			t.width = w
		}
	}
}

// WithRenderer binds the styles to a lipgloss renderer, which decides the
// colour profile (for example a renderer over a non-terminal writer draws
// without colours).
func WithRenderer(r *lipgloss.Renderer) TerminalOption {
	return func(t *Terminal) {
		if r != nil {
			t.applyStyles(r)
		}
	}
}

// NewTerminal creates a Terminal renderer using the default lipgloss renderer.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{width: 80, barWidth: 30}
	t.applyStyles(lipgloss.DefaultRenderer())
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) applyStyles(r *lipgloss.Renderer) {
	t.header = r.NewStyle().Bold(true).Foreground(colorAccent)
	t.panel = r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
	t.title = r.NewStyle().Bold(true)
	t.muted = r.NewStyle().Foreground(colorMuted).Italic(true)
	t.errorBanner = r.NewStyle().Bold(true).Foreground(colorError).Border(lipgloss.ThickBorder()).BorderForeground(colorError).Padding(0, 1)
	t.barFill = r.NewStyle().Foreground(colorOK)
	t.barEmpty = r.NewStyle().Foreground(colorMuted)
}

// Render draws the whole screen.
func (t *Terminal) Render(s Screen) string {
	var blocks []string

	if s.Error != "" {
		blocks = append(blocks, t.errorBanner.Width(t.width-2).Render("Error: "+s.Error))
	}
	if status := s.StatusLine(); status != "" && s.Step == nil {
		blocks = append(blocks, t.muted.Render(status))
	}
	if s.Playback.Total > 0 {
		blocks = append(blocks, t.progress(s))
	}
	if s.TraceError != "" {
		blocks = append(blocks, t.errorBanner.Width(t.width-2).Render("Program error: "+s.TraceError))
	}
	if s.Step != nil {
		blocks = append(blocks, t.panels(*s.Step))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...) + "\n"
}

func (t *Terminal) progress(s Screen) string {
	filled := int(math.Round(s.Ratio() * float64(t.barWidth)))
	bar := t.barFill.Render(strings.Repeat("█", filled)) + t.barEmpty.Render(strings.Repeat("░", t.barWidth-filled))

	label := s.Progress()
	if s.Playback.Playing() {
		label += "  ▶ playing"
	}
	if s.Step != nil && s.Step.Line > 0 {
		label += "  ·  line " + strconv.Itoa(s.Step.Line)
	}
	if s.Stale {
		label += "  ·  source edited since run"
	}
	return t.header.Render(label) + "\n" + bar
}

func (t *Terminal) panels(v View) string {
	half := t.width/2 - 1
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		t.box("Local variables", v.LocalsPanel(), len(v.Locals) == 0, half),
		t.box("Global variables", v.GlobalsPanel(), len(v.Globals) == 0, half),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		t.box("Call stack", v.StackPanel(), len(v.Stack) == 0, half),
		t.box("Output", v.OutputPanel(), len(v.Output) == 0, half),
	)
	out := lipgloss.JoinVertical(lipgloss.Left, top, bottom)
	if v.Error != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, t.errorBanner.Width(t.width-2).Render("Step error: "+v.Error))
	}
	return out
}

func (t *Terminal) box(title string, lines []string, placeholder bool, width int) string {
	body := strings.Join(lines, "\n")
	if placeholder {
		body = t.muted.Render(body)
	}
	return t.panel.Width(width).Render(t.title.Render(title) + "\n" + body)
}
