package tui

import (
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal text.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer wrapping at width columns.
// The style follows the terminal background.
func NewRenderer(width int) (Renderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// Plain returns markdown unchanged, for pipes and files.
func Plain(markdown string) (string, error) {
	return markdown, nil
}
