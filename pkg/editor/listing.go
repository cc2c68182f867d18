package editor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// ListingOptions controls how Listing draws the buffer.
type ListingOptions struct {
	// Color enables chroma syntax colouring.
	Color bool

	// Context limits the listing to this many lines around the highlighted
	// line, keeping it in view. Zero shows every line.
	Context int

	// Style is a chroma style name; defaults to "monokai".
	Style string
}

// Listing renders the text with line numbers and a marker on the highlighted line.
func (b *Buffer) Listing(opts ListingOptions) string {
	b.mu.RLock()
	text, lang, hl := b.text, b.language, b.highlight
	b.mu.RUnlock()

	if text == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	colored := lines
	if opts.Color {
		colored = colorize(text, string(lang), opts.Style, len(lines))
	}

	first, last := 1, len(lines)
	if opts.Context > 0 && hl > 0 {
		first = max(1, hl-opts.Context)
		last = min(len(lines), hl+opts.Context)
	}

	width := len(fmt.Sprint(len(lines)))
	var out strings.Builder
	for n := first; n <= last; n++ {
		marker := "  "
		if n == hl {
			marker = "▶ "
		}
		fmt.Fprintf(&out, "%s%*d │ %s\n", marker, width, n, colored[n-1])
	}
	return out.String()
}

// colorize highlights the whole text at once so multi-line tokens keep their
// colour, then splits it back into lines. It falls back to plain text.
func colorize(text, language, style string, want int) []string {
	if style == "" {
		style = "monokai"
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, text, language, "terminal256", style); err != nil {
		return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != want {
		return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}
	return lines
}
