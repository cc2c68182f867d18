package render

import (
	"fmt"
	"strings"
)

// Markdown writes the screen as a markdown document, suitable for glamour or
// for agents that read plain text.
func Markdown(s Screen) string {
	var b strings.Builder

	if s.Error != "" {
		fmt.Fprintf(&b, "> **Error:** %s\n\n", s.Error)
	}
	if progress := s.Progress(); progress != "" {
		fmt.Fprintf(&b, "## %s\n\n", progress)
		fmt.Fprintf(&b, "_%s_", s.Playback.State)
		if s.Step != nil && s.Step.Line > 0 {
			fmt.Fprintf(&b, " · line %d", s.Step.Line)
		}
		b.WriteString("\n\n")
	} else if status := s.StatusLine(); status != "" {
		fmt.Fprintf(&b, "_%s_\n\n", status)
	}
	if s.TraceError != "" {
		fmt.Fprintf(&b, "> **Program error:** %s\n\n", s.TraceError)
	}
	if s.Step == nil {
		return b.String()
	}

	v := *s.Step
	section(&b, "Local variables", v.LocalsPanel(), len(v.Locals) == 0)
	section(&b, "Global variables", v.GlobalsPanel(), len(v.Globals) == 0)
	section(&b, "Call stack", v.StackPanel(), len(v.Stack) == 0)

	b.WriteString("### Output\n\n")
	if len(v.Output) == 0 {
		fmt.Fprintf(&b, "_%s_\n\n", NoOutput)
	} else {
		b.WriteString("```\n")
		for _, line := range v.Output {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}

	if v.Error != "" {
		fmt.Fprintf(&b, "> **Step error:** %s\n", v.Error)
	}
	return b.String()
}

func section(b *strings.Builder, title string, lines []string, placeholder bool) {
	fmt.Fprintf(b, "### %s\n\n", title)
	if placeholder {
		fmt.Fprintf(b, "_%s_\n\n", lines[0])
		return
	}
	for _, line := range lines {
		fmt.Fprintf(b, "- `%s`\n", line)
	}
	b.WriteString("\n")
}
