package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/stepview/pkg/domain"
)

// Placeholders shown for empty panels.
const (
	NoLocals   = "No local variables"
	NoGlobals  = "No global variables"
	EmptyStack = "Empty stack"
	NoOutput   = "No output"
)

// Binding is one variable as displayed: its value is JSON text.
type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

func (b Binding) String() string {
	return b.Name + " = " + b.Value
}

// Frame is one call-stack entry as displayed.
type Frame struct {
	Function string `json:"function"`
	Line     int    `json:"line"`
}

func (f Frame) String() string {
	return fmt.Sprintf("%s  Line %d", f.Function, f.Line)
}

// View is the projection of one step.
type View struct {
	Step    int       `json:"step"`
	Line    int       `json:"line"`
	Locals  []Binding `json:"locals"`
	Globals []Binding `json:"globals"`
	Stack   []Frame   `json:"stack"`
	Output  []string  `json:"output"`
	Error   string    `json:"error,omitempty"`
}

// Project maps a step onto its panels. Locals and globals come from the
// innermost frame; the call stack lists every frame innermost first.
func Project(step *domain.ExecutionStep) View {
	v := View{
		Locals:  []Binding{},
		Globals: []Binding{},
		Stack:   []Frame{},
		Output:  []string{},
	}
	if step == nil {
		return v
	}

	v.Step = step.Step
	v.Line = step.Line
	v.Error = step.Error

	if frame := step.Frame(); frame != nil {
		v.Locals = bindings(frame.Locals)
		v.Globals = bindings(frame.Globals)
	}
	for _, f := range step.Stack {
		name := f.FunctionName
		if name == "" {
			name = "<anonymous>"
		}
		v.Stack = append(v.Stack, Frame{Function: name, Line: f.Line})
	}
	v.Output = append(v.Output, step.Output...)
	return v
}

func bindings(vars []domain.Variable) []Binding {
	out := make([]Binding, 0, len(vars))
	for _, variable := range vars {
		out = append(out, Binding{
			Name:  variable.Name,
			Value: Stringify(variable.Value),
			Type:  variable.Type,
		})
	}
	return out
}

// Stringify renders a value as compact JSON without HTML escaping.
// Values that cannot be encoded fall back to their Go formatting.
func Stringify(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%v", v)
		}
	}()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// LocalsPanel returns the display lines of the locals panel.
func (v View) LocalsPanel() []string {
	return lines(v.Locals, NoLocals)
}

// GlobalsPanel returns the display lines of the globals panel.
func (v View) GlobalsPanel() []string {
	return lines(v.Globals, NoGlobals)
}

// StackPanel returns the display lines of the call-stack panel.
func (v View) StackPanel() []string {
	return lines(v.Stack, EmptyStack)
}

// OutputPanel returns the display lines of the output panel.
func (v View) OutputPanel() []string {
	if len(v.Output) == 0 {
		return []string{NoOutput}
	}
	return append([]string(nil), v.Output...)
}

func lines[T fmt.Stringer](items []T, placeholder string) []string {
	if len(items) == 0 {
		return []string{placeholder}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
