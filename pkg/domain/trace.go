package domain

import (
	"fmt"
)

// Status is the outcome reported by the backend for one execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Variable is a named binding snapshot.
type Variable struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Type  string `json:"type"`
	Scope string `json:"scope"`
}

// StackFrame is one function activation at a point in time.
type StackFrame struct {
	FunctionName string     `json:"function_name"`
	Line         int        `json:"line"`
	Locals       []Variable `json:"locals"`
	Globals      []Variable `json:"globals"`
}

// ExecutionStep is one discrete point in the program's execution.
type ExecutionStep struct {
	Line int `json:"line"`
	Step int `json:"step"`

	// Stack is ordered innermost first.
	Stack []StackFrame `json:"stack"`

	Heap map[string]any `json:"heap,omitempty"`

	// Output holds every line printed up to and including this step.
	Output []string `json:"output"`

	Error string `json:"error,omitempty"`
}

// Frame returns the innermost frame, or nil when the stack is empty.
func (s *ExecutionStep) Frame() *StackFrame {
	if s == nil || len(s.Stack) == 0 {
		return nil
	}
	return &s.Stack[0]
}

// ExecutionState is the full result of one execution request (a trace).
// It is immutable once received.
type ExecutionState struct {
	Steps       []ExecutionStep `json:"steps"`
	CurrentStep int             `json:"current_step"`
	TotalSteps  int             `json:"total_steps"`
	Language    Language        `json:"language"`
	Code        string          `json:"code"`
	Status      Status          `json:"status"`
	FinalOutput []string        `json:"final_output"`
	Output      []string        `json:"output,omitempty"`

	// ExecutionTime is the backend-reported wall time in seconds.
	ExecutionTime float64 `json:"execution_time"`

	// Visualization is an optional backend payload carried opaquely.
	Visualization map[string]any `json:"visualization,omitempty"`
}

// Len returns the number of steps.
func (t *ExecutionState) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Steps)
}

// Step returns the step at index i, or nil when i is out of range.
func (t *ExecutionState) Step(i int) *ExecutionStep {
	if t == nil || i < 0 || i >= len(t.Steps) {
		return nil
	}
	return &t.Steps[i]
}

// Failed reports whether the backend reported an execution error, either
// through the top-level status or through an error on the final step.
func (t *ExecutionState) Failed() bool {
	if t == nil {
		return false
	}
	if t.Status == StatusError {
		return true
	}
	if last := t.Step(len(t.Steps) - 1); last != nil && last.Error != "" {
		return true
	}
	return false
}

// Normalize makes TotalSteps agree with len(Steps) and rewinds CurrentStep.
func (t *ExecutionState) Normalize() {
	if t == nil {
		return
	}
	t.TotalSteps = len(t.Steps)
	t.CurrentStep = 0
	if len(t.FinalOutput) == 0 && len(t.Output) > 0 {
		t.FinalOutput = t.Output
	}
}

// Validate checks the structural invariants of a trace.
func (t *ExecutionState) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil trace", ErrInvalidTrace)
	}
	if t.TotalSteps != len(t.Steps) {
		return fmt.Errorf("%w: total_steps %d does not match %d steps", ErrInvalidTrace, t.TotalSteps, len(t.Steps))
	}
	if t.Language != "" && !t.Language.Valid() {
		return fmt.Errorf("%w: language %q", ErrUnsupportedLanguage, t.Language)
	}
	switch t.Status {
	case StatusRunning, StatusCompleted, StatusError, "":
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidTrace, t.Status)
	}
	return nil
}
