package domain

import "time"

// ExecutionRequest is the body of POST /api/execute.
type ExecutionRequest struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`

	// InputData is fed to the program's standard input.
	InputData string `json:"input_data,omitempty"`

	// Timeout is in seconds (1..60); zero lets the backend choose.
	Timeout int `json:"timeout,omitempty"`
}

// Diagnostic is one syntax problem reported by /api/validate.
type Diagnostic struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationResult is the response of /api/validate.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// LanguageInfo describes one language supported by the backend.
type LanguageInfo struct {
	ID          Language `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
}

// CodeExample is a sample program offered by the backend.
type CodeExample struct {
	Title       string `json:"title"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Health is the response of /api/health.
type Health struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Executors []Language `json:"executors"`
}
