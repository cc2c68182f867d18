package domain

import "errors"

// ErrNoTrace is returned when an operation requires a loaded trace.
var ErrNoTrace = errors.New("no trace loaded")

// ErrUnsupportedLanguage is returned when a language tag is not one of python, javascript or c.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrEmptySource is returned when an execution is requested for blank source text.
var ErrEmptySource = errors.New("empty source")

// ErrTraceNotFound is returned when a recorded trace cannot be found in the store.
var ErrTraceNotFound = errors.New("trace not found")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidTrace is returned when a trace fails structural validation.
var ErrInvalidTrace = errors.New("invalid trace")
