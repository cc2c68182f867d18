// Package render projects execution steps into display panels and draws them.
//
// Project is a pure function from one ExecutionStep to a View holding the four
// panels (locals, globals, call stack, output) plus any step error. Missing or
// malformed fields degrade to placeholders; projection never panics.
//
// Screen bundles a View with playback and host status. Terminal draws a Screen
// with lipgloss and Markdown writes it as a markdown document.
package render
