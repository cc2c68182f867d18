package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language identifies the source language of a program.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageC          Language = "c"
)

// Languages lists every supported language in display order.
var Languages = []Language{LanguagePython, LanguageJavaScript, LanguageC}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case LanguagePython, LanguageJavaScript, LanguageC:
		return true
	}
	return false
}

func (l Language) String() string { return string(l) }

// ParseLanguage parses a language tag case-insensitively.
// Common aliases ("py", "js", "node") are accepted.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py", "python3":
		return LanguagePython, nil
	case "javascript", "js", "node":
		return LanguageJavaScript, nil
	case "c":
		return LanguageC, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

// LanguageFromPath infers the language from a file extension.
func LanguageFromPath(path string) (Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return LanguagePython, nil
	case ".js", ".mjs", ".cjs":
		return LanguageJavaScript, nil
	case ".c", ".h":
		return LanguageC, nil
	}
	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnsupportedLanguage, path)
}
