// Package editor holds the authoritative source text and language selection.
//
// Edits flow out (editor to host) as full-text notifications; highlighting
// flows in (host to editor) and never triggers an edit notification.
package editor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/stepview/pkg/domain"
)

// Listener receives the full text after every edit.
type Listener func(text string)

// Buffer is the source editor model. Safe for concurrent use.
type Buffer struct {
	mu        sync.RWMutex
	text      string
	language  domain.Language
	highlight int

	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithLogger sets the logger used for file reloads.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a buffer holding text tagged with language.
func New(text string, language domain.Language, opts ...Option) *Buffer {
	b := &Buffer{
		text:      text,
		language:  language,
		listeners: make(map[int]Listener),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Text returns the current source text.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Language returns the language tag.
func (b *Buffer) Language() domain.Language {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.language
}

// SetText replaces the text and notifies listeners with the full new text.
// Setting identical text is not an edit.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	if text == b.text {
		b.mu.Unlock()
		return
	}
	b.text = text
	if b.highlight > lineCount(text) {
		b.highlight = 0
	}
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(text)
	}
}

// SetLanguage re-tags the existing text. The text itself is left untouched.
func (b *Buffer) SetLanguage(language domain.Language) error {
	if !language.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, language)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.language = language
	return nil
}

// OnChange registers a listener and returns a function that removes it.
func (b *Buffer) OnChange(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Highlight marks one 1-based line as current. Zero, negative or
// out-of-range lines clear the highlight.
func (b *Buffer) Highlight(line int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if line < 1 || line > lineCount(b.text) {
		line = 0
	}
	b.highlight = line
}

// Highlighted returns the highlighted line, or 0.
func (b *Buffer) Highlighted() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.highlight
}

// LoadFile replaces the text with the file content. When the buffer has no
// language yet it is inferred from the file extension.
func (b *Buffer) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	b.mu.Lock()
	if !b.language.Valid() {
		if lang, err := domain.LanguageFromPath(path); err == nil {
			b.language = lang
		}
	}
	b.mu.Unlock()

	b.SetText(string(data))
	return nil
}

func (b *Buffer) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(b.listeners))
	for i := 0; i < b.nextID; i++ {
		if fn, ok := b.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(text, "\n"), "\n") + 1
}
