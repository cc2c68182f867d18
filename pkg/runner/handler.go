package runner

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/stepview/pkg/editor"
	"github.com/aretw0/stepview/pkg/render"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
// The Runner calls Show and SystemOutput from a single goroutine.
type IOHandler interface {
	// Show presents the current screen. src is the editor the screen refers to.
	Show(ctx context.Context, screen render.Screen, src *editor.Buffer) error

	// Input reads one command line. It returns io.EOF when the input is exhausted.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (help, bad command, status).
	SystemOutput(ctx context.Context, msg string) error
}

type inputResult struct {
	text string
	err  error
}

// linePump reads lines in the background so Input can honour context cancellation.
// After stop the goroutine exits once its pending read returns.
type linePump struct {
	reader   *bufio.Reader
	ch       chan inputResult
	done     chan struct{}
	once     sync.Once
	stopOnce sync.Once
}

func newLinePump(r io.Reader) *linePump {
	return &linePump{reader: bufio.NewReader(r), done: make(chan struct{})}
}

func (p *linePump) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *linePump) send(res inputResult) bool {
	select {
	case p.ch <- res:
		return true
	case <-p.done:
		return false
	}
}

func (p *linePump) start() {
	p.once.Do(func() {
		p.ch = make(chan inputResult)
		go p.run()
	})
}

func (p *linePump) run() {
	defer close(p.ch)
	for {
		text, err := p.reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" && !p.send(inputResult{text: text}) {
			return
		}
		if err != nil {
			if err != io.EOF {
				p.send(inputResult{err: err})
			}
			return
		}
	}
}

// next returns the next sanitized line.
func (p *linePump) next(ctx context.Context) (string, error) {
	p.start()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-p.ch:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return SanitizeInput(strings.TrimRight(res.text, "\r\n"))
	}
}
