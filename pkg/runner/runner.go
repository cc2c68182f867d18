package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/pkg/render"
)

// Runner handles the interaction loop of a Workbench using the provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on Stdin/Stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// ExecuteOnStart submits the source once before reading commands.
	ExecuteOnStart bool

	// InterruptSource delivers user interrupts (Ctrl+C).
	InterruptSource <-chan struct{}
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Run presents wb and applies commands until the user quits, the input ends
// or ctx is cancelled. Executions still in flight when Run returns are
// cancelled. The workbench is left open.
func (r *Runner) Run(ctx context.Context, wb *stepview.Workbench) error {
	if wb == nil {
		return errors.New("runner: nil workbench")
	}
	handler := r.resolveHandler()
	if c, ok := handler.(io.Closer); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	var execs sync.WaitGroup
	defer func() {
		cancel()
		execs.Wait()
	}()

	changed := make(chan struct{}, 1)
	unsubscribe := wb.Subscribe(func(render.Screen) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	show := func() error {
		select {
		case <-changed:
		default:
		}
		if err := handler.Show(ctx, wb.Screen(), wb.Editor()); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		return nil
	}

	if err := show(); err != nil {
		return err
	}
	if r.ExecuteOnStart {
		r.execute(ctx, wb, &execs)
	}

	inputs := r.readInputs(ctx, handler)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-r.InterruptSource:
			if wb.Cancel() {
				r.Logger.Debug("runner: interrupt cancelled execution")
				if err := handler.SystemOutput(ctx, "execution cancelled"); err != nil {
					return err
				}
				continue
			}
			r.Logger.Debug("runner: interrupted")
			return nil

		case <-changed:
			if err := handler.Show(ctx, wb.Screen(), wb.Editor()); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case in, ok := <-inputs:
			if !ok {
				// Input exhausted: let running executions land before the last frame.
				execs.Wait()
				return show()
			}
			if in.err != nil {
				if IsInputError(in.err) {
					if err := handler.SystemOutput(ctx, fmt.Sprintf("Error: %v. Please try again.", in.err)); err != nil {
						return err
					}
					continue
				}
				return fmt.Errorf("input error: %w", in.err)
			}

			quit, redraw, err := r.dispatch(ctx, wb, handler, in.text, &execs)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			if redraw {
				if err := show(); err != nil {
					return err
				}
			}
		}
	}
}

// dispatch applies one input line.
func (r *Runner) dispatch(
	ctx context.Context,
	wb *stepview.Workbench,
	handler IOHandler,
	line string,
	execs *sync.WaitGroup,
) (quit, redraw bool, err error) {
	cmd, perr := ParseCommand(line)
	if perr != nil {
		return false, false, handler.SystemOutput(ctx, perr.Error())
	}

	r.Logger.Debug("runner: command", "kind", cmd.Kind, "step", cmd.Step)
	switch cmd.Kind {
	case CmdToggle:
		wb.Play()
	case CmdPlay:
		wb.Resume()
	case CmdPause:
		wb.Pause()
	case CmdNext:
		wb.Next()
	case CmdPrevious:
		wb.Previous()
	case CmdReset:
		wb.Reset()
	case CmdGoto:
		wb.Seek(cmd.Step - 1)
	case CmdExecute:
		r.execute(ctx, wb, execs)
	case CmdHelp:
		return false, false, handler.SystemOutput(ctx, Help)
	case CmdQuit:
		return true, false, nil
	}
	return false, true, nil
}

// execute submits the source in the background. Failures are shown through
// the workbench's error phase.
func (r *Runner) execute(ctx context.Context, wb *stepview.Workbench, execs *sync.WaitGroup) {
	execs.Add(1)
	go func() {
		defer execs.Done()
		_, err := wb.Execute(ctx)
		switch {
		case err == nil:
		case errors.Is(err, stepview.ErrSuperseded), errors.Is(err, context.Canceled):
			r.Logger.Debug("runner: execution abandoned", "err", err)
		default:
			r.Logger.Debug("runner: execution failed", "err", err)
		}
	}()
}

// readInputs forwards handler input until EOF, a fatal error or cancellation.
func (r *Runner) readInputs(ctx context.Context, handler IOHandler) <-chan inputResult {
	ch := make(chan inputResult)
	go func() {
		defer close(ch)
		for {
			text, err := handler.Input(ctx)
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			select {
			case ch <- inputResult{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !IsInputError(err) {
				return
			}
		}
	}()
	return ch
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r.Handler
}
