package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/internal/presentation/tui"
	"github.com/aretw0/stepview/pkg/runner"
)

// SessionOptions configures one interactive session.
type SessionOptions struct {
	JSON    bool
	Execute bool
	Banner  bool

	// WatchPath reloads the source from this file and re-executes on save.
	WatchPath string

	Stdin  io.Reader
	Stdout io.Writer

	// Interrupts replaces OS signal handling when set.
	Interrupts <-chan struct{}
}

// RunSession drives wb from the terminal (or NDJSON) until the user quits.
func RunSession(ctx context.Context, wb *stepview.Workbench, opts SessionOptions, logger *slog.Logger) error {
	stdin, stdout := opts.Stdin, opts.Stdout
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	interrupts := opts.Interrupts
	if interrupts == nil {
		sm := runner.NewSignalManager()
		defer sm.Stop()
		interrupts = sm.Interrupts()
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(stdin, stdout)
	} else {
		if opts.Banner {
			tui.PrintBanner(stdout)
		}
		handler = runner.NewTextHandler(stdin, stdout)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.WatchPath != "" {
		startWatch(ctx, wb, opts.WatchPath, logger)
		if !opts.JSON {
			printSystemMessage(stdout, "Watching '%s' for changes.", opts.WatchPath)
		}
	}

	r := runner.NewRunner(
		runner.WithLogger(logger),
		runner.WithInputHandler(handler),
		runner.WithExecuteOnStart(opts.Execute),
		runner.WithInterruptSource(interrupts),
	)
	err := r.Run(ctx, wb)
	logger.Info("Session finished", "phase", wb.Phase(), "err", err)
	return handleExecutionError(err)
}
