package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/internal/config"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/ports"
)

// RunOptions contains all the configuration for the run and replay commands.
type RunOptions struct {
	Config *config.Config

	// Path is the program to load. Empty starts with the built-in sample.
	Path string
	// Language overrides the language inferred from Path.
	Language string
	// Input is fed to the program's standard input.
	Input string

	Gateway GatewayOptions
	Session SessionOptions
}

// Run loads a program and opens an interactive session on it.
func Run(ctx context.Context, opts RunOptions) error {
	cfg := opts.Config
	logger := createLogger(cfg.Debug)

	text, lang, err := readSource(opts.Path, opts.Language)
	if err != nil {
		return err
	}

	stores, err := OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	gw, err := NewGateway(cfg, stores.Traces, opts.Gateway, logger)
	if err != nil {
		return err
	}
	wb := NewWorkbench(cfg, gw, logger, stepview.WithSource(text, lang), stepview.WithInput(opts.Input))
	defer wb.Close()

	session := opts.Session
	if opts.Path == "" {
		session.WatchPath = ""
	}
	return RunSession(ctx, wb, session, logger)
}

// Replay opens a session on a recorded trace. ref is a recording ID or a
// JSON file holding a recording or a bare trace.
func Replay(ctx context.Context, opts RunOptions, ref string) error {
	cfg := opts.Config
	logger := createLogger(cfg.Debug)

	stores, err := OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	rec, err := LoadRecording(ctx, stores.Traces, ref)
	if err != nil {
		return err
	}

	gw, err := NewGateway(cfg, stores.Traces, opts.Gateway, logger)
	if err != nil {
		return err
	}
	wb := NewWorkbench(cfg, gw, logger)
	defer wb.Close()
	if err := wb.Load(rec.Trace); err != nil {
		return fmt.Errorf("failed to load trace %s: %w", ref, err)
	}

	session := opts.Session
	session.Execute = false
	session.WatchPath = ""
	return RunSession(ctx, wb, session, logger)
}

// LoadRecording resolves ref as a file first, then as a recording ID in store.
func LoadRecording(ctx context.Context, store ports.TraceStore, ref string) (*domain.Recording, error) {
	data, err := os.ReadFile(ref)
	switch {
	case err == nil:
		return decodeRecording(ref, data)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}

	rec, err := store.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if rec.Trace == nil {
		return nil, fmt.Errorf("recording %s: %w", ref, domain.ErrNoTrace)
	}
	return rec, nil
}

func decodeRecording(path string, data []byte) (*domain.Recording, error) {
	var rec domain.Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrInvalidTrace, err)
	}
	if rec.Trace != nil {
		if rec.ID == "" {
			rec.ID = path
		}
		return &rec, nil
	}

	var trace domain.ExecutionState
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrInvalidTrace, err)
	}
	if len(trace.Steps) == 0 && trace.Code == "" {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoTrace)
	}
	return domain.NewRecording(path, &trace), nil
}

func readSource(path, language string) (string, domain.Language, error) {
	if path == "" {
		lang := domain.LanguagePython
		if language != "" {
			parsed, err := domain.ParseLanguage(language)
			if err != nil {
				return "", "", err
			}
			lang = parsed
		}
		if lang != domain.LanguagePython {
			return "", lang, nil
		}
		return stepview.DefaultSource, lang, nil
	}

	var (
		lang domain.Language
		err  error
	)
	if language != "" {
		lang, err = domain.ParseLanguage(language)
	} else {
		lang, err = domain.LanguageFromPath(path)
	}
	if err != nil {
		return "", "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), lang, nil
}
