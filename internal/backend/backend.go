// Package backend serves the execution backend contract from recorded traces.
//
// It does not run programs. A request is answered with the recording whose
// fingerprint matches its language and code, which is enough for demos,
// offline replays and end-to-end tests of the client.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxRequestBytes bounds the body of execute and validate requests.
const MaxRequestBytes = 1 << 20

// Server answers backend requests from a TraceStore.
type Server struct {
	store  ports.TraceStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server over store.
func New(store ports.TraceStore, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the backend router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/", s.root)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/languages", s.languages)
		r.Get("/examples/{language}", s.examples)
		r.Post("/execute", s.execute)
		r.Post("/validate", s.validate)
	})
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "stepview replay backend",
		"version": stepview.Version,
		"status":  "active",
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Health{
		Status:    "healthy",
		Timestamp: s.now().UTC(),
		Executors: domain.Languages,
	})
}

func (s *Server) languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": Languages})
}

func (s *Server) examples(w http.ResponseWriter, r *http.Request) {
	lang := domain.Language(chi.URLParam(r, "language"))
	examples, ok := Examples[lang]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No examples available for: %s", lang))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"examples": examples})
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.logger.Info("Execution requested", "language", req.Language)

	rec, err := s.Lookup(r.Context(), req.Language, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrTraceNotFound) {
			writeError(w, http.StatusNotFound, "No recorded trace for this program")
			return
		}
		s.logger.Error("Execution lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Execution failed: %v", err))
		return
	}

	trace := *rec.Trace
	trace.Language = req.Language
	trace.Code = req.Code
	trace.CurrentStep = 0
	trace.TotalSteps = len(trace.Steps)
	s.logger.Info("Execution replayed", "id", rec.ID, "steps", trace.TotalSteps)
	writeJSON(w, http.StatusOK, trace)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	result := domain.ValidationResult{
		Valid:    true,
		Errors:   []domain.Diagnostic{},
		Warnings: []domain.Diagnostic{},
	}
	if strings.TrimSpace(req.Code) == "" {
		result.Valid = false
		result.Errors = append(result.Errors, domain.Diagnostic{Line: 1, Message: "source is empty", Type: "SyntaxError"})
	} else if _, err := s.Lookup(r.Context(), req.Language, req.Code); errors.Is(err, domain.ErrTraceNotFound) {
		result.Warnings = append(result.Warnings, domain.Diagnostic{Line: 1, Message: "no recorded trace for this program", Type: "Warning"})
	} else if err != nil {
		s.logger.Error("Validation lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Validation failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (domain.ExecutionRequest, bool) {
	var req domain.ExecutionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if !req.Language.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported language: %s", req.Language))
		return req, false
	}
	return req, true
}

// Lookup finds the recording of a program. Recordings stored under their
// fingerprint are found directly; others are matched by scanning the store.
func (s *Server) Lookup(ctx context.Context, language domain.Language, code string) (*domain.Recording, error) {
	fp := domain.Fingerprint(language, code)
	rec, err := s.store.Load(ctx, fp)
	if err == nil && rec.Trace != nil {
		return rec, nil
	}
	if err != nil && !errors.Is(err, domain.ErrTraceNotFound) {
		return nil, err
	}

	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	for _, id := range ids {
		rec, err := s.store.Load(ctx, id)
		if err != nil {
			s.logger.Warn("Skipping unreadable recording", "id", id, "err", err)
			continue
		}
		if rec.Fingerprint == fp && rec.Trace != nil {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrTraceNotFound, fp)
}

// ListenAndServe runs the backend on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Replay backend listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
