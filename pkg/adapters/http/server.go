package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/pkg/client"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/render"
	"github.com/aretw0/stepview/pkg/runner"
	"github.com/aretw0/stepview/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// MaxSourceBytes bounds the body of a source update.
const MaxSourceBytes = 256 << 10

// Server exposes workbench sessions over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	limiter  *rate.Limiter
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	mu      sync.Mutex
	watched map[string]func()
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExecuteRate limits execution requests across all sessions to perMinute,
// with bursts of up to burst requests. Zero disables the limit.
func WithExecuteRate(perMinute float64, burst int) Option {
	return func(s *Server) {
		if perMinute <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perMinute/60), burst)
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

type sourceRequest struct {
	Code     *string `json:"code"`
	Language string  `json:"language"`
}

type seekRequest struct {
	Cursor *int `json:"cursor"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewServer creates a Server over sessions.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		logger:   slog.Default(),
		watched:  make(map[string]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates a new HTTP handler for the sessions.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.DeleteSession)
			r.Put("/source", s.PutSource)
			r.Post("/execute", s.Execute)
			r.Post("/playback/seek", s.Seek)
			r.Post("/playback/{action}", s.Playback)
			r.Get("/view", s.GetView)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":       "stepview-http",
		"version":   strings.TrimSpace(stepview.Version),
		"languages": domain.Languages,
	})
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Create(r.Context())
	if err != nil {
		s.fail(w, "CreateSession", err)
		return
	}
	s.watch(sess)
	writeJSON(w, http.StatusCreated, sess.Info())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions.List())
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.fail(w, "DeleteSession", err)
		return
	}
	s.unwatch(id)
	w.WriteHeader(http.StatusNoContent)
}

// PutSource handles PUT /sessions/{id}/source.
func (s *Server) PutSource(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body sourceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxSourceBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		s.logger.Warn("PutSource: Invalid request body", "err", err)
		return
	}

	var lang domain.Language
	if body.Language != "" {
		parsed, err := domain.ParseLanguage(body.Language)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = parsed
	}

	if body.Code != nil {
		code, err := runner.SanitizeSource(*body.Code)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		body.Code = &code
	}

	err := s.Sessions.WithLock(r.Context(), sess.ID, func(context.Context) error {
		if lang != "" {
			if err := sess.Workbench.Editor().SetLanguage(lang); err != nil {
				return err
			}
		}
		if body.Code != nil {
			sess.Workbench.Editor().SetText(*body.Code)
		}
		return nil
	})
	if err != nil {
		s.fail(w, "PutSource", err)
		return
	}
	writeJSON(w, http.StatusOK, runner.Render(sess.Workbench))
}

// Execute handles POST /sessions/{id}/execute.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "Execution rate limit exceeded")
		return
	}

	if _, err := s.Sessions.Execute(r.Context(), sess.ID); err != nil {
		s.fail(w, "Execute", err)
		return
	}
	writeJSON(w, http.StatusOK, runner.Render(sess.Workbench))
}

// Playback handles POST /sessions/{id}/playback/{action}.
func (s *Server) Playback(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	resp, err := runner.Act(sess.Workbench, chi.URLParam(r, "action"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Seek handles POST /sessions/{id}/playback/seek.
func (s *Server) Seek(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body seekRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Cursor == nil {
		writeError(w, http.StatusBadRequest, "Expected {\"cursor\": <step index>}")
		return
	}
	resp, err := runner.Act(sess.Workbench, string(domain.ActionSeek), *body.Cursor)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetView handles GET /sessions/{id}/view.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, runner.Render(sess.Workbench))
}

// SubscribeEvents handles the GET /sessions/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sess.ID)
	ch, cancel := s.Streams.Subscribe(sess.ID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sess.ID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// lookup resolves the {id} parameter, restoring a persisted session when
// it is not live. It writes the error response itself.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "lookup", err)
		return nil, false
	}
	s.watch(sess)
	return sess, true
}

// watch forwards every change of the session's workbench to its SSE listeners.
func (s *Server) watch(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watched[sess.ID]; ok {
		return
	}
	id := sess.ID
	s.watched[id] = sess.Workbench.Subscribe(func(screen render.Screen) {
		if s.Streams.Count(id) == 0 {
			return
		}
		data, err := json.Marshal(screen)
		if err != nil {
			s.logger.Error("SSE: failed to encode view", "session_id", id, "err", err)
			return
		}
		s.Streams.Broadcast(id, string(data))
	})
}

func (s *Server) unwatch(id string) {
	s.mu.Lock()
	unsubscribe, ok := s.watched[id]
	delete(s.watched, id)
	s.mu.Unlock()
	if ok {
		unsubscribe()
	}
}

// fail maps domain and gateway errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	var apiErr *client.APIError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedLanguage), errors.Is(err, domain.ErrEmptySource):
		status = http.StatusBadRequest
	case errors.Is(err, stepview.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, stepview.ErrNoGateway):
		status = http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
	case errors.Is(err, client.ErrBackendUnavailable),
		errors.Is(err, client.ErrMalformedResponse),
		errors.Is(err, domain.ErrInvalidTrace):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= 500 {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err, "status", status)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
