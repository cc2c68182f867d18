package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/runner"
	"github.com/aretw0/stepview/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI lists the sessions known to the server.
const SessionsURI = "stepview://sessions"

// MaxSourceBytes bounds the code accepted by set_source.
const MaxSourceBytes = 256 << 10

// ErrSourceTooLarge is returned when set_source receives more than MaxSourceBytes.
var ErrSourceTooLarge = errors.New("source exceeds maximum size")

// ViewResponse is the structured result of every tool, aligned with the HTTP adapter.
type ViewResponse struct {
	SessionID string `json:"session_id" jsonschema_description:"Session the view belongs to"`
	runner.RichResponse
}

// SessionArgs addresses an existing session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// SourceArgs replaces the code and/or language of a session.
type SourceArgs struct {
	SessionID string  `json:"session_id"`
	Code      *string `json:"code,omitempty"`
	Language  string  `json:"language,omitempty"`
}

// PlaybackArgs names a playback action. Cursor is only read by "seek".
type PlaybackArgs struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Cursor    int    `json:"cursor,omitempty"`
}

// Server exposes stepview sessions as an MCP Server.
type Server struct {
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance backed by sessions.
func NewServer(sessions *session.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("stepview-mcp", stepview.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves JSON-RPC over in/out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// ServeSSE starts the server on addr using SSE.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Handle("/sse", sseServer.SSEHandler())
	r.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: open_session
	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a playback session. Restores session_id when given, otherwise creates a new one."),
		mcp.WithString("session_id", mcp.Description("Existing session to restore (optional)")),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleOpenSession))

	// TOOL: set_source
	s.mcpServer.AddTool(mcp.NewTool("set_source",
		mcp.WithDescription("Replace the program text and/or language of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("code", mcp.Description("Full program text")),
		mcp.WithString("language", mcp.Description("python, javascript or c")),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetSource))

	// TOOL: execute
	s.mcpServer.AddTool(mcp.NewTool("execute",
		mcp.WithDescription("Send the session's program to the execution backend and load the resulting trace."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleExecute))

	// TOOL: playback
	s.mcpServer.AddTool(mcp.NewTool("playback",
		mcp.WithDescription("Move through the loaded trace."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("play", "pause", "next", "previous", "reset", "seek"),
			mcp.Description("Playback action")),
		mcp.WithNumber("cursor", mcp.Description("0-based step index, only for seek")),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handlePlayback))

	// TOOL: get_view
	s.mcpServer.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Get the current view of a session without changing it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetView))
}

func (s *Server) handleOpenSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (ViewResponse, error) {
	var (
		sess *session.Session
		err  error
	)
	if args.SessionID != "" {
		sess, err = s.sessions.Restore(ctx, args.SessionID)
	} else {
		sess, err = s.sessions.Create(ctx)
	}
	if err != nil {
		return ViewResponse{}, fmt.Errorf("open session failed: %w", err)
	}
	return view(sess), nil
}

func (s *Server) handleSetSource(ctx context.Context, _ mcp.CallToolRequest, args SourceArgs) (ViewResponse, error) {
	if args.Code != nil && len(*args.Code) > MaxSourceBytes {
		s.logger.Warn("MCP SetSource: Input rejected", "size", len(*args.Code))
		return ViewResponse{}, ErrSourceTooLarge
	}
	var lang domain.Language
	if args.Language != "" {
		parsed, err := domain.ParseLanguage(args.Language)
		if err != nil {
			return ViewResponse{}, err
		}
		lang = parsed
	}

	sess, err := s.sessions.Restore(ctx, args.SessionID)
	if err != nil {
		return ViewResponse{}, err
	}
	err = s.sessions.WithLock(ctx, sess.ID, func(context.Context) error {
		if lang != "" {
			if err := sess.Workbench.Editor().SetLanguage(lang); err != nil {
				return err
			}
		}
		if args.Code != nil {
			sess.Workbench.Editor().SetText(*args.Code)
		}
		return nil
	})
	if err != nil {
		return ViewResponse{}, fmt.Errorf("set source failed: %w", err)
	}
	return view(sess), nil
}

func (s *Server) handleExecute(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (ViewResponse, error) {
	sess, err := s.sessions.Restore(ctx, args.SessionID)
	if err != nil {
		return ViewResponse{}, err
	}
	if _, err := s.sessions.Execute(ctx, sess.ID); err != nil {
		s.logger.Error("MCP Execute: Failed", "session_id", sess.ID, "err", err)
		return ViewResponse{}, fmt.Errorf("execute failed: %w", err)
	}
	return view(sess), nil
}

func (s *Server) handlePlayback(ctx context.Context, _ mcp.CallToolRequest, args PlaybackArgs) (ViewResponse, error) {
	action, err := runner.SanitizeInput(args.Action)
	if err != nil {
		s.logger.Warn("MCP Playback: Input rejected", "err", err, "size", len(args.Action))
		return ViewResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	sess, err := s.sessions.Restore(ctx, args.SessionID)
	if err != nil {
		return ViewResponse{}, err
	}
	var rich *runner.RichResponse
	err = s.sessions.WithLock(ctx, sess.ID, func(context.Context) error {
		var actErr error
		rich, actErr = runner.Act(sess.Workbench, action, args.Cursor)
		return actErr
	})
	if err != nil {
		return ViewResponse{}, err
	}
	return ViewResponse{SessionID: sess.ID, RichResponse: *rich}, nil
}

func (s *Server) handleGetView(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (ViewResponse, error) {
	sess, err := s.sessions.Restore(ctx, args.SessionID)
	if err != nil {
		return ViewResponse{}, err
	}
	return view(sess), nil
}

func (s *Server) registerResources() {
	// EXPOSE: stepview://sessions
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Open Sessions",
		mcp.WithResourceDescription("Live playback sessions with their phase and cursor"),
		mcp.WithMIMEType("application/json"),
	), s.readSessions)
}

func (s *Server) readSessions(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.sessions.List())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SessionsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func view(sess *session.Session) ViewResponse {
	return ViewResponse{SessionID: sess.ID, RichResponse: *runner.Render(sess.Workbench)}
}
