// Package api provides the HTTP REST API for lorewarden.
//
// Endpoints:
//
//	GET  /health                   - liveness probe
//	GET  /ready                    - readiness probe
//	POST /api/chat                 - one conversation turn
//	GET  /api/chats                - list chats
//	GET  /api/chats/{id}/messages  - ordered chat history
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - chat.go: chat turn endpoint
//   - session.go: chat listing and history endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/lorewarden/lorewarden/internal/agent"
	"github.com/lorewarden/lorewarden/internal/log"
	"github.com/lorewarden/lorewarden/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generous because a completion round trip happens inside the handler.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Agent is the conversation capability the handlers depend on.
// *agent.Agent satisfies this; tests substitute a mock.
type Agent interface {
	Send(ctx context.Context, chatID, question string) (agent.Turn, error)
	History(ctx context.Context, chatID string) ([]session.Message, error)
}

// Store is the read/health view of the session store used by the listing
// and readiness endpoints.
type Store interface {
	List(ctx context.Context) ([]session.Info, error)
	Ping() error
}

// ServerConfig contains the dependencies for NewServer.
type ServerConfig struct {
	Agent  Agent
	Store  Store
	Logger log.Logger
}

// Server is the HTTP server for lorewarden's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health  *HealthHandler
	chat    *ChatHandler
	session *SessionHandler
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  cfg.Logger,
		health:  NewHealthHandler(cfg.Store, cfg.Logger),
		chat:    NewChatHandler(cfg.Agent, cfg.Logger),
		session: NewSessionHandler(cfg.Agent, cfg.Store, cfg.Logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recovery(s.logger), requestLogging(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
