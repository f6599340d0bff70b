package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
)

// Defaults for Config.
const (
	DefaultAddr              = ":3000"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
)

// ErrCompletionsRequired is returned by New when no pipeline is supplied.
var ErrCompletionsRequired = errors.New("completions pipeline is required")

// Completions runs the augmented chat pipeline. *chat.Augmenter implements it.
type Completions interface {
	Complete(ctx context.Context, req *core.ChatRequest) (*ai.Completion, error)
	Stream(ctx context.Context, req *core.ChatRequest) (ai.CompletionStream, error)
}

// Config holds listener settings.
type Config struct {
	Addr              string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// DefaultConfig returns a Config listening on DefaultAddr.
func DefaultConfig() *Config {
	return &Config{
		Addr:              DefaultAddr,
		ShutdownTimeout:   DefaultShutdownTimeout,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
}

// Server serves the chat API.
type Server struct {
	cfg         *Config
	completions Completions
	engine      *gin.Engine
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New builds a server and its routes. A nil cfg uses DefaultConfig.
func New(cfg *Config, completions Completions, opts ...Option) (*Server, error) {
	if completions == nil {
		return nil, ErrCompletionsRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		cfg:         cfg,
		completions: completions,
		logger:      slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.engine = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = false
	router.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	api := router.Group("/api")
	api.POST("/chat/completions", s.handleChatCompletions)
	api.GET("/health", s.handleHealth)

	router.NoRoute(notFound)
	router.NoMethod(notFound)
	return router
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully. In-flight requests get ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.logger.Debug("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh

	s.logger.Info("server stopped")
	return nil
}
