package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/effective-security/protoreview/callbacks"
	"github.com/effective-security/protoreview/pkg/llmfactory"
	"github.com/effective-security/protoreview/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/protoreview", "httpserver")

// DefaultAddr is the default listen address.
const DefaultAddr = ":8000"

// Option mutates the server configuration.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithCallback sets the observer wired into every review run.
func WithCallback(cb callbacks.Callback) Option {
	return func(s *Server) { s.cb = cb }
}

// Server exposes proto reviews over HTTP.
type Server struct {
	factory  llmfactory.Factory
	registry *tools.Registry
	cb       callbacks.Callback
	addr     string
	srv      *http.Server
}

// New creates a review server backed by the given model factory and tool
// registry.
func New(factory llmfactory.Factory, registry *tools.Registry, opts ...Option) *Server {
	s := &Server{
		factory:  factory,
		registry: registry,
		cb:       callbacks.NewNoop(),
		addr:     DefaultAddr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler, with group authorization applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.HandleFunc("POST /review", s.handleReview)
	mux.HandleFunc("POST /review/raw", s.handleReviewRaw)
	return GroupAuthHandler(mux)
}

// Start listens on the configured address and serves until Shutdown or
// Close is called.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.KV(xlog.INFO, "status", "listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
