// Package diag serves the playground's diagnostics endpoints: Prometheus
// metrics and, when enabled, the net/http/pprof handlers.
package diag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"go.uber.org/zap"
)

// Server is the diagnostics HTTP server.
type Server struct {
	metrics   http.Handler
	profiling bool
	logger    *zap.Logger

	server   *http.Server
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithProfiling mounts /debug/pprof/.
func WithProfiling(on bool) Option {
	return func(s *Server) { s.profiling = on }
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a server exposing metrics at /metrics.
func NewServer(metrics http.Handler, opts ...Option) *Server {
	s := &Server{metrics: metrics, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the mux the server serves.
func (s *Server) Handler() http.Handler {
	// Dedicated mux so nothing registered on http.DefaultServeMux leaks out.
	mux := http.NewServeMux()
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	if s.profiling {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// Start binds addr and serves in the background. It returns the bound
// address, which differs from addr when the port is 0.
func (s *Server) Start(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("bind to %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("diagnostics server stopped", zap.Error(err))
		}
	}()

	bound := listener.Addr().String()
	s.logger.Info("serving diagnostics", zap.String("addr", bound), zap.Bool("pprof", s.profiling))
	return bound, nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
