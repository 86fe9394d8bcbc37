package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/store"
)

// Server hosts the service handlers on an HTTP listener.
type Server struct {
	http   *http.Server
	cfg    config.ServerConfig
	logger *slog.Logger
}

// NewServer creates a Server for st. A nil logger falls back to
// slog.Default().
func NewServer(st *store.Store, cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	path, handler := NewHandler(st, logger)
	mux.Handle(path, handler)

	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. Request contexts are cancelled when
// shutdown starts so open watch streams end instead of holding it up.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	s.http.BaseContext = func(net.Listener) context.Context { return base }

	errc := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "rpc server listening", slog.String("addr", ln.Addr().String()))
		errc <- s.http.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	cancelBase()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.InfoContext(shutdownCtx, "rpc server shutting down", slog.Duration("timeout", s.cfg.ShutdownTimeout))
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc server shutdown: %w", err)
	}
	return nil
}
