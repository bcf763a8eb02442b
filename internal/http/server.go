package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

type Server struct {
	srv             *http.Server
	log             *logger.Logger
	shutdownTimeout time.Duration
}

func NewServer(cfg config.HTTPConfig, rc RouterConfig) *Server {
	log := rc.Log
	if log == nil {
		log = logger.Nop()
	}
	rc.MaxRequestBytes = cfg.MaxRequestBytes
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(rc),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
			IdleTimeout:       cfg.IdleTimeout.Duration,
		},
		log:             log.Named("http"),
		shutdownTimeout: cfg.ShutdownTimeout.Duration,
	}
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// RegisterOnShutdown runs f when shutdown begins. Long-lived streams use it
// to end so in-flight requests can drain.
func (s *Server) RegisterOnShutdown(f func()) { s.srv.RegisterOnShutdown(f) }

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", ln.Addr().String())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
