package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc stops a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// Server wraps http.Server with graceful shutdown of itself and registered components.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *zap.Logger

	mu            sync.Mutex
	shutdownFuncs []ShutdownFunc
}

// NewServer constructs a Server listening on addr.
func NewServer(handler http.Handler, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// OnShutdown registers fn to run after the HTTP server stops.
// Functions run in reverse registration order.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFuncs = append(s.shutdownFuncs, func(ctx context.Context) error {
		s.log.Info("stopping component", zap.String("name", name))
		if err := fn(ctx); err != nil {
			s.log.Error("component shutdown", zap.String("name", name), zap.Error(err))
			return err
		}
		return nil
	})
}

// Run serves until SIGINT/SIGTERM, ctx cancellation or a listener error.
func (s *Server) Run(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		_ = s.shutdown()
		return fmt.Errorf("http serve: %w", err)
	case v := <-sig:
		s.log.Info("shutdown signal", zap.String("signal", v.String()))
	case <-ctx.Done():
		s.log.Info("shutdown requested")
	}
	return s.shutdown()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("http shutdown", zap.Error(err))
	}

	s.mu.Lock()
	funcs := s.shutdownFuncs
	s.mu.Unlock()

	var errList []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errList = append(errList, err)
		}
	}
	if err := errors.Join(errList...); err != nil {
		return err
	}
	s.log.Info("stopped")
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }
