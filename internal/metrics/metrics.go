// Package metrics exposes live sync counters over a Prometheus HTTP endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves a registry on /metrics.
type Server struct {
	addr       net.Addr
	httpServer *http.Server

	shutdownTimeout time.Duration

	mu sync.RWMutex
}

// Config holds the configuration of the metrics endpoint.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New returns a server exposing reg on the configured host and port.
func New(cfg Config, reg prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		shutdownTimeout: 5 * time.Second,
	}
}

// ListenAndServe listens on the configured address and serves requests until the server is stopped.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	return s.httpServer.Serve(listener)
}

// Run serves requests until ctx is done, then shuts the server down gracefully.
// It returns nil once stopped by ctx.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server error: %v", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Debug("Shutting down metrics server", "reason", ctx.Err())
	// ctx is already done: the shutdown needs its own deadline.
	sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(sctx); err != nil {
		s.httpServer.Close()
		return fmt.Errorf("metrics server shutdown error: %v", err)
	}
	<-errCh
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close stops the server.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Addr returns the address the server is listening on, or an empty string before it listens.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}
