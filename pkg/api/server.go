// Package api provides the HTTP server for the ID mapping service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kbase/idmapping/internal/logger"
	"github.com/kbase/idmapping/pkg/mapper"
	"github.com/kbase/idmapping/pkg/storage"
)

// drainTimeout bounds graceful shutdown when Start handles the context
// cancellation itself.
const drainTimeout = 5 * time.Second

// Server serves the ID mapping HTTP API with graceful shutdown.
type Server struct {
	httpServer *http.Server
	config     Config
	stopOnce   sync.Once
}

// NewServer builds a stopped server; call Start to serve. Defaults are
// applied here so a zero-ish Config still yields a working server in
// tests.
func NewServer(config Config, m *mapper.Mapper, store storage.Store) *Server {
	config.applyDefaults()

	return &Server{
		config: config,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
			Handler:      NewRouter(config, m, store),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start serves until the context is cancelled or the listener fails.
// Cancellation drains in-flight requests before returning.
func (s *Server) Start(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("API server shutdown signal received")
	// the cancelled ctx would abort the drain immediately
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	return s.Stop(drainCtx)
}

// Stop drains and stops the server. Safe to call more than once and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if err = s.httpServer.Shutdown(ctx); err != nil {
			err = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.Err(err))
			return
		}
		logger.Info("API server stopped gracefully")
	})
	return err
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.config.Port
}
