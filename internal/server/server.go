// Package server hosts the HTTP listener for the realtime stream routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"journal/internal/config"
)

// Server wraps the process HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the server around the given mux. WriteTimeout intentionally
// follows the config default of zero: SSE responses are open-ended.
func New(cfg config.ServerConfig, mux *http.ServeMux, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Run serves until Shutdown. Listen failures land on errChan.
func (s *Server) Run(errChan chan<- error) {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChan <- fmt.Errorf("http server error: %w", err)
	}
}

// Shutdown drains the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
