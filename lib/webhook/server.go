// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultAddress is the legacy listen address.
	DefaultAddress = ":4269"

	// DefaultPath is the legacy callback path.
	DefaultPath = "/github/callback"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address is the TCP listen address. Defaults to DefaultAddress.
	Address string

	// Path is the callback path the Handler is mounted at. Other
	// paths return 404. Defaults to DefaultPath.
	Path string

	// Handler receives deliveries. Required.
	Handler http.Handler

	// ShutdownTimeout bounds the wait for in-flight requests during
	// graceful shutdown. Defaults to 10 seconds.
	ShutdownTimeout time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Server serves webhook deliveries on a TCP listener. Serve blocks
// until its context is cancelled and active requests drain.
type Server struct {
	address         string
	path            string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed once the listener is bound.
	ready chan struct{}

	// addr is the resolved listen address, valid after ready closes.
	addr net.Addr
}

// NewServer creates a Server. Call Serve to start accepting
// connections.
func NewServer(config ServerConfig) *Server {
	if config.Handler == nil {
		panic("webhook.NewServer: Handler is required")
	}
	if config.Logger == nil {
		panic("webhook.NewServer: Logger is required")
	}
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		address:         config.Address,
		path:            config.Path,
		handler:         config.Handler,
		logger:          config.Logger,
		shutdownTimeout: config.ShutdownTimeout,
		ready:           make(chan struct{}),
	}
}

// Ready returns a channel that is closed once the server is bound and
// accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the resolved listen address. Only valid after Ready is
// closed; with port 0 it carries the OS-assigned port.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Serve accepts connections until ctx is cancelled, then stops
// accepting and waits up to the shutdown timeout for active requests.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	mux := http.NewServeMux()
	mux.Handle(s.path, s.handler)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server listening", "address", s.addr.String(), "path", s.path)

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("webhook server shutdown error", "error", err)
		return fmt.Errorf("webhook server shutdown: %w", err)
	}

	s.logger.Info("webhook server stopped")
	return nil
}
