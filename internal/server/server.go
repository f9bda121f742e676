// package server contains the router, middleware & handlers for the backend-for-frontend
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, panic recovery, etc.
type Middleware func(http.Handler) http.Handler

// Route is a single endpoint served by a [Handler].
//
// Middleware runs inside the router's global middleware, in the order listed.
type Route struct {
	Method     string
	Path       string
	Handler    http.HandlerFunc
	Middleware []Middleware
}

// Handler groups related routes, e.g. the OAuth flow or the library proxy.
type Handler interface {
	Routes() []Route // Routes returns every endpoint this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                                       // Use adds middleware to the router's global stack
	Handle(method, path string, handler http.Handler, mw ...Middleware) // Handle registers a handler for the specified method and path
	Register(handlers ...Handler)                                       // Register adds every route of each Handler
	ServeHTTP(w http.ResponseWriter, r *http.Request)                   // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 10 * time.Second

// Server runs a [Router] until its context is cancelled.
type Server struct {
	http   *http.Server
	logger *log.Logger
}

// NewServer creates a [Server] listening on addr.
func NewServer(addr string, handler http.Handler, logger *log.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
//
// In-flight requests get a bounded window to finish.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
