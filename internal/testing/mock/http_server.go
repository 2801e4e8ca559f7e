package mock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"polarsync/pkg/logging"
)

const shutdownGrace = 5 * time.Second

// HTTPServer serves a Server over streamable HTTP.
type HTTPServer struct {
	svc  *Server
	addr string

	mu       sync.RWMutex
	srv      *http.Server
	ln       net.Listener
	serveErr error
}

// NewHTTPServer returns an HTTP server for svc listening on addr.
// An empty addr or port 0 picks a free port.
func NewHTTPServer(svc *Server, addr string) *HTTPServer {
	if addr == "" {
		addr = "localhost:0"
	}
	return &HTTPServer{svc: svc, addr: addr}
}

// Start begins serving in the background and returns the bound address.
// Starting a running server is a no-op.
func (s *HTTPServer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return s.ln.Addr().String(), nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.srv, s.ln, s.serveErr = srv, ln, nil

	go s.serve(srv, ln)

	logging.Info("MockServer", "Listening on %s", ln.Addr())
	return ln.Addr().String(), nil
}

func (s *HTTPServer) serve(srv *http.Server, ln net.Listener) {
	err := srv.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	logging.Error("MockServer", err, "HTTP server stopped")
	s.mu.Lock()
	s.serveErr = err
	s.mu.Unlock()
}

// Stop shuts the server down, waiting up to shutdownGrace for in-flight
// calls when ctx has no deadline.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("MockServer", "Graceful shutdown failed, closing: %v", err)
		return srv.Close()
	}
	return nil
}

// Endpoint returns the MCP endpoint URL, empty when not running.
func (s *HTTPServer) Endpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.srv == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String() + "/mcp"
}

// IsRunning reports whether the server is serving.
func (s *HTTPServer) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.srv != nil
}

// Err returns the error that stopped the server, if any.
func (s *HTTPServer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serveErr
}
