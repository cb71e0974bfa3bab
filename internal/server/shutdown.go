package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const drainTimeout = 30 * time.Second

// Addr returns the address the server is listening on, or "" before
// ListenAndServe has bound its port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// ListenAndServe serves until ctx is cancelled, then stops accepting
// connections and waits up to the drain timeout for in-flight requests.
// It returns nil after a clean drain.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ln)
	}()

	s.logger.Info("server started", "addr", ln.Addr().String())
	close(s.ready)

	select {
	case err := <-served:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("draining connections", "timeout", s.drain)
	drainCtx, cancel := context.WithTimeout(context.Background(), s.drain)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		srv.Close()
		return fmt.Errorf("draining connections: %w", err)
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
