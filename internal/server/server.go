package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/drewdunne/agenda/internal/config"
	"github.com/drewdunne/agenda/internal/metrics"
	"github.com/drewdunne/agenda/internal/oauth"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Server is the HTTP side of the assistant: health, metrics and the OAuth
// redirect endpoint.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	flow   *oauth.Flow
	logger *slog.Logger

	// drain bounds how long in-flight requests may run after cancellation.
	drain time.Duration

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// New creates a new Server with the given config.
func New(cfg *config.Config, flow *oauth.Flow, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		flow:   flow,
		logger: logger.With("component", "server"),
		drain:  drainTimeout,
		ready:  make(chan struct{}),
	}
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up the HTTP routes.
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())

	s.mux.Handle(oauth.AuthorizePath, oauth.NewAuthorizeHandler(s.flow))
	s.mux.Handle(oauth.CallbackPath, oauth.NewCallbackHandler(s.flow))
}

// handleHealth responds with server health status. The service is degraded
// until the calendar has been authorized.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	authorized := s.flow.Authorized()
	checks := map[string]interface{}{
		"calendar_authorized": authorized,
	}

	status := "ok"
	if !authorized {
		status = "degraded"
	}

	health := HealthResponse{
		Status: status,
		Checks: checks,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
