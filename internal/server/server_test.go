package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drewdunne/agenda/internal/config"
	"github.com/drewdunne/agenda/internal/metrics"
	"github.com/drewdunne/agenda/internal/oauth"
	"golang.org/x/oauth2"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, port int) (*Server, *oauth.TokenStore) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:    "127.0.0.1",
			Port:    port,
			BaseURL: "http://localhost:8000",
		},
	}
	store := oauth.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	flow := oauth.NewFlow(config.CalendarConfig{ClientID: "cid"}, cfg.Server.BaseURL, store, oauth.WithLogger(quiet()))
	return New(cfg, flow, quiet()), store
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t, 8080)
	if srv == nil {
		t.Fatal("New() returned nil")
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, store := newTestServer(t, 8080)

	get := func() HealthResponse {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
		}
		var health HealthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
			t.Fatalf("Failed to parse health response: %v", err)
		}
		return health
	}

	health := get()
	if health.Status != "degraded" {
		t.Errorf("status before authorization = %q, want degraded", health.Status)
	}
	if health.Checks["calendar_authorized"] != false {
		t.Errorf("calendar_authorized = %v, want false", health.Checks["calendar_authorized"])
	}

	if err := store.Save(&oauth2.Token{AccessToken: "at"}); err != nil {
		t.Fatal(err)
	}

	health = get()
	if health.Status != "ok" {
		t.Errorf("status after authorization = %q, want ok", health.Status)
	}
	if health.Checks["calendar_authorized"] != true {
		t.Errorf("calendar_authorized = %v, want true", health.Checks["calendar_authorized"])
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	metrics.Reset()
	metrics.OutcomeEmitted("created")

	srv, _ := newTestServer(t, 8080)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `agenda_outcomes_total{kind="created"} 1`) {
		t.Errorf("metrics missing outcome counter:\n%s", rec.Body.String())
	}
}

func TestServer_OAuthRoutes(t *testing.T) {
	srv, _ := newTestServer(t, 8080)

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/autorizar", http.StatusOK},
		{"/oauth2/callback", http.StatusBadRequest},
		{"/oauth2/callback?state=x&code=y", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, 8080)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("POST /events status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
