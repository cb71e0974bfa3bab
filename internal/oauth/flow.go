// Package oauth runs the Google OAuth authorization flow for the calendar
// and keeps the resulting token.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/drewdunne/agenda/internal/config"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// CallbackPath receives the authorization redirect.
const CallbackPath = "/oauth2/callback"

const (
	stateTTL      = 10 * time.Minute
	maxOpenStates = 64
)

// ErrInvalidState is returned when the callback state was not issued by
// this process or has expired.
var ErrInvalidState = errors.New("invalid or expired oauth state")

// Flow issues authorization URLs, exchanges codes and hands out token
// sources for the calendar client.
type Flow struct {
	config *oauth2.Config
	store  *TokenStore
	logger *slog.Logger

	states *expirable.LRU[string, struct{}]
}

// Option configures a Flow.
type Option func(*Flow)

// WithEndpoint overrides the Google OAuth endpoint (for testing).
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(f *Flow) {
		f.config.Endpoint = ep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// NewFlow creates a Flow whose redirect URL is baseURL + CallbackPath.
func NewFlow(cfg config.CalendarConfig, baseURL string, store *TokenStore, opts ...Option) *Flow {
	f := &Flow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  strings.TrimSuffix(baseURL, "/") + CallbackPath,
			Scopes:       []string{gcal.CalendarScope},
		},
		store:  store,
		logger: slog.Default(),
		states: expirable.NewLRU[string, struct{}](maxOpenStates, nil, stateTTL),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "oauth")
	return f
}

// AuthURL returns a consent URL carrying a fresh single-use state. Offline
// access is requested so that a refresh token is issued.
func (f *Flow) AuthURL() string {
	state := uuid.NewString()
	f.states.Add(state, struct{}{})
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for a token and stores it. The
// state must come from an AuthURL issued by this Flow and is consumed.
func (f *Flow) Exchange(ctx context.Context, state, code string) error {
	_, live := f.states.Peek(state)
	if removed := f.states.Remove(state); !live || !removed {
		return ErrInvalidState
	}

	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging code: %w", err)
	}
	if err := f.store.Save(tok); err != nil {
		return err
	}
	f.logger.Info("calendar authorized", "has_refresh_token", tok.RefreshToken != "")
	return nil
}

// Authorized reports whether a token is available.
func (f *Flow) Authorized() bool {
	return f.store.Exists()
}

// TokenSource returns a source for the stored token. Refreshed tokens are
// written back to the store. It returns calendar.ErrNotAuthorized before
// the flow has completed.
func (f *Flow) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := f.store.Load()
	if err != nil {
		return nil, err
	}
	base := f.config.TokenSource(ctx, tok)
	return &savingSource{
		base:   base,
		store:  f.store,
		last:   tok.AccessToken,
		logger: f.logger,
	}, nil
}

// savingSource persists a token whenever its access token changes.
type savingSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	store  *TokenStore
	last   string
	logger *slog.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			s.logger.Warn("failed to persist refreshed token", "error", err)
		}
	}
	return tok, nil
}
