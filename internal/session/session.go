package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"aqualink/internal/config"
)

// Session holds the credentials and identity for one agent run. It is
// created explicitly at startup and injected into the backend client;
// there is no package-level singleton. Close clears the credentials so
// a torn-down session can no longer authenticate requests.
type Session struct {
	mu      sync.RWMutex
	id      string
	baseURL string
	token   string
	open    bool
}

// Open builds a session from config, reading the persisted token file
// when one is configured
func Open(cfg *config.Config) (*Session, error) {
	token := cfg.API.AuthToken
	if cfg.API.AuthTokenFile != "" {
		loaded, err := config.LoadAuthToken(cfg.API.AuthTokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
		token = loaded
	}

	return &Session{
		id:      uuid.NewString(),
		baseURL: cfg.API.BaseURL,
		token:   token,
		open:    true,
	}, nil
}

// ID returns the session identifier, threaded into logs
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// BaseURL returns the backend root URL
func (s *Session) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// Token returns the bearer token, empty when unauthenticated or closed
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return ""
	}
	return s.token
}

// Open reports whether the session is still usable
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Close clears the credentials. Requests issued afterwards go out
// unauthenticated, which the backend rejects.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.open = false
}
