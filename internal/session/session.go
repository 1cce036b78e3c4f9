// Package session holds the client's authentication token and keeps it in
// lockstep with durable storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dori/taskdeck/internal/model"
)

// TokenKey is the storage key the bearer token is persisted under
const TokenKey = "token"

// ErrEmptyToken is returned when a login succeeds but yields no token
var ErrEmptyToken = errors.New("login returned an empty token")

// Store is durable key-value storage. *db.DB satisfies it.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Authenticator exchanges credentials for a token. *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error)
}

// Session is the client's record of whether the current user is authenticated.
// IsAuthenticated is true exactly when a non-empty token is held, and the
// held token always matches what is in the store.
type Session struct {
	mu        sync.RWMutex
	token     string
	store     Store
	auth      Authenticator
	listeners []func(authenticated bool)
	logger    *slog.Logger
}

// New creates a session seeded from store. A missing key means unauthenticated.
func New(store Store, auth Authenticator) (*Session, error) {
	token, _, err := store.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return &Session{
		token:  token,
		store:  store,
		auth:   auth,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger used for session transitions
func (s *Session) SetLogger(l *slog.Logger) {
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
}

// SetAuthenticator replaces the authenticator. The api client needs the
// session as its token source, so the two are wired after construction.
func (s *Session) SetAuthenticator(auth Authenticator) {
	s.mu.Lock()
	s.auth = auth
	s.mu.Unlock()
}

// Token returns the current bearer token, or "" when unauthenticated
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a non-empty token is held
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// OnChange registers fn to be called after every login or logout
func (s *Session) OnChange(fn func(authenticated bool)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Login exchanges credentials for a token and persists it. On failure the
// session is left as it was.
func (s *Session) Login(ctx context.Context, creds model.Credentials) error {
	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth == nil {
		return errors.New("session has no authenticator")
	}

	resp, err := auth.Login(ctx, creds)
	if err != nil {
		s.log().Info("login failed", "user", creds.Username, "err", err)
		return err
	}
	if resp.Token == "" {
		return ErrEmptyToken
	}

	if err := s.set(resp.Token); err != nil {
		return err
	}
	s.log().Info("logged in", "user", creds.Username)
	return nil
}

// Logout clears the token unconditionally. It makes no network call.
func (s *Session) Logout() error {
	if err := s.set(""); err != nil {
		return err
	}
	s.log().Info("logged out")
	return nil
}

// set writes storage first and only then updates memory, so a failed write
// leaves both sides unchanged
func (s *Session) set(token string) error {
	s.mu.Lock()
	var err error
	if token == "" {
		err = s.store.Delete(TokenKey)
	} else {
		err = s.store.Set(TokenKey, token)
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.token = token
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(token != "")
	}
	return nil
}

func (s *Session) log() *slog.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}
