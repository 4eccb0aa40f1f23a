// Package client is a Go client for the task tracker API. It keeps the
// caller's token in an explicit Session and reacts to rejected tokens by
// clearing it.
package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth"
)

// Store is the durable slot that survives restarts.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// MemoryStore keeps the token in memory only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error { return m.Save("") }

// FileStore keeps the token in a file readable only by the owner.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (f FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f FileStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Session holds the current token and the identity decoded from it. It is
// safe for concurrent use.
type Session struct {
	mu           sync.RWMutex
	store        Store
	token        string
	claims       *auth.Claims
	onInvalidate func()
}

// NewSession restores a token from store. A stored token that cannot be
// decoded is discarded. onInvalidate, when set, runs after the server
// rejects the token.
func NewSession(store Store, onInvalidate func()) (*Session, error) {
	if store == nil {
		store = &MemoryStore{}
	}
	s := &Session{store: store, onInvalidate: onInvalidate}
	token, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if token == "" {
		return s, nil
	}
	claims, err := decodeClaims(token)
	if err != nil {
		if err := store.Clear(); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return s, nil
	}
	s.token, s.claims = token, claims
	return s, nil
}

// decodeClaims reads the payload without checking the signature; only the
// server can verify it.
func decodeClaims(token string) (*auth.Claims, error) {
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no user id")
	}
	return &claims, nil
}

// Set replaces the session token and persists it.
func (s *Session) Set(token string) error {
	claims, err := decodeClaims(token)
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(token); err != nil {
		return err
	}
	s.token, s.claims = token, claims
	return nil
}

// Token returns the bearer token or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the decoded claims.
func (s *Session) Identity() (auth.Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return auth.Claims{}, false
	}
	return *s.claims, true
}

// Clear forgets the token without notifying anyone.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.claims = "", nil
	return s.store.Clear()
}

// invalidate clears a rejected token. The callback fires only if token was
// still current, so concurrent 401s for one token notify once.
func (s *Session) invalidate(token string) {
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		return
	}
	s.token, s.claims = "", nil
	_ = s.store.Clear()
	cb := s.onInvalidate
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}
