// Package session holds the server-assigned session token that scopes the cart.
//
// The storefront API sets the token through a cookie on first contact. The client
// forwards it on every request and replaces it only when the server sends a new one.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultCookieName is the cookie the storefront API uses for the session id.
const DefaultCookieName = "shop_session-id"

// Provider exposes the current session token to outgoing requests.
// Update is called only with a token issued by the server.
type Provider interface {
	Token() string
	Update(token string) error
}

// Store is a Provider that keeps the token in memory and, when path is set,
// persists it to a JSON file so separate processes share one cart.
type Store struct {
	mu    sync.RWMutex
	token string
	path  string
}

type storedSession struct {
	SessionID string    `json:"session_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStore creates a Store backed by path. An empty path keeps the token in memory only.
// A missing file is not an error: the server assigns a session on first contact.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	s.token = stored.SessionID
	return s, nil
}

// NewMemoryStore creates a Store seeded with token and no persistence.
func NewMemoryStore(token string) *Store {
	return &Store{token: token}
}

// Token returns the current session token, or "" before the server assigned one.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Update replaces the token with a server-issued value and persists it.
// Empty tokens are ignored.
func (s *Store) Update(token string) error {
	if token == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token == s.token {
		return nil
	}
	s.token = token

	if s.path == "" {
		return nil
	}
	return s.persist()
}

// persist writes the token atomically (temp file + rename). Caller holds mu.
func (s *Store) persist() error {
	data, err := json.Marshal(storedSession{SessionID: s.token, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// Verify Store implements Provider at compile time.
var _ Provider = (*Store)(nil)
