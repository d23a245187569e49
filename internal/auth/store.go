package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/petr-muller/jira-chat/internal/config"
)

const sessionFileName = "session.yaml"

// Store persists the session across process restarts. A read never fails the
// caller on bad data: a missing or corrupt file reads as no session.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore creates a store under the user's jira-chat config directory.
func DefaultStore() *Store {
	return NewStore(filepath.Join(config.MustJiraChatConfigDir(), sessionFileName))
}

// Save writes the session to disk, readable only by the owning user.
func (s *Store) Save(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("cannot create session directory: %w", err)
	}

	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("cannot marshal session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("cannot write session file: %w", err)
	}

	return nil
}

// Read returns the stored session, or nil when none is stored. A corrupt
// session file is treated as absent rather than surfaced as an error.
func (s *Store) Read() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read session file: %w", err)
	}

	var session Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return nil, nil
	}

	return &session, nil
}

// Clear removes the stored session. Clearing an absent session is not an
// error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot delete session file: %w", err)
	}

	return nil
}
