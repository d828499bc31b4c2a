package trakt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// CredentialStore persists OAuth credentials between daemon runs.
type CredentialStore interface {
	Load() (*Credential, error)
	Save(*Credential) error
	Clear() error
}

// FileCredentialStore keeps the credential as JSON in a single file
// readable only by the owner.
type FileCredentialStore struct {
	mu   sync.Mutex
	path string
}

// NewFileCredentialStore returns a store writing to path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Load reads the stored credential. A missing file returns (nil, nil).
func (s *FileCredentialStore) Load() (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	if cred.AccessToken == "" {
		return nil, nil
	}
	return &cred, nil
}

// Save writes the credential atomically.
func (s *FileCredentialStore) Save(cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit credential: %w", err)
	}
	return nil
}

// Clear removes the stored credential. A missing file is not an error.
func (s *FileCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
