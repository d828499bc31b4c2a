// Package settings persists user-supplied API credentials.
//
// Keys saved here win over values from the config file, so a user can
// point the CLI at new credentials without editing TOML or restarting
// the daemon.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Values are the stored credentials. Empty fields fall back to the
// config file.
type Values struct {
	GeminiAPIKey      string `json:"gemini_api_key,omitempty"`
	TraktClientID     string `json:"trakt_client_id,omitempty"`
	TraktClientSecret string `json:"trakt_client_secret,omitempty"`
}

// Store is a file-backed settings store safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	path     string
	fallback Values
	values   Values
}

// NewStore loads the settings file at path, creating nothing until
// the first update. fallback supplies config-file defaults.
func NewStore(path string, fallback Values) (*Store, error) {
	s := &Store{path: path, fallback: fallback}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

// Values returns the stored values without fallbacks applied.
func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// Update applies fn to the stored values and writes them atomically.
func (s *Store) Update(fn func(*Values)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.values
	fn(&next)

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit settings: %w", err)
	}
	s.values = next
	return nil
}

// GeminiAPIKey returns the effective Gemini API key.
func (s *Store) GeminiAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.values.GeminiAPIKey != "" {
		return s.values.GeminiAPIKey
	}
	return s.fallback.GeminiAPIKey
}

// TraktClientID returns the effective Trakt client ID.
func (s *Store) TraktClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.values.TraktClientID != "" {
		return s.values.TraktClientID
	}
	return s.fallback.TraktClientID
}

// TraktClientSecret returns the effective Trakt client secret.
func (s *Store) TraktClientSecret() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.values.TraktClientSecret != "" {
		return s.values.TraktClientSecret
	}
	return s.fallback.TraktClientSecret
}

// Mask hides all but the last four characters of a secret for
// display.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
