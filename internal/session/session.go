// Package session persists the pieces of client state that survive a
// restart: credentials and UI preferences. Listings and balances are always
// fetched again.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/store"
)

const fileMode = 0o600

type Session struct {
	APIURL       string          `yaml:"api_url,omitempty"`
	AccessToken  string          `yaml:"access_token,omitempty"`
	RefreshToken string          `yaml:"refresh_token,omitempty"`
	User         *model.AuthUser `yaml:"user,omitempty"`
	Preferences  Preferences     `yaml:"preferences"`
	SavedAt      time.Time       `yaml:"saved_at,omitempty"`
}

type Preferences struct {
	ViewMode  store.ViewMode  `yaml:"view_mode,omitempty"`
	SortBy    store.SortField `yaml:"sort_by,omitempty"`
	SortOrder store.SortOrder `yaml:"sort_order,omitempty"`
}

func (s *Session) LoggedIn() bool {
	return s != nil && s.AccessToken != ""
}

// SetAuth stores a freshly issued token pair.
func (s *Session) SetAuth(pair model.TokenPair) {
	s.AccessToken = pair.AccessToken
	s.RefreshToken = pair.RefreshToken
	user := pair.User
	s.User = &user
}

func (s *Session) ClearAuth() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.User = nil
}

// CapturePreferences copies the UI preferences out of a store snapshot.
func (s *Session) CapturePreferences(st store.State) {
	s.Preferences = Preferences{ViewMode: st.ViewMode, SortBy: st.SortBy, SortOrder: st.SortOrder}
}

// ApplyPreferences restores saved preferences into st.
func (s *Session) ApplyPreferences(st *store.Store) {
	if s.Preferences.ViewMode != "" {
		st.SetViewMode(s.Preferences.ViewMode)
	}
	if s.Preferences.SortBy != "" {
		st.SetSort(s.Preferences.SortBy, s.Preferences.SortOrder)
	}
}

// Load reads the session at path. A missing file yields an empty session.
func Load(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the session atomically with owner-only permissions.
func Save(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	s.SavedAt = time.Now().UTC()
	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
