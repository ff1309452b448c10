// ABOUTME: Persistent user preferences stored as a small TOML file
// ABOUTME: Currently holds the light/dark theme choice across runs

package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Theme names written to the preferences file.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Prefs is the on-disk preference document.
type Prefs struct {
	Theme string `toml:"theme"`
}

// DarkMode resolves the stored theme, falling back to def when unset.
func (p Prefs) DarkMode(def bool) bool {
	switch p.Theme {
	case ThemeDark:
		return true
	case ThemeLight:
		return false
	default:
		return def
	}
}

// Store reads and writes Prefs at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store backed by path. An empty path disables persistence.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the preferences. A missing file yields zero Prefs.
func (s *Store) Load() (Prefs, error) {
	var p Prefs
	if s.path == "" {
		return p, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("reading prefs: %w", err)
	}
	if _, err := toml.Decode(string(data), &p); err != nil {
		return Prefs{}, fmt.Errorf("parsing prefs: %w", err)
	}
	return p, nil
}

// Save writes the preferences, replacing the file atomically.
func (s *Store) Save(p Prefs) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating prefs directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("encoding prefs: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing prefs: %w", err)
	}
	return nil
}

// SaveDarkMode records the theme choice.
func (s *Store) SaveDarkMode(dark bool) error {
	p, err := s.Load()
	if err != nil {
		p = Prefs{}
	}
	p.Theme = ThemeLight
	if dark {
		p.Theme = ThemeDark
	}
	return s.Save(p)
}
