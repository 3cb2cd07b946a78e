// Package settings persists user-configurable relay settings as a JSON
// file at a fixed per-installation path.
//
// Reads degrade to documented defaults when the file is absent or
// unparsable. Writes are atomic (temp file + rename). The store caches the
// value process-wide after the first read; concurrent writers get
// last-write-wins semantics.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/justapithecus/flume/types"
)

// Store reads and writes the persisted relay settings.
// Model the cached value as explicit owned state, not a package global,
// so tests and embedders can scope it.
type Store struct {
	path string

	mu     sync.RWMutex
	cached *types.Settings
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the per-installation settings file path.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "flume", "settings.json"), nil
}

// Get returns the settings, loading them on first use. Read failures
// (absent file, unparsable content) degrade to the documented defaults;
// they are never an error for the caller.
func (s *Store) Get() types.Settings {
	s.mu.RLock()
	if s.cached != nil {
		defer s.mu.RUnlock()
		return *s.cached
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached
	}

	loaded, err := s.load()
	if err != nil {
		loaded = types.DefaultSettings()
	}
	s.cached = &loaded
	return loaded
}

// load reads and parses the settings file.
func (s *Store) load() (types.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return types.Settings{}, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	var settings types.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return types.Settings{}, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	return settings, nil
}

// Put writes the settings atomically and replaces the cached value.
// Write failures are surfaced to the caller.
func (s *Store) Put(settings types.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: create %s: %w", dir, err)
	}

	// Write to a temp file in the same directory so the rename is atomic.
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("settings: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: replace %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.cached = &settings
	s.mu.Unlock()
	return nil
}
