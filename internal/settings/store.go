package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Store abstracts persistence of the settings fragment across restarts.
type Store interface {
	// Load returns the persisted settings, or defaults when none exist yet.
	Load(ctx context.Context) (*Settings, error)
	// Save persists the provided settings, replacing any existing fragment.
	Save(ctx context.Context, settings *Settings) error
}

// FileStore persists the settings fragment as a JSON file. Writes go through
// a temporary file followed by a rename so a crash never leaves a truncated
// fragment behind.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path. Parent
// directories are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the settings fragment. A missing file yields default
// settings rather than an error.
func (s *FileStore) Load(_ context.Context) (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return &Settings{}, nil
	}
	var settings Settings
	if err = json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	return &settings, nil
}

// Save writes the settings fragment atomically.
func (s *FileStore) Save(_ context.Context, settings *Settings) error {
	if settings == nil {
		return fmt.Errorf("settings: nil settings")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: create directory: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("settings: write %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("settings: replace %s: %w", s.path, err)
	}
	log.Debugf("Persisted settings fragment to %s", s.path)
	return nil
}
