package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ez-emfi/volod/internal/models"
)

const (
	configFileName = "probe.json"
	debounceDelay  = 500 * time.Millisecond
)

// JSONStore is an atomic JSON file store with debounced writes.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	timer   *time.Timer
	pending *models.ConfigSnapshot
}

// NewJSONStore creates a new JSON store in the given config directory.
func NewJSONStore(configDir string) *JSONStore {
	return &JSONStore{
		path: filepath.Join(configDir, configFileName),
	}
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Load reads the snapshot from disk. Returns the compiled-in defaults on
// ENOENT or parse errors: the daemon must always come up in a safe state.
func (s *JSONStore) Load() (*models.ConfigSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			def := models.DefaultSnapshot()
			return &def, nil
		}
		return nil, err
	}

	var snap models.ConfigSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("config: corrupt JSON config, using defaults", "path", s.path, "err", err)
		def := models.DefaultSnapshot()
		return &def, nil
	}
	return &snap, nil
}

// Save schedules a debounced write of the snapshot to disk. The actual write
// happens after 500ms of no further Save calls.
func (s *JSONStore) Save(snap *models.ConfigSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	s.pending = &cp

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		snap := s.pending
		s.mu.Unlock()
		if snap != nil {
			if err := s.writeAtomic(snap); err != nil {
				slog.Error("config: failed to write snapshot", "path", s.path, "err", err)
			}
		}
	})
	return nil
}

// Flush forces an immediate write of any pending snapshot.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snap := s.pending
	s.mu.Unlock()
	if snap == nil {
		return nil
	}
	return s.writeAtomic(snap)
}

func (s *JSONStore) writeAtomic(snap *models.ConfigSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
