package storage

// registry.go — durable equity registry as a single JSON document.
//
// The registry is the source of truth for desired state. Every mutation
// rewrites the whole file: marshal → write temp file → rename, so a crash
// mid-save can never leave a torn file. Records that fail invariant checks
// at load are kept (forced Idle, reason in LastError) so the operator can
// see and fix them, but the engine refuses to activate them.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/ports"
)

// FileRegistry implements ports.RegistryStore on a JSON file.
type FileRegistry struct {
	path string
	mu   sync.Mutex
}

var _ ports.RegistryStore = (*FileRegistry)(nil)

// NewFileRegistry creates a store writing to the given path. The file is
// created on first save.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// Load reads all persisted records. A missing file is an empty registry.
// Corrupt records are returned forced Idle together with a joined
// domain.ErrCorruptState error.
func (s *FileRegistry) Load(_ context.Context) ([]domain.Equity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Load: read %q: %w", s.path, err)
	}

	var equities []domain.Equity
	if err := json.Unmarshal(data, &equities); err != nil {
		return nil, fmt.Errorf("storage.Load: parse %q: %v: %w", s.path, err, domain.ErrCorruptState)
	}

	var corrupt []error
	for i := range equities {
		e := &equities[i]
		if err := e.CheckRecord(); err != nil {
			corrupt = append(corrupt, err)
			e.Active = false
			e.Status = domain.StatusIdle
			e.LastError = err.Error()
		}
	}
	return equities, errors.Join(corrupt...)
}

// Save atomically rewrites the registry.
func (s *FileRegistry) Save(_ context.Context, equities []domain.Equity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(equities, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.Save: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("storage.Save: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage.Save: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage.Save: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage.Save: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage.Save: rename: %w", err)
	}
	return nil
}
