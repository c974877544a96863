package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Compile-time interface check.
var _ StateStore = (*FileStateStore)(nil)

// FileStateStore implements StateStore as a JSON object on disk. The whole
// file is rewritten on every Put.
type FileStateStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileStateStore loads the state file at path. A missing file is an
// empty store.
func NewFileStateStore(path string) (*FileStateStore, error) {
	s := &FileStateStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Get returns the value stored for key.
func (s *FileStateStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Put applies values and rewrites the file via temp file and rename. On
// failure the in-memory state is left unchanged.
func (s *FileStateStore) Put(_ context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.values)+len(values))
	for k, v := range s.values {
		next[k] = v
	}
	for k, v := range values {
		if v == "" {
			delete(next, k)
			continue
		}
		next[k] = v
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("renaming state file: %w", err)
	}

	s.values = next
	return nil
}

// Close is a no-op; every Put is already durable.
func (s *FileStateStore) Close() error { return nil }
