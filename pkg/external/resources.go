package external

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// ResourceIndex persists the set of subscribed external resource ids
// as a JSON array at <dir>/resources.json. A missing file is an empty
// list.
type ResourceIndex struct {
	mu   sync.Mutex
	path string
}

// NewResourceIndex creates the storage directory if needed.
func NewResourceIndex(dir string) (*ResourceIndex, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", dir, err)
	}
	return &ResourceIndex{path: filepath.Join(dir, "resources.json")}, nil
}

// List returns the stored resource ids.
func (r *ResourceIndex) List() ([]sonar.ExternalMediaID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// Add appends an id if absent.
func (r *ResourceIndex) Add(id sonar.ExternalMediaID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, err := r.read()
	if err != nil {
		return err
	}
	for _, have := range ids {
		if have == id {
			return nil
		}
	}
	return r.write(append(ids, id))
}

// Remove drops an id if present.
func (r *ResourceIndex) Remove(id sonar.ExternalMediaID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, err := r.read()
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, have := range ids {
		if have != id {
			kept = append(kept, have)
		}
	}
	return r.write(kept)
}

func (r *ResourceIndex) read() ([]sonar.ExternalMediaID, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", r.path, err)
	}
	var ids []sonar.ExternalMediaID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parse %q: %w", r.path, err)
	}
	return ids, nil
}

func (r *ResourceIndex) write(ids []sonar.ExternalMediaID) error {
	if ids == nil {
		ids = []sonar.ExternalMediaID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", r.path, err)
	}
	return nil
}
