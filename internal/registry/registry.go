// Package registry tracks parsed artifacts by logical name. It maps each
// name to the artifact kind, the source document, and the emitted metadata
// path, persisted as one JSON file so other commands can find metadata
// without re-parsing.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Entry is one registered artifact.
type Entry struct {
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	SourcePath   string    `json:"source_path"`
	MetadataPath string    `json:"metadata_path"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Registry is a file-backed name index. Safe for concurrent use within one
// process; the file itself is rewritten whole on every change.
type Registry struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
}

// Open loads the registry file, or starts empty when it does not exist yet.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, entries: map[string]Entry{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("registry file %s is corrupt: %w", path, err)
	}
	for _, e := range list {
		r.entries[e.Name] = e
	}
	return r, nil
}

// Register adds or replaces the entry for a logical name and persists.
func (r *Registry) Register(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Name == "" {
		return errors.New("registry entry needs a name")
	}
	if e.RegisteredAt.IsZero() {
		e.RegisteredAt = time.Now().UTC()
	}
	r.entries[e.Name] = e
	return r.save()
}

// Remove deletes an entry and persists. Removing an unknown name is an
// error so callers can report typos.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("no registered artifact named %q", name)
	}
	delete(r.entries, name)
	return r.save()
}

// Lookup returns the entry for a logical name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns all entries sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// save writes the sorted entry list atomically. Callers hold the lock.
func (r *Registry) save() error {
	list := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".registry.*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
