package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/registry"
)

// Store resolves the prompt triplet for a column id. The store is built at
// startup and validated against the registry; a column without a triplet is
// a configuration error before any unit runs.
type Store struct {
	mu       sync.RWMutex
	triplets map[string]*Triplet
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{triplets: make(map[string]*Triplet)}
}

// Put registers or replaces the triplet for a column.
func (s *Store) Put(t *Triplet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triplets[t.ColumnID] = t
}

// Get returns the triplet for a column id.
func (s *Store) Get(columnID string) (*Triplet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.triplets[columnID]
	return t, ok
}

// Len returns the number of registered triplets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.triplets)
}

// Validate checks that every registry column resolves to exactly one
// triplet. Called once at startup.
func (s *Store) Validate(reg *registry.Registry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range reg.IDs() {
		if _, ok := s.triplets[id]; !ok {
			return errors.New(errors.KindConfiguration,
				fmt.Sprintf("column %q has no prompt triplet", id))
		}
	}
	return nil
}

// tripletFile is the on-disk YAML shape for one column's triplet.
type tripletFile struct {
	Column      string `yaml:"column"`
	Generative  string `yaml:"generative"`
	Evaluative  string `yaml:"evaluative"`
	Improvement string `yaml:"improvement"`
}

// LoadDir populates the store from a directory of per-column YAML files.
// Columns not covered by a file keep their synthesized defaults, so a
// deployment can override a handful of prompts without redefining all 295.
func (s *Store) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read prompt dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		if err := s.loadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var file tripletFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	generative, err := NewTemplate(file.Generative)
	if err != nil {
		return fmt.Errorf("%s: generative: %w", path, err)
	}
	evaluative, err := NewTemplate(file.Evaluative)
	if err != nil {
		return fmt.Errorf("%s: evaluative: %w", path, err)
	}
	improvement, err := NewTemplate(file.Improvement)
	if err != nil {
		return fmt.Errorf("%s: improvement: %w", path, err)
	}

	triplet, err := NewTriplet(file.Column, generative, evaluative, improvement)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s.Put(triplet)
	return nil
}

// DefaultStore synthesizes triplets for every registry column from its
// metadata, then overlays any YAML overrides from dir (empty dir skips the
// overlay).
func DefaultStore(reg *registry.Registry, dir string) (*Store, error) {
	store := NewStore()
	for _, col := range reg.Columns() {
		store.Put(SynthesizeTriplet(col))
	}

	if dir != "" {
		if err := store.LoadDir(dir); err != nil {
			return nil, err
		}
	}

	if err := store.Validate(reg); err != nil {
		return nil, err
	}
	return store, nil
}
