package terms

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and one-off runs.
type MemoryStore struct {
	mu sync.RWMutex

	terms   map[string]Term
	columns []string
	filled  map[string]map[string]bool
}

// NewMemoryStore builds a store whose pending scan is computed against the
// given column universe.
func NewMemoryStore(columns []string) *MemoryStore {
	cols := make([]string, len(columns))
	copy(cols, columns)

	return &MemoryStore{
		terms:   make(map[string]Term),
		columns: cols,
		filled:  make(map[string]map[string]bool),
	}
}

// AddTerm registers a term.
func (s *MemoryStore) AddTerm(term Term) error {
	if err := term.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[term.ID] = term
	return nil
}

// MarkFilled records that the term already has accepted content for the
// column, removing it from the pending scan.
func (s *MemoryStore) MarkFilled(termID, columnID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells, ok := s.filled[termID]
	if !ok {
		cells = make(map[string]bool)
		s.filled[termID] = cells
	}
	cells[columnID] = true
}

func (s *MemoryStore) GetTerm(ctx context.Context, termID string) (*Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term, ok := s.terms[termID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTermNotFound, termID)
	}
	return &term, nil
}

func (s *MemoryStore) ListPendingColumns(ctx context.Context, termID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.terms[termID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTermNotFound, termID)
	}

	filled := s.filled[termID]
	pending := make([]string, 0, len(s.columns))
	for _, col := range s.columns {
		if !filled[col] {
			pending = append(pending, col)
		}
	}
	sort.Strings(pending)
	return pending, nil
}
