package versions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists content versions, the selected-version pointer, and human
// ratings. Saves are append-only; versions are never updated in place.
type Store interface {
	Save(ctx context.Context, v *ContentVersion) error
	Get(ctx context.Context, versionID string) (*ContentVersion, error)
	ListByUnit(ctx context.Context, termID, columnID string) ([]*ContentVersion, error)
	Select(ctx context.Context, termID, columnID, versionID string) error
	Selected(ctx context.Context, termID, columnID string) (*ContentVersion, error)
	Rate(ctx context.Context, versionID string, stars int) error
	Ratings(ctx context.Context, versionID string) ([]Rating, error)
}

// ErrNotFound is returned when a version id does not exist.
var ErrNotFound = fmt.Errorf("version not found")

// MemoryStore is the in-process Store used by tests and dry runs.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*ContentVersion
	selected map[string]string // termID\x00columnID -> versionID
	ratings  map[string][]Rating
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*ContentVersion),
		selected: make(map[string]string),
		ratings:  make(map[string][]Rating),
	}
}

func unitKey(termID, columnID string) string {
	return termID + "\x00" + columnID
}

func (s *MemoryStore) Save(ctx context.Context, v *ContentVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		return fmt.Errorf("version without id")
	}
	clone := *v
	s.byID[v.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, versionID string) (*ContentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[versionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *v
	return &clone, nil
}

func (s *MemoryStore) ListByUnit(ctx context.Context, termID, columnID string) ([]*ContentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ContentVersion
	for _, v := range s.byID {
		if v.TermID == termID && v.ColumnID == columnID {
			clone := *v
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Select(ctx context.Context, termID, columnID, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.byID[versionID]
	if !ok {
		return ErrNotFound
	}
	if v.TermID != termID || v.ColumnID != columnID {
		return fmt.Errorf("version %s does not belong to (%s, %s)", versionID, termID, columnID)
	}

	// Selecting a new version implicitly deselects the previous one.
	s.selected[unitKey(termID, columnID)] = versionID
	return nil
}

func (s *MemoryStore) Selected(ctx context.Context, termID, columnID string) (*ContentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.selected[unitKey(termID, columnID)]
	if !ok {
		return nil, nil
	}
	v, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *v
	return &clone, nil
}

func (s *MemoryStore) Rate(ctx context.Context, versionID string, stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("stars %d out of range 1-5", stars)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[versionID]; !ok {
		return ErrNotFound
	}
	s.ratings[versionID] = append(s.ratings[versionID], Rating{
		VersionID: versionID,
		Stars:     stars,
		RatedAt:   time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) Ratings(ctx context.Context, versionID string) ([]Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rating, len(s.ratings[versionID]))
	copy(out, s.ratings[versionID])
	return out, nil
}
