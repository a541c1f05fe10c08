package registry

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Registry is the validated, immutable set of all content columns.
type Registry struct {
	columns []Column
	byID    map[string]Column
}

// New builds a Registry from column definitions and validates the set as a
// whole. Definition errors are configuration errors: they surface here at
// startup, never at request time.
func New(columns []Column) (*Registry, error) {
	byID := make(map[string]Column, len(columns))
	orders := make(map[int]string, len(columns))

	for _, col := range columns {
		if err := col.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[col.ID]; dup {
			return nil, fmt.Errorf("duplicate column id %q", col.ID)
		}
		if holder, dup := orders[col.DisplayOrder]; dup {
			return nil, fmt.Errorf("columns %q and %q share display order %d", holder, col.ID, col.DisplayOrder)
		}
		byID[col.ID] = col
		orders[col.DisplayOrder] = col.ID
	}

	// Display orders must be a contiguous permutation of 1..N.
	for want := 1; want <= len(columns); want++ {
		if _, ok := orders[want]; !ok {
			return nil, fmt.Errorf("display orders not contiguous: missing %d of %d", want, len(columns))
		}
	}

	sorted := make([]Column, len(columns))
	copy(sorted, columns)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})

	return &Registry{columns: sorted, byID: byID}, nil
}

// Get returns the column with the given id.
func (r *Registry) Get(id string) (Column, bool) {
	col, ok := r.byID[id]
	return col, ok
}

// Columns returns all columns in display order.
func (r *Registry) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// IDs returns all column ids in display order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.columns))
	for i, col := range r.columns {
		ids[i] = col.ID
	}
	return ids
}

// Section returns the columns belonging to a section, in display order.
func (r *Registry) Section(sectionID string) []Column {
	var out []Column
	for _, col := range r.columns {
		if col.SectionID == sectionID {
			out = append(out, col)
		}
	}
	return out
}

// Sections returns the distinct section ids in first-appearance order.
func (r *Registry) Sections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, col := range r.columns {
		if !seen[col.SectionID] {
			seen[col.SectionID] = true
			out = append(out, col.SectionID)
		}
	}
	return out
}

// ByCategory returns the columns of one category, in display order.
func (r *Registry) ByCategory(cat Category) []Column {
	var out []Column
	for _, col := range r.columns {
		if col.Category == cat {
			out = append(out, col)
		}
	}
	return out
}

// Len returns the number of columns.
func (r *Registry) Len() int {
	return len(r.columns)
}

// columnsFile is the on-disk YAML shape for a full column schema.
type columnsFile struct {
	Columns []Column `yaml:"columns"`
}

// Parse builds a Registry from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var file columnsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse columns: %w", err)
	}
	return New(file.Columns)
}
