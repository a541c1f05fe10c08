// Package terms is the read-only boundary to the glossary term store. The
// pipeline consumes term identity and optional context; it never writes
// terms.
package terms

import (
	"context"
	"fmt"

	"github.com/adalundhe/glossforge/core/errors"
)

// Term is the subject of generation. Context is optional supporting text
// substituted into prompt templates and hashed into cache keys.
type Term struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// Validate checks the term carries the two required fields.
func (t *Term) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("term id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("term %s: name is required", t.ID)
	}
	return nil
}

// ErrTermNotFound marks lookups for unknown term IDs.
var ErrTermNotFound = errors.New(errors.KindConfiguration, "term not found")

// Store is the external collaborator interface over the term store.
//
// ListPendingColumns reports the column IDs for which the term has no
// accepted content yet, so batches can skip already-finished cells unless
// forced.
type Store interface {
	GetTerm(ctx context.Context, termID string) (*Term, error)
	ListPendingColumns(ctx context.Context, termID string) ([]string, error)
}
