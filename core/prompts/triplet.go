package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Binding names shared across the default templates.
const (
	BindingTerm     = "term"
	BindingContext  = "context"
	BindingContent  = "content"
	BindingFeedback = "feedback"
)

// Triplet bundles the three prompt templates bound to one column:
// generate, evaluate, improve.
type Triplet struct {
	ColumnID    string
	Generative  *Template
	Evaluative  *Template
	Improvement *Template
}

// NewTriplet builds a triplet and enforces the bindings each stage needs.
// The generative template must consume the term; the evaluative and
// improvement templates must consume the artifact they judge or revise.
func NewTriplet(columnID string, generative, evaluative, improvement *Template) (*Triplet, error) {
	if columnID == "" {
		return nil, fmt.Errorf("triplet without column id")
	}
	if generative == nil || evaluative == nil || improvement == nil {
		return nil, fmt.Errorf("column %q: triplet requires all three templates", columnID)
	}

	if !hasBinding(generative, BindingTerm) {
		return nil, fmt.Errorf("column %q: generative template must bind {{%s}}", columnID, BindingTerm)
	}
	if !hasBinding(evaluative, BindingContent) {
		return nil, fmt.Errorf("column %q: evaluative template must bind {{%s}}", columnID, BindingContent)
	}
	if !hasBinding(improvement, BindingContent) || !hasBinding(improvement, BindingFeedback) {
		return nil, fmt.Errorf("column %q: improvement template must bind {{%s}} and {{%s}}",
			columnID, BindingContent, BindingFeedback)
	}

	return &Triplet{
		ColumnID:    columnID,
		Generative:  generative,
		Evaluative:  evaluative,
		Improvement: improvement,
	}, nil
}

func hasBinding(t *Template, name string) bool {
	for _, req := range t.required {
		if req == name {
			return true
		}
	}
	return false
}

// Version stamps the triplet's template text. The stamp is part of every
// cache key, so editing any of the three templates invalidates previously
// cached artifacts for the column.
func (t *Triplet) Version() string {
	h := sha256.New()
	h.Write([]byte(t.Generative.Text()))
	h.Write([]byte{0})
	h.Write([]byte(t.Evaluative.Text()))
	h.Write([]byte{0})
	h.Write([]byte(t.Improvement.Text()))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
