// Package cache provides the content-addressed store that shortcuts paid
// AI calls. Keys are deterministic hashes over everything that influences
// an artifact; a cache hit never triggers a provider call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key identifies one cacheable artifact. PromptVersion is the triplet's
// template stamp, so editing any prompt text changes every key minted for
// that column. ModelID is always part of the key; two models never share
// an entry even for identical inputs.
type Key struct {
	ColumnID      string
	TermID        string
	ModelID       string
	Stage         string
	PromptVersion string
	ContextHash   string
}

// HashContext produces the context component of a key. Empty context hashes
// to a stable sentinel so "no context" and "empty string context" collide
// intentionally.
func HashContext(context string) string {
	sum := sha256.Sum256([]byte(context))
	return hex.EncodeToString(sum[:])[:16]
}

// Hash returns the storage address for the key.
func (k Key) Hash() string {
	h := sha256.New()
	for _, part := range []string{k.ColumnID, k.TermID, k.ModelID, k.Stage, k.PromptVersion, k.ContextHash} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Logical returns the human-meaningful path used by Invalidate patterns:
// column/term/model/stage.
func (k Key) Logical() string {
	return strings.Join([]string{k.ColumnID, k.TermID, k.ModelID, k.Stage}, "/")
}
