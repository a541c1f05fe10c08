package cache

import (
	"context"

	"github.com/adalundhe/glossforge/core/versions"
)

// Stage names distinguish cached artifacts per pipeline step.
const (
	StageGenerate = "generate"
	StageEvaluate = "evaluate"
	StageImprove  = "improve"
)

// ContentCache is the shared cache contract. Implementations must be safe
// for concurrent use; writes are idempotent so rewriting a key with
// equivalent content is harmless. Put failures must degrade, not fail the
// unit of work — the engines log and recompute next time.
type ContentCache interface {
	// Get returns the cached version for the key, or (nil, false).
	Get(ctx context.Context, key Key) (*versions.ContentVersion, bool)

	// Put stores a version under the key. Best-effort.
	Put(ctx context.Context, key Key, v *versions.ContentVersion) error

	// Invalidate removes entries whose logical path (column/term/model/stage)
	// matches the glob pattern. Returns the number removed.
	Invalidate(ctx context.Context, pattern string) (int, error)

	// Close releases resources.
	Close() error
}
