// Package pipeline implements the generate → evaluate → improve engines and
// the per-unit orchestrator that sequences them.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/adalundhe/glossforge/core/cache"
	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/registry"
	"github.com/adalundhe/glossforge/core/versions"
)

// DefaultQualityThreshold is the composite score at which content is
// accepted without an improvement pass.
const DefaultQualityThreshold = 7.0

// Unit identifies one (term, column, model) piece of work.
type Unit struct {
	TermID   string `json:"term_id"`
	ColumnID string `json:"column_id"`
	ModelID  string `json:"model_id"`
}

// State tracks a unit through the orchestrator.
type State string

const (
	StatePending    State = "pending"
	StateGenerating State = "generating"
	StateGenerated  State = "generated"
	StateEvaluating State = "evaluating"
	StateEvaluated  State = "evaluated"
	StateImproving  State = "improving"
	StateImproved   State = "improved"
	StateDone       State = "done"
	StateFailed     State = "failed"
	StateSkipped    State = "skipped"
)

// Terminal reports whether the state ends a unit's run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateSkipped
}

// Options tune one run. The zero value means: use the configured quality
// threshold, respect the cache, no per-call override.
type Options struct {
	// ForceRegenerate bypasses cache reads; writes still happen so the
	// fresh artifacts supersede the stale entries.
	ForceRegenerate bool

	// MaxTokens overrides the provider default when positive.
	MaxTokens int

	// Temperature overrides the provider default when set.
	Temperature *float64

	// CallTimeout caps each adapter call. Zero means no per-call cap
	// beyond the caller's context.
	CallTimeout time.Duration
}

// Result is a unit's single outcome: exactly one of done, failed, or
// skipped.
type Result struct {
	Unit    Unit
	State   State
	Version *versions.ContentVersion

	// CostUSD is the total spent by this run across all phases. Cache
	// hits cost nothing.
	CostUSD float64

	// CacheHits counts stages short-circuited by the cache.
	CacheHits int

	// Err carries the typed failure reason when State is failed.
	Err error
}

// Completer is the slice of the provider registry the engines call.
type Completer interface {
	Complete(ctx context.Context, req *providers.Request) (*providers.Response, error)
}

// Deps bundles the collaborators shared by all three engines.
type Deps struct {
	Registry *registry.Registry
	Prompts  *prompts.Store
	Cache    cache.ContentCache
	Models   Completer
	Pricing  *providers.Pricing
	Store    versions.Store
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// callCtx applies the per-call timeout when one is set.
func callCtx(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, opts.CallTimeout)
	}
	return ctx, func() {}
}
