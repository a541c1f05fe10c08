package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adalundhe/glossforge/core/cache"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/terms"
	"github.com/adalundhe/glossforge/core/versions"
)

// Generator executes the generate step for a single (term, column, model)
// unit, writing through the content cache.
type Generator struct {
	deps Deps
}

// NewGenerator creates the generation engine.
func NewGenerator(deps Deps) *Generator {
	return &Generator{deps: deps}
}

// Generate produces (or retrieves) the phase=generated version for the
// unit. The bool reports whether the result came from the cache; cache
// hits never trigger a paid call.
func (g *Generator) Generate(ctx context.Context, term *terms.Term, columnID, modelID string, opts Options) (*versions.ContentVersion, bool, error) {
	triplet, err := g.resolveTriplet(columnID)
	if err != nil {
		return nil, false, err
	}

	key := cache.Key{
		ColumnID:      columnID,
		TermID:        term.ID,
		ModelID:       modelID,
		Stage:         cache.StageGenerate,
		PromptVersion: triplet.Version(),
		ContextHash:   cache.HashContext(term.Context),
	}

	if !opts.ForceRegenerate {
		if cached, ok := g.deps.Cache.Get(ctx, key); ok {
			return cached, true, nil
		}
	}

	// Fail closed before the paid call when the model has no price entry.
	if !g.deps.Pricing.Known(modelID) {
		return nil, false, errors.New(errors.KindConfiguration,
			fmt.Sprintf("model %s has no price entry", modelID))
	}

	prompt, err := triplet.Generative.Render(map[string]string{
		prompts.BindingTerm:    term.Name,
		prompts.BindingContext: term.Context,
	})
	if err != nil {
		return nil, false, errors.Wrap(errors.KindConfiguration,
			"render generative template for "+columnID, err)
	}

	resp, err := g.complete(ctx, modelID, prompt, opts)
	if err != nil {
		return nil, false, err
	}

	cost, err := g.deps.Pricing.Cost(modelID, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if err != nil {
		return nil, false, err
	}

	version := &versions.ContentVersion{
		ID:        uuid.NewString(),
		TermID:    term.ID,
		ColumnID:  columnID,
		ModelID:   modelID,
		Phase:     versions.PhaseGenerated,
		Content:   resp.Text,
		CostUSD:   cost,
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
		CreatedAt: time.Now().UTC(),
	}

	if err := g.deps.Store.Save(ctx, version); err != nil {
		return nil, false, fmt.Errorf("persist generated version: %w", err)
	}

	g.writeThrough(ctx, key, version)
	return version, false, nil
}

func (g *Generator) resolveTriplet(columnID string) (*prompts.Triplet, error) {
	if _, ok := g.deps.Registry.Get(columnID); !ok {
		return nil, errors.New(errors.KindConfiguration, "unknown column "+columnID)
	}
	triplet, ok := g.deps.Prompts.Get(columnID)
	if !ok {
		return nil, errors.New(errors.KindConfiguration, "no prompt triplet for column "+columnID)
	}
	return triplet, nil
}

func (g *Generator) complete(ctx context.Context, modelID, prompt string, opts Options) (*providers.Response, error) {
	callContext, cancel := callCtx(ctx, opts)
	defer cancel()

	return g.deps.Models.Complete(callContext, &providers.Request{
		Model:       modelID,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

// writeThrough persists the version into the cache. Best-effort: failures
// degrade to a recompute next time.
func (g *Generator) writeThrough(ctx context.Context, key cache.Key, v *versions.ContentVersion) {
	if err := g.deps.Cache.Put(ctx, key, v); err != nil {
		g.deps.logger().Warn("cache write failed",
			"logical", key.Logical(),
			"error", err,
		)
	}
}
