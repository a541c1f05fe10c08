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

// Improver runs the single improvement pass over a low-scoring evaluated
// version. It is the only creator of phase=improved versions.
type Improver struct {
	deps Deps
}

// NewImprover creates the improvement engine.
func NewImprover(deps Deps) *Improver {
	return &Improver{deps: deps}
}

// Improve revises the artifact using its evaluation feedback. The produced
// version references the evaluated version it was derived from. At most one
// improvement pass happens per triplet run; re-evaluating the result is a
// separate, explicit run.
func (i *Improver) Improve(ctx context.Context, term *terms.Term, evaluated *versions.ContentVersion, opts Options) (*versions.ContentVersion, bool, error) {
	if evaluated.Phase != versions.PhaseEvaluated {
		return nil, false, errors.New(errors.KindConfiguration,
			fmt.Sprintf("improvement requires an evaluated version, got phase %s", evaluated.Phase))
	}
	if evaluated.Feedback == nil || evaluated.Feedback.Inconclusive {
		return nil, false, errors.New(errors.KindEvaluationInconclusive,
			"cannot improve without conclusive evaluation feedback")
	}

	triplet, ok := i.deps.Prompts.Get(evaluated.ColumnID)
	if !ok {
		return nil, false, errors.New(errors.KindConfiguration, "no prompt triplet for column "+evaluated.ColumnID)
	}

	feedback := FormatFeedback(evaluated.Feedback)

	key := cache.Key{
		ColumnID:      evaluated.ColumnID,
		TermID:        term.ID,
		ModelID:       evaluated.ModelID,
		Stage:         cache.StageImprove,
		PromptVersion: triplet.Version(),
		ContextHash:   cache.HashContext(evaluated.Content + "\x00" + feedback),
	}

	if !opts.ForceRegenerate {
		if cached, ok := i.deps.Cache.Get(ctx, key); ok {
			return cached, true, nil
		}
	}

	prompt, err := triplet.Improvement.Render(map[string]string{
		prompts.BindingTerm:     term.Name,
		prompts.BindingContent:  evaluated.Content,
		prompts.BindingFeedback: feedback,
	})
	if err != nil {
		return nil, false, errors.Wrap(errors.KindConfiguration,
			"render improvement template for "+evaluated.ColumnID, err)
	}

	callContext, cancel := callCtx(ctx, opts)
	defer cancel()

	resp, err := i.deps.Models.Complete(callContext, &providers.Request{
		Model:       evaluated.ModelID,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, false, err
	}

	cost, err := i.deps.Pricing.Cost(evaluated.ModelID, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if err != nil {
		return nil, false, err
	}

	version := &versions.ContentVersion{
		ID:          uuid.NewString(),
		TermID:      term.ID,
		ColumnID:    evaluated.ColumnID,
		ModelID:     evaluated.ModelID,
		Phase:       versions.PhaseImproved,
		Content:     resp.Text,
		CostUSD:     cost,
		TokensIn:    resp.Usage.InputTokens,
		TokensOut:   resp.Usage.OutputTokens,
		DerivedFrom: evaluated.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := i.deps.Store.Save(ctx, version); err != nil {
		return nil, false, fmt.Errorf("persist improved version: %w", err)
	}

	if err := i.deps.Cache.Put(ctx, key, version); err != nil {
		i.deps.logger().Warn("cache write failed",
			"logical", key.Logical(),
			"error", err,
		)
	}

	return version, false, nil
}
