package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adalundhe/glossforge/core/cache"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/terms"
	"github.com/adalundhe/glossforge/core/versions"
)

// Evaluator scores generated (or improved) artifacts across the fixed
// dimension set and produces phase=evaluated versions.
type Evaluator struct {
	deps Deps
}

// NewEvaluator creates the quality evaluator.
func NewEvaluator(deps Deps) *Evaluator {
	return &Evaluator{deps: deps}
}

// Evaluate scores the artifact. A parse failure of the evaluator's own
// output yields an inconclusive evaluation: the version carries no score,
// its feedback is flagged, and it is neither accepted nor auto-improved.
func (e *Evaluator) Evaluate(ctx context.Context, term *terms.Term, artifact *versions.ContentVersion, opts Options) (*versions.ContentVersion, bool, error) {
	triplet, ok := e.deps.Prompts.Get(artifact.ColumnID)
	if !ok {
		return nil, false, errors.New(errors.KindConfiguration, "no prompt triplet for column "+artifact.ColumnID)
	}

	// The evaluated content is the key's input context: re-evaluating the
	// same text is always a cache hit, different text never is.
	key := cache.Key{
		ColumnID:      artifact.ColumnID,
		TermID:        term.ID,
		ModelID:       artifact.ModelID,
		Stage:         cache.StageEvaluate,
		PromptVersion: triplet.Version(),
		ContextHash:   cache.HashContext(artifact.Content),
	}

	if !opts.ForceRegenerate {
		if cached, ok := e.deps.Cache.Get(ctx, key); ok {
			return cached, true, nil
		}
	}

	prompt, err := triplet.Evaluative.Render(map[string]string{
		prompts.BindingTerm:    term.Name,
		prompts.BindingContent: artifact.Content,
	})
	if err != nil {
		return nil, false, errors.Wrap(errors.KindConfiguration,
			"render evaluative template for "+artifact.ColumnID, err)
	}

	callContext, cancel := callCtx(ctx, opts)
	defer cancel()

	resp, err := e.deps.Models.Complete(callContext, &providers.Request{
		Model:       artifact.ModelID,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, false, err
	}

	cost, err := e.deps.Pricing.Cost(artifact.ModelID, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if err != nil {
		return nil, false, err
	}

	evaluation, parseErr := ParseEvaluation(resp.Text)
	if parseErr != nil {
		e.deps.logger().Warn("evaluation output unparseable, flagging for review",
			"term", term.ID,
			"column", artifact.ColumnID,
			"model", artifact.ModelID,
			"error", parseErr,
		)
		evaluation = &versions.Evaluation{Inconclusive: true}
	}

	version := &versions.ContentVersion{
		ID:          uuid.NewString(),
		TermID:      term.ID,
		ColumnID:    artifact.ColumnID,
		ModelID:     artifact.ModelID,
		Phase:       versions.PhaseEvaluated,
		Content:     artifact.Content,
		Feedback:    evaluation,
		CostUSD:     cost,
		TokensIn:    resp.Usage.InputTokens,
		TokensOut:   resp.Usage.OutputTokens,
		DerivedFrom: artifact.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if !evaluation.Inconclusive {
		score := evaluation.Composite
		version.QualityScore = &score
	}

	if err := e.deps.Store.Save(ctx, version); err != nil {
		return nil, false, fmt.Errorf("persist evaluated version: %w", err)
	}

	// Inconclusive evaluations are never cached: the next run should
	// re-ask rather than replay an unusable verdict.
	if !evaluation.Inconclusive {
		if err := e.deps.Cache.Put(ctx, key, version); err != nil {
			e.deps.logger().Warn("cache write failed",
				"logical", key.Logical(),
				"error", err,
			)
		}
	}

	return version, false, nil
}

// evaluationPayload is the exact shape the evaluative prompt demands.
type evaluationPayload struct {
	Composite  *float64                           `json:"composite"`
	Dimensions map[string]versions.DimensionScore `json:"dimensions"`
}

// ParseEvaluation parses the model's scoring output. The payload must be a
// JSON object with a numeric composite and a dimensions map; scores clamp
// to [0,10]. Surrounding markdown fences are tolerated, anything else is a
// parse failure.
func ParseEvaluation(text string) (*versions.Evaluation, error) {
	raw := stripFences(strings.TrimSpace(text))

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("evaluation payload is not valid JSON: %w", err)
	}
	if payload.Composite == nil {
		return nil, fmt.Errorf("evaluation payload missing composite score")
	}

	evaluation := &versions.Evaluation{
		Composite:  clampScore(*payload.Composite),
		Dimensions: make(map[string]versions.DimensionScore, len(payload.Dimensions)),
	}
	for name, dim := range payload.Dimensions {
		dim.Score = clampScore(dim.Score)
		evaluation.Dimensions[name] = dim
	}
	return evaluation, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// stripFences unwraps a single markdown code fence around the payload.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	trimmed := strings.TrimPrefix(text, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// FormatFeedback renders an evaluation as the reviewer-notes text the
// improvement template consumes.
func FormatFeedback(evaluation *versions.Evaluation) string {
	if evaluation == nil {
		return ""
	}

	names := make([]string, 0, len(evaluation.Dimensions))
	for name := range evaluation.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Composite score: %.1f/10\n", evaluation.Composite)
	for _, name := range names {
		dim := evaluation.Dimensions[name]
		fmt.Fprintf(&b, "- %s (%.1f/10): %s\n", name, dim.Score, dim.Feedback)
	}
	return b.String()
}
