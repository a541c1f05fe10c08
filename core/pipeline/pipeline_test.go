package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/glossforge/core/cache"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/registry"
	"github.com/adalundhe/glossforge/core/terms"
	"github.com/adalundhe/glossforge/core/versions"
)

const (
	testModel  = "fast-model"
	testColumn = "introduction_definition_overview"
	testTerm   = "gradient-descent"
)

// harness wires the engines over in-memory collaborators and a scripted
// model.
type harness struct {
	deps     Deps
	provider *providers.StaticProvider
	cache    *cache.MemoryCache
	store    *versions.MemoryStore
	terms    *terms.MemoryStore
}

// evalJSON builds a conclusive evaluation payload at the given composite.
func evalJSON(composite float64) string {
	dims := make([]string, 0, len(prompts.DimensionNames()))
	for _, name := range prompts.DimensionNames() {
		dims = append(dims, fmt.Sprintf("%q: {\"score\": %.1f, \"feedback\": \"fine\"}", name, composite))
	}
	return fmt.Sprintf("{\"composite\": %.1f, \"dimensions\": {%s}}", composite, strings.Join(dims, ", "))
}

// scriptedResponder answers evaluation prompts with the payload and every
// other prompt with canned prose.
func scriptedResponder(composite float64) providers.RespondFunc {
	return func(_ context.Context, req *providers.Request) (*providers.Response, error) {
		if strings.Contains(req.Prompt, "strict reviewer") {
			return &providers.Response{Text: evalJSON(composite)}, nil
		}
		if strings.Contains(req.Prompt, "reviewer raised these issues") {
			return &providers.Response{Text: "An improved definition of the term."}, nil
		}
		return &providers.Response{Text: "A generated definition of the term."}, nil
	}
}

func newHarness(t *testing.T, respond providers.RespondFunc) *harness {
	t.Helper()

	reg, err := registry.Default()
	require.NoError(t, err)

	promptStore, err := prompts.DefaultStore(reg, "")
	require.NoError(t, err)

	contentCache, err := cache.NewMemoryCache(cache.MemoryConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = contentCache.Close() })

	provider := providers.NewStaticProvider("scripted", []providers.ModelInfo{
		{ID: testModel, Name: "Fast Model", InputPricePerM: 1.00, OutputPricePerM: 5.00},
	}, respond)

	modelRegistry := providers.NewRegistry()
	require.NoError(t, modelRegistry.Register(providers.ProviderType("scripted"), provider))

	versionStore := versions.NewMemoryStore()

	termStore := terms.NewMemoryStore(reg.IDs())
	require.NoError(t, termStore.AddTerm(terms.Term{ID: testTerm, Name: "Gradient Descent"}))

	return &harness{
		deps: Deps{
			Registry: reg,
			Prompts:  promptStore,
			Cache:    contentCache,
			Models:   modelRegistry,
			Pricing:  modelRegistry.Pricing(),
			Store:    versionStore,
		},
		provider: provider,
		cache:    contentCache,
		store:    versionStore,
		terms:    termStore,
	}
}

func (h *harness) orchestrator(threshold float64) *Orchestrator {
	return NewOrchestrator(h.deps, h.terms, threshold)
}

func TestGeneratorCacheIdempotence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(8))
	gen := NewGenerator(h.deps)

	term, err := h.terms.GetTerm(ctx, testTerm)
	require.NoError(t, err)

	first, cached, err := gen.Generate(ctx, term, testColumn, testModel, Options{})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, versions.PhaseGenerated, first.Phase)
	assert.Greater(t, first.CostUSD, 0.0)

	h.cache.Wait()

	second, cached, err := gen.Generate(ctx, term, testColumn, testModel, Options{})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.provider.CallCount())
}

func TestGeneratorForceRegenerateBypassesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(8))
	gen := NewGenerator(h.deps)

	term, err := h.terms.GetTerm(ctx, testTerm)
	require.NoError(t, err)

	_, _, err = gen.Generate(ctx, term, testColumn, testModel, Options{})
	require.NoError(t, err)
	h.cache.Wait()

	_, cached, err := gen.Generate(ctx, term, testColumn, testModel, Options{ForceRegenerate: true})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, h.provider.CallCount())
}

func TestGeneratorUnknownColumn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(8))
	gen := NewGenerator(h.deps)

	term, err := h.terms.GetTerm(ctx, testTerm)
	require.NoError(t, err)

	_, _, err = gen.Generate(ctx, term, "no_such_column", testModel, Options{})
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	assert.Zero(t, h.provider.CallCount())
}

func TestGeneratorUnpricedModelFailsClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(8))
	gen := NewGenerator(h.deps)

	term, err := h.terms.GetTerm(ctx, testTerm)
	require.NoError(t, err)

	_, _, err = gen.Generate(ctx, term, testColumn, "unpriced-model", Options{})
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	// Rejected before any paid call was made.
	assert.Zero(t, h.provider.CallCount())
}

func TestParseEvaluation(t *testing.T) {
	t.Parallel()

	t.Run("valid payload", func(t *testing.T) {
		t.Parallel()

		evaluation, err := ParseEvaluation(evalJSON(7.5))
		require.NoError(t, err)
		assert.InDelta(t, 7.5, evaluation.Composite, 1e-9)
		assert.Len(t, evaluation.Dimensions, len(prompts.DimensionNames()))
		assert.False(t, evaluation.Inconclusive)
	})

	t.Run("fenced payload", func(t *testing.T) {
		t.Parallel()

		evaluation, err := ParseEvaluation("```json\n" + evalJSON(6) + "\n```")
		require.NoError(t, err)
		assert.InDelta(t, 6.0, evaluation.Composite, 1e-9)
	})

	t.Run("scores clamp to range", func(t *testing.T) {
		t.Parallel()

		evaluation, err := ParseEvaluation(`{"composite": 14, "dimensions": {"accuracy": {"score": -3, "feedback": "x"}}}`)
		require.NoError(t, err)
		assert.Equal(t, 10.0, evaluation.Composite)
		assert.Equal(t, 0.0, evaluation.Dimensions["accuracy"].Score)
	})

	t.Run("prose is a parse failure", func(t *testing.T) {
		t.Parallel()

		_, err := ParseEvaluation("I would rate this a solid 8 out of 10.")
		require.Error(t, err)
	})

	t.Run("missing composite is a parse failure", func(t *testing.T) {
		t.Parallel()

		_, err := ParseEvaluation(`{"dimensions": {}}`)
		require.Error(t, err)
	})
}

func TestOrchestratorAcceptedAboveThreshold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(8))

	result := h.orchestrator(7).Run(ctx, Unit{TermID: testTerm, ColumnID: testColumn, ModelID: testModel}, Options{})

	require.NoError(t, result.Err)
	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Version)
	assert.Equal(t, versions.PhaseEvaluated, result.Version.Phase)
	require.NotNil(t, result.Version.QualityScore)
	assert.InDelta(t, 8.0, *result.Version.QualityScore, 1e-9)

	// Generate + evaluate, no improvement pass.
	assert.Equal(t, 2, h.provider.CallCount())
}

func TestOrchestratorImprovesBelowThreshold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(5))

	result := h.orchestrator(7).Run(ctx, Unit{TermID: testTerm, ColumnID: testColumn, ModelID: testModel}, Options{})

	require.NoError(t, result.Err)
	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Version)
	assert.Equal(t, versions.PhaseImproved, result.Version.Phase)
	assert.Equal(t, 3, h.provider.CallCount())

	// The improved version references the evaluated version it revised.
	evaluated, err := h.store.Get(ctx, result.Version.DerivedFrom)
	require.NoError(t, err)
	assert.Equal(t, versions.PhaseEvaluated, evaluated.Phase)
	require.NotNil(t, evaluated.QualityScore)
	assert.InDelta(t, 5.0, *evaluated.QualityScore, 1e-9)
}

func TestOrchestratorSkipsFullyCachedUnit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(8))
	orchestrator := h.orchestrator(7)
	unit := Unit{TermID: testTerm, ColumnID: testColumn, ModelID: testModel}

	first := orchestrator.Run(ctx, unit, Options{})
	require.NoError(t, first.Err)
	assert.Equal(t, StateDone, first.State)

	h.cache.Wait()

	second := orchestrator.Run(ctx, unit, Options{})
	require.NoError(t, second.Err)
	assert.Equal(t, StateSkipped, second.State)
	assert.Equal(t, 2, second.CacheHits)
	assert.Zero(t, second.CostUSD)
	assert.Equal(t, 2, h.provider.CallCount())
}

func TestOrchestratorInconclusiveEvaluationFlagged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, func(_ context.Context, req *providers.Request) (*providers.Response, error) {
		if strings.Contains(req.Prompt, "strict reviewer") {
			return &providers.Response{Text: "it's pretty good I guess"}, nil
		}
		return &providers.Response{Text: "A generated definition."}, nil
	})

	result := h.orchestrator(7).Run(ctx, Unit{TermID: testTerm, ColumnID: testColumn, ModelID: testModel}, Options{})

	require.NoError(t, result.Err)
	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Version)
	assert.Nil(t, result.Version.QualityScore)
	require.NotNil(t, result.Version.Feedback)
	assert.True(t, result.Version.Feedback.Inconclusive)
	assert.False(t, result.Version.Accepted(0))

	// No improvement pass without conclusive feedback.
	assert.Equal(t, 2, h.provider.CallCount())
}

func TestOrchestratorProviderFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, func(_ context.Context, _ *providers.Request) (*providers.Response, error) {
		return nil, errors.New(errors.KindProviderError, "scripted outage")
	})

	result := h.orchestrator(7).Run(ctx, Unit{TermID: testTerm, ColumnID: testColumn, ModelID: testModel}, Options{})

	assert.Equal(t, StateFailed, result.State)
	require.Error(t, result.Err)
	assert.Equal(t, errors.KindProviderError, errors.KindOf(result.Err))
}

func TestOrchestratorUnknownTerm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, scriptedResponder(8))

	result := h.orchestrator(7).Run(ctx, Unit{TermID: "missing", ColumnID: testColumn, ModelID: testModel}, Options{})

	assert.Equal(t, StateFailed, result.State)
	assert.ErrorIs(t, result.Err, terms.ErrTermNotFound)
}

func TestFormatFeedback(t *testing.T) {
	t.Parallel()

	out := FormatFeedback(&versions.Evaluation{
		Composite: 5.0,
		Dimensions: map[string]versions.DimensionScore{
			"clarity":  {Score: 4, Feedback: "too dense"},
			"accuracy": {Score: 6, Feedback: "mostly right"},
		},
	})

	assert.Contains(t, out, "Composite score: 5.0/10")
	// Dimensions render in stable sorted order.
	assert.Less(t, strings.Index(out, "accuracy"), strings.Index(out, "clarity"))
}
