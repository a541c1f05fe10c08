package compare

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/glossforge/core/cache"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/registry"
	"github.com/adalundhe/glossforge/core/terms"
	"github.com/adalundhe/glossforge/core/versions"
)

const (
	testColumn = "introduction_definition_overview"
	testTerm   = "gradient-descent"
)

func evalJSON(composite float64) string {
	return fmt.Sprintf(`{"composite": %.1f, "dimensions": {"accuracy": {"score": %.1f, "feedback": "fine"}}}`, composite, composite)
}

// newComparator builds a comparator over scripted models. The broken set
// lists models whose calls always fail.
func newComparator(t *testing.T, modelIDs []string, broken map[string]bool) (*Comparator, *providers.StaticProvider) {
	t.Helper()

	reg, err := registry.Default()
	require.NoError(t, err)

	promptStore, err := prompts.DefaultStore(reg, "")
	require.NoError(t, err)

	contentCache, err := cache.NewMemoryCache(cache.MemoryConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = contentCache.Close() })

	models := make([]providers.ModelInfo, 0, len(modelIDs))
	for _, id := range modelIDs {
		models = append(models, providers.ModelInfo{ID: id, Name: id, InputPricePerM: 1, OutputPricePerM: 5})
	}

	provider := providers.NewStaticProvider("scripted", models, func(_ context.Context, req *providers.Request) (*providers.Response, error) {
		if broken[req.Model] {
			return nil, errors.New(errors.KindProviderError, "scripted outage for "+req.Model)
		}
		if strings.Contains(req.Prompt, "strict reviewer") {
			return &providers.Response{Text: evalJSON(8)}, nil
		}
		return &providers.Response{Text: "content from " + req.Model}, nil
	})

	modelRegistry := providers.NewRegistry()
	require.NoError(t, modelRegistry.Register(providers.ProviderType("scripted"), provider))

	versionStore := versions.NewMemoryStore()
	termStore := terms.NewMemoryStore(reg.IDs())
	require.NoError(t, termStore.AddTerm(terms.Term{ID: testTerm, Name: "Gradient Descent"}))

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Registry: reg,
		Prompts:  promptStore,
		Cache:    contentCache,
		Models:   modelRegistry,
		Pricing:  modelRegistry.Pricing(),
		Store:    versionStore,
	}, termStore, 7)

	return New(orchestrator, versionStore, nil), provider
}

func TestCompareFansOutPerModel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	comparator, _ := newComparator(t, []string{"model-a", "model-b"}, nil)

	runs, err := comparator.Compare(ctx, testTerm, testColumn, []string{"model-a", "model-b"}, pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "model-a", runs[0].ModelID)
	assert.Equal(t, "model-b", runs[1].ModelID)
	for _, run := range runs {
		require.NoError(t, run.Result.Err)
		assert.Equal(t, pipeline.StateDone, run.Result.State)
		require.NotNil(t, run.Result.Version)
		assert.Equal(t, run.ModelID, run.Result.Version.ModelID)
		assert.Equal(t, "content from "+run.ModelID, run.Result.Version.Content)
	}
}

func TestCompareModelIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	comparator, provider := newComparator(t, []string{"model-a", "model-b"}, nil)

	_, err := comparator.Compare(ctx, testTerm, testColumn, []string{"model-a", "model-b"}, pipeline.Options{})
	require.NoError(t, err)

	// Identical term/column/prompt inputs, yet neither model served the
	// other's cached artifact: two generate + two evaluate calls.
	assert.Equal(t, 4, provider.CallCount())

	all, err := comparator.Versions(ctx, testTerm, testColumn)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCompareFailedModelDoesNotAbortOthers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	comparator, _ := newComparator(t, []string{"model-a", "model-b"}, map[string]bool{"model-b": true})

	runs, err := comparator.Compare(ctx, testTerm, testColumn, []string{"model-a", "model-b"}, pipeline.Options{})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, runs[0].Result.State)
	assert.Equal(t, pipeline.StateFailed, runs[1].Result.State)
	assert.Equal(t, errors.KindProviderError, errors.KindOf(runs[1].Result.Err))
}

func TestCompareRequiresModels(t *testing.T) {
	t.Parallel()

	comparator, _ := newComparator(t, []string{"model-a"}, nil)

	_, err := comparator.Compare(context.Background(), testTerm, testColumn, nil, pipeline.Options{})
	require.Error(t, err)
}

func TestSelectAndRateDelegation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	comparator, _ := newComparator(t, []string{"model-a", "model-b"}, nil)

	runs, err := comparator.Compare(ctx, testTerm, testColumn, []string{"model-a", "model-b"}, pipeline.Options{})
	require.NoError(t, err)

	first := runs[0].Result.Version
	second := runs[1].Result.Version

	require.NoError(t, comparator.Select(ctx, testTerm, testColumn, first.ID))
	selected, err := comparator.Selected(ctx, testTerm, testColumn)
	require.NoError(t, err)
	assert.Equal(t, first.ID, selected.ID)

	// Selecting the other version implicitly deselects the first.
	require.NoError(t, comparator.Select(ctx, testTerm, testColumn, second.ID))
	selected, err = comparator.Selected(ctx, testTerm, testColumn)
	require.NoError(t, err)
	assert.Equal(t, second.ID, selected.ID)

	require.NoError(t, comparator.Rate(ctx, second.ID, 4))
	assert.Error(t, comparator.Rate(ctx, second.ID, 9))
}
