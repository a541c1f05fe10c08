package batch

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/glossforge/core/cache"
	"github.com/adalundhe/glossforge/core/database"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/registry"
	"github.com/adalundhe/glossforge/core/terms"
	"github.com/adalundhe/glossforge/core/versions"
)

const testColumn = "introduction_definition_overview"

func evalJSON(composite float64) string {
	return fmt.Sprintf(`{"composite": %.1f, "dimensions": {"accuracy": {"score": %.1f, "feedback": "fine"}}}`, composite, composite)
}

func okResponder(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if strings.Contains(req.Prompt, "strict reviewer") {
		return &providers.Response{Text: evalJSON(8)}, nil
	}
	return &providers.Response{Text: "generated content"}, nil
}

type fixture struct {
	scheduler *Scheduler
	provider  *providers.StaticProvider
	units     []pipeline.Unit
}

func newFixture(t *testing.T, termCount int, respond providers.RespondFunc, models ...string) *fixture {
	t.Helper()

	if len(models) == 0 {
		models = []string{"fast-model"}
	}

	reg, err := registry.Default()
	require.NoError(t, err)

	promptStore, err := prompts.DefaultStore(reg, "")
	require.NoError(t, err)

	contentCache, err := cache.NewMemoryCache(cache.MemoryConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = contentCache.Close() })

	infos := make([]providers.ModelInfo, 0, len(models))
	for _, id := range models {
		infos = append(infos, providers.ModelInfo{ID: id, Name: id, InputPricePerM: 1000, OutputPricePerM: 1000})
	}
	provider := providers.NewStaticProvider("scripted", infos, respond)

	modelRegistry := providers.NewRegistry()
	require.NoError(t, modelRegistry.Register(providers.ProviderType("scripted"), provider))

	termStore := terms.NewMemoryStore(reg.IDs())
	units := make([]pipeline.Unit, 0, termCount)
	for i := 0; i < termCount; i++ {
		id := fmt.Sprintf("term-%02d", i)
		require.NoError(t, termStore.AddTerm(terms.Term{ID: id, Name: "Term " + id}))
		units = append(units, pipeline.Unit{TermID: id, ColumnID: testColumn, ModelID: models[0]})
	}

	scheduler := NewScheduler(pipeline.Deps{
		Registry: reg,
		Prompts:  promptStore,
		Cache:    contentCache,
		Models:   modelRegistry,
		Pricing:  modelRegistry.Pricing(),
		Store:    versions.NewMemoryStore(),
	}, termStore, 7, nil, nil)

	return &fixture{scheduler: scheduler, provider: provider, units: units}
}

func fastRetry(maxAttempts int) errors.RetryPolicy {
	return errors.RetryPolicy{
		MaxAttempts: maxAttempts,
		BackoffBase: time.Millisecond,
		Multiplier:  1.0,
	}
}

func TestBatchCompletesAllUnits(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5, okResponder)

	job := f.scheduler.Run(context.Background(), f.units, Config{
		Concurrency: 3,
		Retry:       fastRetry(1),
	})

	progress := job.Wait()
	assert.Equal(t, JobCompleted, progress.State)
	assert.Equal(t, 5, progress.Succeeded)
	assert.Zero(t, progress.Failed)
	assert.Zero(t, progress.Remaining)
	assert.Greater(t, progress.CostUSD, 0.0)
}

func TestBatchFailedUnitDoesNotHaltBatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	f := newFixture(t, 4, func(ctx context.Context, req *providers.Request) (*providers.Response, error) {
		if strings.Contains(req.Prompt, "term-01") && strings.Contains(req.Prompt, "write only the content") {
			return nil, errors.New(errors.KindProviderError, "scripted outage")
		}
		calls.Add(1)
		return okResponder(ctx, req)
	})

	job := f.scheduler.Run(context.Background(), f.units, Config{
		Concurrency: 2,
		Retry:       fastRetry(3),
	})

	progress := job.Wait()
	assert.Equal(t, JobCompleted, progress.State)
	assert.Equal(t, 3, progress.Succeeded)
	assert.Equal(t, 1, progress.Failed)

	failures := job.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "term-01", failures[0].Unit.TermID)
	assert.Equal(t, errors.KindProviderError, errors.KindOf(failures[0].Err))
}

func TestBatchRetriesRetryableFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	f := newFixture(t, 1, func(ctx context.Context, req *providers.Request) (*providers.Response, error) {
		if strings.Contains(req.Prompt, "write only the content") && attempts.Add(1) == 1 {
			return nil, errors.New(errors.KindRateLimited, "scripted rate limit")
		}
		return okResponder(ctx, req)
	})

	job := f.scheduler.Run(context.Background(), f.units, Config{
		Concurrency: 1,
		Retry:       fastRetry(3),
	})

	progress := job.Wait()
	assert.Equal(t, 1, progress.Succeeded)
	assert.Zero(t, progress.Failed)
	assert.EqualValues(t, 2, attempts.Load())
}

func TestBatchProviderErrorNotRetried(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	f := newFixture(t, 1, func(_ context.Context, _ *providers.Request) (*providers.Response, error) {
		attempts.Add(1)
		return nil, errors.New(errors.KindProviderError, "scripted outage")
	})

	job := f.scheduler.Run(context.Background(), f.units, Config{
		Concurrency: 1,
		Retry:       fastRetry(3),
	})

	progress := job.Wait()
	assert.Equal(t, 1, progress.Failed)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestBatchCostCeilingStopsAdmission(t *testing.T) {
	t.Parallel()

	// Prices are set high (1000 USD/M on both sides) so a single unit
	// blows through the ceiling.
	f := newFixture(t, 4, okResponder)

	job := f.scheduler.Run(context.Background(), f.units, Config{
		Concurrency:    1,
		CostCeilingUSD: 0.0001,
		Retry:          fastRetry(1),
	})

	progress := job.Wait()
	assert.Equal(t, JobCompleted, progress.State)
	assert.Equal(t, 1, progress.Succeeded)
	assert.Equal(t, 3, progress.Failed)

	for _, failure := range job.Failures() {
		assert.Equal(t, errors.KindBudgetExceeded, errors.KindOf(failure.Err))
	}
}

func TestBatchFallbackModel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, func(ctx context.Context, req *providers.Request) (*providers.Response, error) {
		if req.Model == "fast-model" {
			return nil, errors.New(errors.KindProviderError, "primary down")
		}
		return okResponder(ctx, req)
	}, "fast-model", "backup-model")

	job := f.scheduler.Run(context.Background(), f.units, Config{
		Concurrency:   1,
		Retry:         fastRetry(1),
		FallbackModel: "backup-model",
	})

	progress := job.Wait()
	assert.Equal(t, 1, progress.Succeeded)
	assert.Zero(t, progress.Failed)
}

func TestBatchCancellationDrainsInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	var sawCancelMidCall atomic.Bool

	f := newFixture(t, 5, func(ctx context.Context, req *providers.Request) (*providers.Response, error) {
		if once.CompareAndSwap(false, true) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				sawCancelMidCall.Store(true)
				return nil, ctx.Err()
			}
		}
		return okResponder(ctx, req)
	})

	job := f.scheduler.Run(context.Background(), f.units, Config{
		Concurrency: 1,
		Retry:       fastRetry(1),
	})

	// Cancel while the first unit's generation call is mid-flight, then
	// let that call return.
	<-started
	job.Cancel()
	close(release)

	progress := job.Wait()
	assert.Equal(t, JobCancelled, progress.State)
	assert.False(t, sawCancelMidCall.Load(), "in-flight adapter call observed cancellation")
	// The in-flight unit drained to completion; units behind it were
	// never admitted.
	assert.Equal(t, 1, progress.Succeeded)
	assert.Zero(t, progress.Failed)
	assert.Equal(t, 4, progress.Remaining)
}

func TestBatchSkipsCachedUnits(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3, okResponder)

	first := f.scheduler.Run(context.Background(), f.units, Config{Concurrency: 1, Retry: fastRetry(1)})
	progress := first.Wait()
	require.Equal(t, 3, progress.Succeeded)

	// Ristretto applies buffered writes asynchronously.
	time.Sleep(50 * time.Millisecond)

	second := f.scheduler.Run(context.Background(), f.units, Config{Concurrency: 1, Retry: fastRetry(1)})
	progress = second.Wait()
	assert.Equal(t, 3, progress.Skipped)
	assert.Zero(t, progress.CostUSD)
}

func TestBatchProgressEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, okResponder)

	job := f.scheduler.Run(context.Background(), f.units, Config{Concurrency: 1, Retry: fastRetry(1)})

	var last Progress
	for progress := range job.Events() {
		last = progress
	}
	assert.Equal(t, JobCompleted, last.State)
	assert.Equal(t, 2, last.Succeeded)
}

func TestJobPauseResume(t *testing.T) {
	t.Parallel()

	job := newJob("job-1", 2, NewCostLedger(0))
	job.start()
	require.Equal(t, JobRunning, job.Progress().State)

	job.Pause()
	assert.Equal(t, JobPaused, job.Progress().State)

	unblocked := make(chan struct{})
	go func() {
		job.awaitResume(context.Background())
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("awaitResume returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	job.Resume()
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("awaitResume did not return after resume")
	}

	job.record(&pipeline.Result{State: pipeline.StateDone})
	job.record(&pipeline.Result{State: pipeline.StateSkipped})
	job.finish(nil)

	progress := job.Wait()
	assert.Equal(t, JobCompleted, progress.State)
	assert.Equal(t, 1, progress.Succeeded)
	assert.Equal(t, 1, progress.Skipped)
	assert.Zero(t, progress.Remaining)
}

func TestJobCancelUnblocksPausedWorkers(t *testing.T) {
	t.Parallel()

	job := newJob("job-2", 1, NewCostLedger(0))
	job.start()
	job.Pause()

	stopped := make(chan bool, 1)
	go func() { stopped <- job.awaitResume(context.Background()) }()

	job.Cancel()
	select {
	case resumed := <-stopped:
		assert.False(t, resumed)
	case <-time.After(time.Second):
		t.Fatal("awaitResume did not return after cancel")
	}
	assert.Equal(t, JobCancelled, job.Progress().State)
}

func TestRateLimiterNoStartupBurst(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(30)
	require.NotNil(t, limiter)

	// A fresh limiter grants exactly one immediate call; everything else
	// waits for refill, so the first minute never exceeds the cap.
	granted := 0
	for i := 0; i < 40; i++ {
		allowed, _ := limiter.take()
		if allowed {
			granted++
		}
	}
	assert.Equal(t, 1, granted)

	allowed, waitTime := limiter.take()
	assert.False(t, allowed)
	assert.Greater(t, waitTime, time.Duration(0))
	// At 30 rpm one token accrues every two seconds.
	assert.LessOrEqual(t, waitTime, 2*time.Second+50*time.Millisecond)
}

func TestRateLimiterRefill(t *testing.T) {
	t.Parallel()

	// 6000 rpm refills a token every 10ms.
	limiter := NewRateLimiter(6000)
	require.NotNil(t, limiter)

	allowed, _ := limiter.take()
	require.True(t, allowed)
	allowed, _ = limiter.take()
	require.False(t, allowed)

	time.Sleep(30 * time.Millisecond)

	// Accrual is capped at one token, so the idle stretch buys exactly
	// one grant.
	allowed, _ = limiter.take()
	assert.True(t, allowed)
	allowed, _ = limiter.take()
	assert.False(t, allowed)
}

func TestRateLimiterUnlimited(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(0)
	assert.Nil(t, limiter)
	require.NoError(t, limiter.Wait(context.Background()))
}

func TestCostLedger(t *testing.T) {
	t.Parallel()

	ledger := NewCostLedger(1.00)
	require.NoError(t, ledger.Admit())

	ledger.Record(0.60)
	require.NoError(t, ledger.Admit())

	ledger.Record(0.50)
	err := ledger.Admit()
	require.Error(t, err)
	assert.Equal(t, errors.KindBudgetExceeded, errors.KindOf(err))
	assert.InDelta(t, 1.10, ledger.Spent(), 1e-9)

	unlimited := NewCostLedger(0)
	unlimited.Record(1e9)
	require.NoError(t, unlimited.Admit())
}

func TestSQLiteCheckpoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	manager := database.NewManager(t.TempDir())
	pool, err := manager.Open("pipeline", database.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.CloseAll() })

	store, err := NewSQLiteCheckpoints(ctx, pool)
	require.NoError(t, err)

	progress := Progress{
		JobID:     "job-1",
		State:     JobRunning,
		Succeeded: 10,
		Failed:    1,
		Skipped:   2,
		Remaining: 7,
		CostUSD:   1.25,
	}
	require.NoError(t, store.Save(ctx, progress))

	// Saves are idempotent overwrites.
	progress.Succeeded = 12
	progress.Remaining = 5
	progress.State = JobCompleted
	require.NoError(t, store.Save(ctx, progress))

	loaded, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, progress, *loaded)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = store.Load(ctx, "missing")
	require.Error(t, err)
}
