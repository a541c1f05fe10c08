// Package batch drives the triplet pipeline across large unit sets under
// concurrency, rate, cost, and retry limits.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/terms"
)

// DefaultConcurrency matches the worker count the pipeline was sized for
// in production runs.
const DefaultConcurrency = 25

// Config bounds one batch run.
type Config struct {
	// Concurrency is the worker pool size.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// RequestsPerMinute caps adapter calls across the whole batch.
	// Zero means uncapped.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// CostCeilingUSD stops admission of new units once reached. Zero
	// means unlimited.
	CostCeilingUSD float64 `json:"cost_ceiling_usd" yaml:"cost_ceiling_usd"`

	// Retry governs per-unit retries of retryable failures.
	Retry errors.RetryPolicy `json:"retry" yaml:"retry"`

	// ForceRegenerate bypasses cache reads for every unit.
	ForceRegenerate bool `json:"force_regenerate" yaml:"force_regenerate"`

	// FallbackModel, when set, is tried once after a unit exhausts its
	// retries on its primary model.
	FallbackModel string `json:"fallback_model,omitempty" yaml:"fallback_model,omitempty"`

	// Options are forwarded to the per-unit engines.
	Options pipeline.Options `json:"-" yaml:"-"`
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = errors.DefaultRetryPolicy()
	}
	c.Options.ForceRegenerate = c.ForceRegenerate
	return c
}

// Scheduler runs batches. It owns the worker pool and every job's state
// machine; the rate limiter and cost ledger are the only state shared
// between units.
type Scheduler struct {
	deps        pipeline.Deps
	terms       terms.Store
	threshold   float64
	checkpoints CheckpointStore
	logger      *slog.Logger
}

// NewScheduler wires a scheduler over the shared pipeline dependencies.
// checkpoints may be nil to disable progress persistence.
func NewScheduler(deps pipeline.Deps, termStore terms.Store, threshold float64, checkpoints CheckpointStore, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		deps:        deps,
		terms:       termStore,
		threshold:   threshold,
		checkpoints: checkpoints,
		logger:      logger,
	}
}

// gatedCompleter puts the token bucket in front of every adapter call, so
// the requests-per-minute cap holds regardless of worker count.
type gatedCompleter struct {
	inner   pipeline.Completer
	limiter *RateLimiter
}

func (g *gatedCompleter) Complete(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.inner.Complete(ctx, req)
}

// Run starts the batch asynchronously and returns its handle.
func (s *Scheduler) Run(ctx context.Context, units []pipeline.Unit, cfg Config) *Job {
	cfg = cfg.withDefaults()

	runCtx, cancel := context.WithCancel(ctx)
	ledger := NewCostLedger(cfg.CostCeilingUSD)
	job := newJob(uuid.NewString(), len(units), ledger)

	deps := s.deps
	deps.Models = &gatedCompleter{
		inner:   s.deps.Models,
		limiter: NewRateLimiter(cfg.RequestsPerMinute),
	}
	orchestrator := pipeline.NewOrchestrator(deps, s.terms, s.threshold)

	go s.run(runCtx, cancel, job, orchestrator, units, cfg)
	return job
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, job *Job, orchestrator *pipeline.Orchestrator, units []pipeline.Unit, cfg Config) {
	defer cancel()

	job.start()
	s.saveCheckpoint(job)

	queue := make(chan pipeline.Unit)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, job, orchestrator, queue, cfg)
		}()
	}

feed:
	for _, unit := range units {
		select {
		case queue <- unit:
		case <-job.stop:
			break feed
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	var runErr error
	if err := ctx.Err(); err != nil && !job.cancelled() {
		runErr = err
	}
	job.finish(runErr)
	s.saveCheckpoint(job)
}

func (s *Scheduler) worker(ctx context.Context, job *Job, orchestrator *pipeline.Orchestrator, queue <-chan pipeline.Unit, cfg Config) {
	for unit := range queue {
		// Cooperative suspension points: between units only, never
		// mid-call.
		if !job.awaitResume(ctx) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if err := job.ledger.Admit(); err != nil {
			job.record(&pipeline.Result{
				Unit:  unit,
				State: pipeline.StateFailed,
				Err:   err,
			})
			continue
		}

		result := s.runUnit(ctx, orchestrator, unit, cfg)
		job.ledger.Record(result.CostUSD)
		job.record(result)
		s.saveCheckpoint(job)
	}
}

// runUnit retries retryable failures per policy, then falls back to the
// configured secondary model for one final try.
func (s *Scheduler) runUnit(ctx context.Context, orchestrator *pipeline.Orchestrator, unit pipeline.Unit, cfg Config) *pipeline.Result {
	result := s.runWithRetry(ctx, orchestrator, unit, cfg)
	if result.Err == nil {
		return result
	}

	if cfg.FallbackModel == "" || cfg.FallbackModel == unit.ModelID {
		return result
	}

	s.logger.Info("unit exhausted retries, trying fallback model",
		"term", unit.TermID,
		"column", unit.ColumnID,
		"model", unit.ModelID,
		"fallback", cfg.FallbackModel,
	)

	fallbackUnit := unit
	fallbackUnit.ModelID = cfg.FallbackModel
	fallbackResult := orchestrator.Run(ctx, fallbackUnit, cfg.Options)
	if fallbackResult.Err != nil {
		// Report the primary model's failure; the fallback spend still
		// counts.
		result.CostUSD += fallbackResult.CostUSD
		return result
	}
	fallbackResult.CostUSD += result.CostUSD
	return fallbackResult
}

func (s *Scheduler) runWithRetry(ctx context.Context, orchestrator *pipeline.Orchestrator, unit pipeline.Unit, cfg Config) *pipeline.Result {
	var result *pipeline.Result
	var spent float64

	err := errors.Retry(ctx, cfg.Retry, errors.DefaultIsRetryable, func(ctx context.Context) error {
		result = orchestrator.Run(ctx, unit, cfg.Options)
		spent += result.CostUSD
		return result.Err
	})

	if result == nil {
		result = &pipeline.Result{
			Unit:  unit,
			State: pipeline.StateFailed,
			Err:   fmt.Errorf("unit never ran: %w", err),
		}
	}
	result.CostUSD = spent
	return result
}

func (s *Scheduler) saveCheckpoint(job *Job) {
	if s.checkpoints == nil {
		return
	}
	if err := s.checkpoints.Save(context.Background(), job.Progress()); err != nil {
		s.logger.Warn("checkpoint write failed", "job", job.ID(), "error", err)
	}
}
