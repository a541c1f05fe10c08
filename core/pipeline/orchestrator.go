package pipeline

import (
	"context"

	"github.com/adalundhe/glossforge/core/terms"
	"github.com/adalundhe/glossforge/core/versions"
)

// Orchestrator sequences generate → evaluate → (conditional) improve for
// one unit. Transitions are sequential and synchronous within a unit;
// different units run concurrently under the batch scheduler.
type Orchestrator struct {
	generator *Generator
	evaluator *Evaluator
	improver  *Improver
	terms     terms.Store
	threshold float64
}

// NewOrchestrator wires the three engines over shared dependencies.
// A non-positive threshold falls back to the default quality gate.
func NewOrchestrator(deps Deps, termStore terms.Store, threshold float64) *Orchestrator {
	if threshold <= 0 {
		threshold = DefaultQualityThreshold
	}
	return &Orchestrator{
		generator: NewGenerator(deps),
		evaluator: NewEvaluator(deps),
		improver:  NewImprover(deps),
		terms:     termStore,
		threshold: threshold,
	}
}

// Threshold returns the quality gate in effect.
func (o *Orchestrator) Threshold() float64 {
	return o.threshold
}

// Run drives the unit to exactly one terminal outcome. A fully cached run
// (every stage a hit) is reported as skipped; any run that performed at
// least one paid call ends done or failed.
func (o *Orchestrator) Run(ctx context.Context, unit Unit, opts Options) *Result {
	result := &Result{Unit: unit, State: StatePending}

	term, err := o.terms.GetTerm(ctx, unit.TermID)
	if err != nil {
		return result.fail(err)
	}

	result.State = StateGenerating
	generated, genHit, err := o.generator.Generate(ctx, term, unit.ColumnID, unit.ModelID, opts)
	if err != nil {
		return result.fail(err)
	}
	result.State = StateGenerated
	result.absorb(generated, genHit)

	result.State = StateEvaluating
	evaluated, evalHit, err := o.evaluator.Evaluate(ctx, term, generated, opts)
	if err != nil {
		return result.fail(err)
	}
	result.State = StateEvaluated
	result.absorb(evaluated, evalHit)
	result.Version = evaluated

	// Inconclusive verdicts are flagged for review: never accepted, never
	// auto-improved.
	if evaluated.Feedback != nil && evaluated.Feedback.Inconclusive {
		return result.finish(genHit && evalHit)
	}

	if evaluated.Accepted(o.threshold) {
		return result.finish(genHit && evalHit)
	}

	result.State = StateImproving
	improved, improveHit, err := o.improver.Improve(ctx, term, evaluated, opts)
	if err != nil {
		return result.fail(err)
	}
	result.State = StateImproved
	result.absorb(improved, improveHit)
	result.Version = improved

	return result.finish(genHit && evalHit && improveHit)
}

func (r *Result) absorb(v *versions.ContentVersion, cached bool) {
	if cached {
		r.CacheHits++
		return
	}
	r.CostUSD += v.CostUSD
}

func (r *Result) finish(allCached bool) *Result {
	if allCached {
		r.State = StateSkipped
	} else {
		r.State = StateDone
	}
	return r
}

func (r *Result) fail(err error) *Result {
	r.State = StateFailed
	r.Err = err
	return r
}
