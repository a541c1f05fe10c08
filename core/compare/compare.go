// Package compare fans the triplet pipeline out across multiple models for
// the same (term, column) and manages the resulting version set.
package compare

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/versions"
)

// ModelRun pairs a model with its unit outcome. A failed model never
// aborts the other models' runs.
type ModelRun struct {
	ModelID string
	Result  *pipeline.Result
}

// Comparator runs the orchestrator once per requested model. Model
// identity is part of every cache key, so runs never share cached
// artifacts across models.
type Comparator struct {
	orchestrator *pipeline.Orchestrator
	store        versions.Store
	logger       *slog.Logger
}

// New creates a comparator over the shared orchestrator and version store.
func New(orchestrator *pipeline.Orchestrator, store versions.Store, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
	}
}

// Compare runs the triplet once per model and returns every run, in the
// order the models were requested. Per-model failures are reported inside
// the run; Compare itself errors only on empty input.
func (c *Comparator) Compare(ctx context.Context, termID, columnID string, modelIDs []string, opts pipeline.Options) ([]ModelRun, error) {
	if len(modelIDs) == 0 {
		return nil, fmt.Errorf("compare requires at least one model")
	}

	runs := make([]ModelRun, len(modelIDs))

	var g errgroup.Group
	for i, modelID := range modelIDs {
		g.Go(func() error {
			result := c.orchestrator.Run(ctx, pipeline.Unit{
				TermID:   termID,
				ColumnID: columnID,
				ModelID:  modelID,
			}, opts)

			if result.Err != nil {
				c.logger.Warn("model run failed during comparison",
					"term", termID,
					"column", columnID,
					"model", modelID,
					"error", result.Err,
				)
			}

			runs[i] = ModelRun{ModelID: modelID, Result: result}
			return nil
		})
	}

	// Goroutines report failures through their run slots.
	_ = g.Wait()
	return runs, nil
}

// Versions lists every persisted version for the (term, column) across all
// models and phases.
func (c *Comparator) Versions(ctx context.Context, termID, columnID string) ([]*versions.ContentVersion, error) {
	return c.store.ListByUnit(ctx, termID, columnID)
}

// Select marks one version as the chosen artifact for the (term, column).
// Selecting a new version implicitly deselects the previous one.
func (c *Comparator) Select(ctx context.Context, termID, columnID, versionID string) error {
	return c.store.Select(ctx, termID, columnID, versionID)
}

// Selected returns the currently chosen version, if any.
func (c *Comparator) Selected(ctx context.Context, termID, columnID string) (*versions.ContentVersion, error) {
	return c.store.Selected(ctx, termID, columnID)
}

// Rate records a human star rating (1-5) against a version.
func (c *Comparator) Rate(ctx context.Context, versionID string, stars int) error {
	return c.store.Rate(ctx, versionID, stars)
}
