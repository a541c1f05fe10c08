package service

import (
	"context"
	"fmt"

	"github.com/adalundhe/glossforge/core/batch"
	"github.com/adalundhe/glossforge/core/compare"
	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/versions"
)

// GenerateColumn is the single-unit synchronous entry point. An empty
// modelID uses the configured default. forceRegenerate bypasses cache
// reads; it does not force re-evaluation of an already accepted selected
// version.
func (s *Service) GenerateColumn(ctx context.Context, termID, columnID, modelID string, forceRegenerate bool) (*versions.ContentVersion, error) {
	opts := s.cfg.Options()
	opts.ForceRegenerate = forceRegenerate

	result := s.orchestrator.Run(ctx, pipeline.Unit{
		TermID:   termID,
		ColumnID: columnID,
		ModelID:  s.resolveModel(modelID),
	}, opts)

	if result.Err != nil {
		return nil, result.Err
	}
	return result.Version, nil
}

// RunBatch starts an asynchronous batch over the units. Zero-valued config
// fields fall back to the configured batch defaults; units without a model
// run on the default model.
func (s *Service) RunBatch(ctx context.Context, units []pipeline.Unit, cfg batch.Config) *batch.Job {
	defaults := s.cfg.Batch
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if cfg.CostCeilingUSD <= 0 {
		cfg.CostCeilingUSD = defaults.CostCeilingUSD
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = defaults.Retry
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = s.cfg.Pipeline.FallbackModel
	}
	cfg.Options = s.cfg.Options()

	resolved := make([]pipeline.Unit, len(units))
	for i, unit := range units {
		unit.ModelID = s.resolveModel(unit.ModelID)
		resolved[i] = unit
	}

	return s.scheduler.Run(ctx, resolved, cfg)
}

// CompareModels runs the triplet once per model for the same (term,
// column) and returns every run for side-by-side review.
func (s *Service) CompareModels(ctx context.Context, termID, columnID string, modelIDs []string) ([]compare.ModelRun, error) {
	return s.comparator.Compare(ctx, termID, columnID, modelIDs, s.cfg.Options())
}

// ListVersions returns every persisted version for the (term, column).
func (s *Service) ListVersions(ctx context.Context, termID, columnID string) ([]*versions.ContentVersion, error) {
	return s.store.ListByUnit(ctx, termID, columnID)
}

// SelectVersion marks a version as the chosen artifact, implicitly
// deselecting any previous choice, and records the cell as filled so
// pending scans skip it.
func (s *Service) SelectVersion(ctx context.Context, termID, columnID, versionID string) error {
	if err := s.store.Select(ctx, termID, columnID, versionID); err != nil {
		return err
	}

	version, err := s.store.Get(ctx, versionID)
	if err != nil {
		return err
	}
	return s.termAdmin.MarkFilled(ctx, termID, columnID, version.CreatedAt.UnixMilli())
}

// RateVersion records a 1-5 star rating. The version must belong to the
// (term, column) it is being rated under.
func (s *Service) RateVersion(ctx context.Context, termID, columnID, versionID string, stars int) error {
	version, err := s.store.Get(ctx, versionID)
	if err != nil {
		return err
	}
	if version.TermID != termID || version.ColumnID != columnID {
		return fmt.Errorf("version %s does not belong to %s/%s", versionID, termID, columnID)
	}
	return s.store.Rate(ctx, versionID, stars)
}

// InvalidateCache removes cached artifacts whose logical path
// (column/term/model/stage) matches the glob pattern. Returns the number
// removed.
func (s *Service) InvalidateCache(ctx context.Context, pattern string) (int, error) {
	return s.cache.Invalidate(ctx, pattern)
}

// PendingUnits expands a term into one unit per column that still lacks
// accepted content.
func (s *Service) PendingUnits(ctx context.Context, termID string) ([]pipeline.Unit, error) {
	columns, err := s.terms.ListPendingColumns(ctx, termID)
	if err != nil {
		return nil, err
	}

	units := make([]pipeline.Unit, 0, len(columns))
	for _, columnID := range columns {
		units = append(units, pipeline.Unit{
			TermID:   termID,
			ColumnID: columnID,
			ModelID:  s.defaultModel,
		})
	}
	return units, nil
}

// AllPendingUnits scans every term for missing cells; this feeds the
// batch --all-pending flow.
func (s *Service) AllPendingUnits(ctx context.Context) ([]pipeline.Unit, error) {
	termIDs, err := s.termAdmin.ListTermIDs(ctx)
	if err != nil {
		return nil, err
	}

	var units []pipeline.Unit
	for _, termID := range termIDs {
		termUnits, err := s.PendingUnits(ctx, termID)
		if err != nil {
			return nil, err
		}
		units = append(units, termUnits...)
	}
	return units, nil
}
