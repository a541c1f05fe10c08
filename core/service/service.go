// Package service wires the pipeline's components into the administrative
// surface consumed by the CLI and by the external content-management
// system.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adalundhe/glossforge/core/batch"
	"github.com/adalundhe/glossforge/core/cache"
	"github.com/adalundhe/glossforge/core/compare"
	"github.com/adalundhe/glossforge/core/config"
	"github.com/adalundhe/glossforge/core/database"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/providers"
	"github.com/adalundhe/glossforge/core/registry"
	"github.com/adalundhe/glossforge/core/terms"
	"github.com/adalundhe/glossforge/core/versions"
)

// Service is the assembled pipeline. Construction validates the full
// configuration: every registry column must resolve to a prompt triplet
// before any unit runs.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	registry     *registry.Registry
	prompts      *prompts.Store
	cache        cache.ContentCache
	models       *providers.Registry
	store        versions.Store
	terms        terms.Store
	termAdmin    *terms.SQLiteStore
	orchestrator *pipeline.Orchestrator
	comparator   *compare.Comparator
	scheduler    *batch.Scheduler
	checkpoints  batch.CheckpointStore
	dbManager    *database.Manager
	watcher      *prompts.Watcher
	defaultModel string
}

// New assembles a service from configuration. ctx covers provider client
// construction and database migrations.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	return NewWithProviders(ctx, cfg, nil, logger)
}

// NewWithProviders assembles a service over a pre-built provider registry.
// A nil registry is constructed from the configured credentials. This is
// the seam dry runs and tests use to substitute scripted providers.
func NewWithProviders(ctx context.Context, cfg *config.Config, models *providers.Registry, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := registry.LoadFile(cfg.Pipeline.RegistryFile)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfiguration, "load column registry", err)
	}

	promptStore, err := prompts.DefaultStore(reg, cfg.Pipeline.PromptDir)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfiguration, "build prompt store", err)
	}

	if models == nil {
		models, err = buildProviders(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	dbManager := database.NewManager(cfg.Paths.DataDir)

	contentCache, err := buildCache(ctx, cfg, dbManager)
	if err != nil {
		return nil, err
	}

	versionPool, err := dbManager.Open("versions", database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("open versions db: %w", err)
	}
	store, err := versions.NewSQLiteStore(ctx, versionPool)
	if err != nil {
		return nil, err
	}

	termPool, err := dbManager.Open("terms", database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("open terms db: %w", err)
	}
	termStore, err := terms.NewSQLiteStore(ctx, termPool, reg.IDs())
	if err != nil {
		return nil, err
	}

	checkpoints, err := batch.NewSQLiteCheckpoints(ctx, versionPool)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Registry: reg,
		Prompts:  promptStore,
		Cache:    contentCache,
		Models:   models,
		Pricing:  models.Pricing(),
		Store:    store,
		Logger:   logger,
	}

	orchestrator := pipeline.NewOrchestrator(deps, termStore, cfg.Pipeline.QualityThreshold)

	svc := &Service{
		cfg:          cfg,
		logger:       logger,
		registry:     reg,
		prompts:      promptStore,
		cache:        contentCache,
		models:       models,
		store:        store,
		terms:        termStore,
		termAdmin:    termStore,
		orchestrator: orchestrator,
		comparator:   compare.New(orchestrator, store, logger),
		scheduler:    batch.NewScheduler(deps, termStore, cfg.Pipeline.QualityThreshold, checkpoints, logger),
		checkpoints:  checkpoints,
		dbManager:    dbManager,
		defaultModel: resolveDefaultModel(cfg),
	}

	if cfg.Pipeline.PromptDir != "" {
		svc.watcher, err = prompts.NewWatcher(promptStore, cfg.Pipeline.PromptDir, svc.onPromptChange, logger)
		if err != nil {
			logger.Warn("prompt hot-reload disabled", "dir", cfg.Pipeline.PromptDir, "error", err)
		}
	}
	return svc, nil
}

// onPromptChange drops cached artifacts for columns whose templates were
// edited. New template versions change the cache key anyway; this frees
// the dead entries early.
func (s *Service) onPromptChange(columnIDs []string) {
	ctx := context.Background()
	for _, columnID := range columnIDs {
		if _, err := s.cache.Invalidate(ctx, columnID+"/*/*/*"); err != nil {
			s.logger.Warn("invalidate cache for edited prompt", "column", columnID, "error", err)
		}
	}
}

func buildProviders(ctx context.Context, cfg *config.Config) (*providers.Registry, error) {
	builder := providers.NewRegistryBuilder(ctx)

	if cfg.Providers.Anthropic.APIKey != "" {
		builder.WithAnthropic(cfg.Providers.Anthropic)
	}
	if cfg.Providers.OpenAI.APIKey != "" {
		builder.WithOpenAI(cfg.Providers.OpenAI)
	}
	if cfg.Providers.Google.APIKey != "" {
		builder.WithGoogle(cfg.Providers.Google)
	}

	registry, err := builder.Build()
	if err != nil {
		return nil, errors.Wrap(errors.KindConfiguration, "configure providers", err)
	}
	if len(registry.Available()) == 0 {
		return nil, errors.New(errors.KindConfiguration, "no provider configured: set at least one API key")
	}

	if cfg.Providers.Default != "" {
		providerType := providers.ProviderType(cfg.Providers.Default)
		if registry.Has(providerType) {
			if err := registry.SetDefault(providerType); err != nil {
				return nil, err
			}
		}
	}
	return registry, nil
}

func buildCache(ctx context.Context, cfg *config.Config, dbManager *database.Manager) (cache.ContentCache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cache.MemoryConfig{TTL: cfg.Cache.TTL})
	case "sqlite", "":
		pool, err := dbManager.Open("cache", database.DefaultPoolConfig())
		if err != nil {
			return nil, fmt.Errorf("open cache db: %w", err)
		}
		return cache.NewSQLiteCache(ctx, pool, cfg.Cache.TTL)
	default:
		return nil, errors.New(errors.KindConfiguration, "unknown cache backend "+cfg.Cache.Backend)
	}
}

func resolveDefaultModel(cfg *config.Config) string {
	if cfg.Pipeline.DefaultModel != "" {
		return cfg.Pipeline.DefaultModel
	}
	switch cfg.Providers.Default {
	case string(providers.ProviderTypeOpenAI):
		return cfg.Providers.OpenAI.Model
	case string(providers.ProviderTypeGoogle):
		return cfg.Providers.Google.Model
	default:
		return cfg.Providers.Anthropic.Model
	}
}

// Close releases provider clients, cache, and database pools.
func (s *Service) Close() error {
	var firstErr error
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.models.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.dbManager.CloseAll(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Registry exposes the column registry for listing and validation tooling.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Terms exposes the administrative term store.
func (s *Service) Terms() *terms.SQLiteStore {
	return s.termAdmin
}

// Checkpoints exposes persisted batch progress.
func (s *Service) Checkpoints() batch.CheckpointStore {
	return s.checkpoints
}

// resolveModel applies the configured default when a unit does not pin a
// model.
func (s *Service) resolveModel(modelID string) string {
	if modelID != "" {
		return modelID
	}
	return s.defaultModel
}
