// Package config defines the pipeline's configuration surface: provider
// credentials, cache backend, quality gate, and batch defaults. Defaults
// are overlaid by an optional YAML file and then by environment variables.
package config

import (
	"time"

	"github.com/adalundhe/glossforge/core/batch"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/providers"
)

// Config is the full configuration snapshot.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Cache     CacheConfig     `yaml:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Batch     batch.Config    `yaml:"batch"`
	Paths     PathsConfig     `yaml:"paths"`
}

// ProvidersConfig holds per-backend credentials and defaults.
type ProvidersConfig struct {
	Anthropic providers.AnthropicConfig `yaml:"anthropic"`
	OpenAI    providers.OpenAIConfig    `yaml:"openai"`
	Google    providers.GoogleConfig    `yaml:"google"`

	// Default names the provider used when a unit does not pin a model.
	Default string `yaml:"default"`
}

// CacheConfig selects and tunes the content cache backend.
type CacheConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// TTL of zero means entries never expire.
	TTL time.Duration `yaml:"ttl"`
}

// PipelineConfig tunes the triplet engines.
type PipelineConfig struct {
	// QualityThreshold is the composite score gate in [0,10].
	QualityThreshold float64 `yaml:"quality_threshold"`

	// DefaultModel runs units that do not pin a model.
	DefaultModel string `yaml:"default_model"`

	// FallbackModel is tried once after a unit exhausts retries.
	FallbackModel string `yaml:"fallback_model"`

	// MaxTokens caps each completion.
	MaxTokens int `yaml:"max_tokens"`

	// CallTimeout bounds each adapter call.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// PromptDir overlays hand-tuned prompt triplets over the synthesized
	// defaults. Empty disables the overlay.
	PromptDir string `yaml:"prompt_dir"`

	// RegistryFile replaces the built-in column registry. Empty keeps
	// the defaults.
	RegistryFile string `yaml:"registry_file"`
}

// PathsConfig locates on-disk state.
type PathsConfig struct {
	// DataDir roots the SQLite databases.
	DataDir string `yaml:"data_dir"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Anthropic: providers.DefaultAnthropicConfig(),
			OpenAI:    providers.DefaultOpenAIConfig(),
			Google:    providers.DefaultGoogleConfig(),
			Default:   string(providers.ProviderTypeAnthropic),
		},
		Cache: CacheConfig{
			Backend: "sqlite",
		},
		Pipeline: PipelineConfig{
			QualityThreshold: pipeline.DefaultQualityThreshold,
			MaxTokens:        4096,
			CallTimeout:      2 * time.Minute,
		},
		Batch: batch.Config{
			Concurrency: batch.DefaultConcurrency,
			Retry:       errors.DefaultRetryPolicy(),
		},
		Paths: PathsConfig{
			DataDir: "./data",
		},
	}
}

// Options converts the pipeline section into per-run engine options.
func (c *Config) Options() pipeline.Options {
	return pipeline.Options{
		MaxTokens:   c.Pipeline.MaxTokens,
		CallTimeout: c.Pipeline.CallTimeout,
	}
}
