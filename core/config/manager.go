package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Manager holds the active configuration behind an atomic pointer, so
// readers always see a complete snapshot and reloads never tear.
type Manager struct {
	configPtr atomic.Pointer[Config]
	path      string

	watcherMu sync.RWMutex
	watchers  []func(*Config)
}

// NewManager creates a manager over an optional YAML file path. The
// manager starts with defaults; call Load to overlay the file and
// environment.
func NewManager(path string) *Manager {
	m := &Manager{path: path}
	m.configPtr.Store(Default())
	return m
}

// Get returns the current snapshot. Never nil.
func (m *Manager) Get() *Config {
	return m.configPtr.Load()
}

// Load rebuilds the snapshot: defaults, then the YAML file (if present),
// then environment overrides.
func (m *Manager) Load() error {
	cfg := Default()

	if err := m.loadYAMLFile(cfg); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	applyEnvironment(cfg)

	if err := validate(cfg); err != nil {
		return err
	}

	m.configPtr.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

// Reload re-runs Load; existing snapshots held by readers stay valid.
func (m *Manager) Reload() error {
	return m.Load()
}

// OnChange registers a callback invoked after every successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (m *Manager) loadYAMLFile(cfg *Config) error {
	if m.path == "" {
		return nil
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// applyEnvironment overlays credentials and the most operationally useful
// knobs. Provider keys also honor the SDKs' conventional variable names.
func applyEnvironment(cfg *Config) {
	if v := firstEnv("GLOSSFORGE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := firstEnv("GLOSSFORGE_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := firstEnv("GLOSSFORGE_GOOGLE_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		cfg.Providers.Google.APIKey = v
	}
	if v := os.Getenv("GLOSSFORGE_DEFAULT_MODEL"); v != "" {
		cfg.Pipeline.DefaultModel = v
	}
	if v := os.Getenv("GLOSSFORGE_FALLBACK_MODEL"); v != "" {
		cfg.Pipeline.FallbackModel = v
	}
	if v := os.Getenv("GLOSSFORGE_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("GLOSSFORGE_QUALITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pipeline.QualityThreshold = f
		}
	}
	if v := os.Getenv("GLOSSFORGE_COST_CEILING_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Batch.CostCeilingUSD = f
		}
	}
	if v := os.Getenv("GLOSSFORGE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Concurrency = n
		}
	}
	if v := os.Getenv("GLOSSFORGE_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.CallTimeout = d
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func validate(cfg *Config) error {
	if cfg.Pipeline.QualityThreshold < 0 || cfg.Pipeline.QualityThreshold > 10 {
		return fmt.Errorf("quality_threshold %.2f outside [0,10]", cfg.Pipeline.QualityThreshold)
	}
	switch cfg.Cache.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return nil
}
