// Package cmd provides the glossforge CLI: administrative tooling over the
// content generation pipeline.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/adalundhe/glossforge/core/config"
	"github.com/adalundhe/glossforge/core/service"
)

var (
	flagConfig  string
	flagDataDir string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "glossforge",
	Short: "Glossforge - glossary content generation pipeline",
	Long: `Glossforge generates, evaluates, and improves structured educational
content for glossary terms across a fixed column schema, with multi-model
comparison, content-addressed caching, and cost-bounded batch runs.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "override the data directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// loadConfig builds the configuration snapshot from defaults, the optional
// config file, and the environment.
func loadConfig() (*config.Config, error) {
	manager := config.NewManager(flagConfig)
	if err := manager.Load(); err != nil {
		return nil, err
	}

	cfg := manager.Get()
	if flagDataDir != "" {
		cfg.Paths.DataDir = flagDataDir
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newService assembles the full pipeline for a command invocation.
func newService(ctx context.Context) (*service.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return service.New(ctx, cfg, newLogger())
}
