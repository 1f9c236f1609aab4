package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/cli/config"
	"github.com/leapstack-labs/tabmeta/internal/cli/output"
	"github.com/leapstack-labs/tabmeta/internal/engine"
	"github.com/leapstack-labs/tabmeta/internal/model"
	"github.com/leapstack-labs/tabmeta/internal/registry"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context and
// the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   engine.New(logger),
		Renderer: r,
	}
}

// getConfig returns the current configuration. It uses
// config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	workers := config.DefaultWorkers
	if v := os.Getenv("TABMETA_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}

	return &config.Config{
		MetadataDir:  getEnvOrDefault("TABMETA_METADATA_DIR", config.DefaultMetadataDir),
		RegistryPath: getEnvOrDefault("TABMETA_REGISTRY_PATH", config.DefaultRegistryPath),
		IssuesPath:   getEnvOrDefault("TABMETA_ISSUES_PATH", config.DefaultIssuesPath),
		FeedbackDB:   getEnvOrDefault("TABMETA_FEEDBACK_DB", config.DefaultFeedbackDB),
		Workers:      workers,
		Verbose:      os.Getenv("TABMETA_VERBOSE") == "true",
		OutputFormat: os.Getenv("TABMETA_OUTPUT"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// openRegistry opens the artifact registry from configuration.
func openRegistry(cfg *config.Config) (*registry.Registry, error) {
	return registry.Open(cfg.RegistryPath)
}

// loadDocument resolves a logical name through the registry and reads its
// metadata artifact.
func loadDocument(cfg *config.Config, name string) (*model.Document, error) {
	reg, err := openRegistry(cfg)
	if err != nil {
		return nil, err
	}
	entry, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("no registered artifact named %q (run 'tabmeta parse' or 'tabmeta register' first)", name)
	}

	data, err := os.ReadFile(entry.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("reading metadata for %q: %w", name, err)
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata for %q is corrupt: %w", name, err)
	}
	return &doc, nil
}
