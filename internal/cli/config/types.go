// Package config provides configuration management for the tabmeta CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	// MetadataDir is where parse writes metadata artifacts.
	MetadataDir string `koanf:"metadata_dir"`
	// RegistryPath is the artifact registry file.
	RegistryPath string `koanf:"registry_path"`
	// IssuesPath is the historical-issues CSV consumed by the context command.
	IssuesPath string `koanf:"issues_path"`
	// FeedbackDB is the SQLite feedback database.
	FeedbackDB string `koanf:"feedback_db"`
	// Workers bounds parallel parses in batch mode.
	Workers int `koanf:"workers"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// ProjectRoot is the directory relative paths resolve against. Not read
	// from the config file; inferred at load time.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultMetadataDir  = "metadata"
	DefaultRegistryPath = ".tabmeta/registry.json"
	DefaultIssuesPath   = "historical_issues.csv"
	DefaultFeedbackDB   = ".tabmeta/feedback.db"
	DefaultWorkers      = 4
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
