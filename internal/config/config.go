package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Sources contains endpoint and transport settings for the citation databases.
type Sources struct {
	CrossrefBaseURL        string `toml:"crossref_base_url"`
	DOIBaseURL             string `toml:"doi_base_url"`
	InspireBaseURL         string `toml:"inspire_base_url"`
	SemanticScholarBaseURL string `toml:"semanticscholar_base_url"`
	SemanticScholarAPIKey  string `toml:"semanticscholar_api_key"`
	UserAgent              string `toml:"user_agent"`
	HTTPTimeoutSeconds     int    `toml:"http_timeout_seconds"`
}

// Scheduler contains timing for update runs and background maintenance.
type Scheduler struct {
	StartDelayMS             int `toml:"start_delay_ms"`
	ItemDelayMS              int `toml:"item_delay_ms"`
	RetryDelayMS             int `toml:"retry_delay_ms"`
	MaxRetries               int `toml:"max_retries"`
	WatchIntervalSeconds     int `toml:"watch_interval_seconds"`
	SweepInitialDelaySeconds int `toml:"sweep_initial_delay_seconds"`
	SweepIntervalHours       int `toml:"sweep_interval_hours"`
}

// Network contains the connectivity probe used before automatic runs.
type Network struct {
	ProbeAddress        string `toml:"probe_address"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for citetally.
//
// Configuration sections by subsystem:
//   - Paths: library database, lock file and log locations
//   - Sources: citation database endpoints and HTTP transport
//   - Scheduler: update run delays, retry ceiling and maintenance intervals
//   - Network: connectivity probe for automatic runs
//   - Logging: log format and level
//
// User preferences (database order, auto-update mode, cutoff, colors) live in
// the library's preference store, not here.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Sources   Sources   `toml:"sources"`
	Scheduler Scheduler `toml:"scheduler"`
	Network   Network   `toml:"network"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("citetally.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LibraryPath returns the SQLite library database location.
func (c *Config) LibraryPath() string {
	return filepath.Join(c.Paths.DataDir, "library.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "citetally.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "citetally.log")
}

// HTTPTimeout returns the per-request timeout for citation lookups.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Sources.HTTPTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the connectivity probe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Network.ProbeTimeoutSeconds) * time.Second
}

// StartDelay is the pause between deciding to run an automatic update and processing the first record.
func (c *Config) StartDelay() time.Duration {
	return time.Duration(c.Scheduler.StartDelayMS) * time.Millisecond
}

// ItemDelay is the pause between records of an automatic run.
func (c *Config) ItemDelay() time.Duration {
	return time.Duration(c.Scheduler.ItemDelayMS) * time.Millisecond
}

// RetryDelay is the pause before retrying a record after a rate limit or connectivity loss.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Scheduler.RetryDelayMS) * time.Millisecond
}

// WatchInterval is how often the daemon polls the library for newly added records.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Scheduler.WatchIntervalSeconds) * time.Second
}

// SweepInitialDelay is the delay before the first ledger sweep after start.
func (c *Config) SweepInitialDelay() time.Duration {
	return time.Duration(c.Scheduler.SweepInitialDelaySeconds) * time.Second
}

// SweepInterval is the period between ledger sweeps.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Scheduler.SweepIntervalHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
