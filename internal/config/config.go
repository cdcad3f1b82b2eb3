package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	ArtifactDir string `toml:"artifact_dir"`
	LogDir      string `toml:"log_dir"`
}

// Analysis contains pipeline execution limits and policies.
type Analysis struct {
	MaxQueryChars       int   `toml:"max_query_chars"`
	MaxDocumentBytes    int64 `toml:"max_document_bytes"`
	StageTimeoutSeconds int   `toml:"stage_timeout_seconds"`
	MaxRetries          int   `toml:"max_retries"`
	RetryDelayMillis    int   `toml:"retry_delay_millis"`
	StopOnFirstFailure  bool  `toml:"stop_on_first_failure"`
}

// Reasoning contains connection settings for the reasoning engine.
type Reasoning struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Queue contains configuration for the work queue broker and worker pool.
type Queue struct {
	Workers            int `toml:"workers"`
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	LeaseSeconds       int `toml:"lease_seconds"`
}

// Scheduler contains admission settings for the submission entry point.
type Scheduler struct {
	MaxInline int `toml:"max_inline"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Analysis  Analysis  `toml:"analysis"`
	Reasoning Reasoning `toml:"reasoning"`
	Queue     Queue     `toml:"queue"`
	Scheduler Scheduler `toml:"scheduler"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the canonical location of the config file.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "finlens", "config.toml"), nil
}

// Load reads the configuration file at path, falling back to defaults for any
// unset field. A missing file yields the defaults without error so the CLI can
// run before 'config init'.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.expandPaths()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.expandPaths()
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	path = ExpandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the daemon and stores require.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ArtifactDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the job store database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// QueueDatabasePath returns the location of the work queue broker database.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "workqueue.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "finlens.lock")
}

// ExpandPath resolves a leading ~ to the user home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func (c *Config) expandPaths() {
	c.Paths.DataDir = ExpandPath(c.Paths.DataDir)
	c.Paths.ArtifactDir = ExpandPath(c.Paths.ArtifactDir)
	c.Paths.LogDir = ExpandPath(c.Paths.LogDir)
}
