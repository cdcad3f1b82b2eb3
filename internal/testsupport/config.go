package testsupport

import (
	"path/filepath"
	"testing"

	"finlens/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Reasoning.APIKey = "test"
	cfg.Queue.PollInterval = 1
	cfg.Analysis.RetryDelayMillis = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxInline overrides the inline fallback capacity on the test config.
func WithMaxInline(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scheduler.MaxInline = n
	}
}

// WithStopOnFirstFailure toggles the pipeline abort policy on the test config.
func WithStopOnFirstFailure(stop bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.StopOnFirstFailure = stop
	}
}
