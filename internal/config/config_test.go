package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finlens/internal/config"
)

func TestDefaultsAreValidOnceKeyed(t *testing.T) {
	cfg := config.Default()
	cfg.Reasoning.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Analysis.MaxQueryChars != 1000 {
		t.Fatalf("max_query_chars default = %d", cfg.Analysis.MaxQueryChars)
	}
	if cfg.Analysis.MaxDocumentBytes != 25<<20 {
		t.Fatalf("max_document_bytes default = %d", cfg.Analysis.MaxDocumentBytes)
	}
	if cfg.Queue.Workers != 2 || cfg.Scheduler.MaxInline != 4 {
		t.Fatalf("unexpected queue/scheduler defaults: %+v %+v", cfg.Queue, cfg.Scheduler)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.MaxQueryChars != 1000 {
		t.Fatalf("expected defaults, got %+v", cfg.Analysis)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
artifact_dir = "` + dir + `/artifacts"
log_dir = "` + dir + `/logs"

[analysis]
max_query_chars = 200
stop_on_first_failure = true

[reasoning]
api_key = "abc"
model = "test/model"

[queue]
workers = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.MaxQueryChars != 200 || !cfg.Analysis.StopOnFirstFailure {
		t.Fatalf("analysis overrides not applied: %+v", cfg.Analysis)
	}
	if cfg.Queue.Workers != 5 {
		t.Fatalf("queue override not applied: %+v", cfg.Queue)
	}
	// Unset fields keep their defaults.
	if cfg.Analysis.MaxDocumentBytes != 25<<20 {
		t.Fatalf("unset field lost its default: %d", cfg.Analysis.MaxDocumentBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing api key", func(c *config.Config) { c.Reasoning.APIKey = "" }, "reasoning.api_key"},
		{"blank data dir", func(c *config.Config) { c.Paths.DataDir = " " }, "paths.data_dir"},
		{"zero query chars", func(c *config.Config) { c.Analysis.MaxQueryChars = 0 }, "max_query_chars"},
		{"negative retries", func(c *config.Config) { c.Analysis.MaxRetries = -1 }, "max_retries"},
		{"zero workers", func(c *config.Config) { c.Queue.Workers = 0 }, "queue.workers"},
		{"zero lease", func(c *config.Config) { c.Queue.LeaseSeconds = 0 }, "lease_seconds"},
		{"zero inline", func(c *config.Config) { c.Scheduler.MaxInline = 0 }, "max_inline"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Reasoning.APIKey = "key"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestReasoningDisabledSkipsKeyCheck(t *testing.T) {
	cfg := config.Default()
	cfg.Reasoning.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled reasoning should not require a key: %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("first WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}

func TestEnsureDirectoriesAndDerivedPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ArtifactDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
	}

	if got := cfg.DatabasePath(); got != filepath.Join(cfg.Paths.DataDir, "jobs.db") {
		t.Fatalf("DatabasePath = %q", got)
	}
	if got := cfg.QueueDatabasePath(); got != filepath.Join(cfg.Paths.DataDir, "workqueue.db") {
		t.Fatalf("QueueDatabasePath = %q", got)
	}
	if got := cfg.LockPath(); got != filepath.Join(cfg.Paths.DataDir, "finlens.lock") {
		t.Fatalf("LockPath = %q", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := config.ExpandPath("~/x"); got != filepath.Join(home, "x") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if got := config.ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("ExpandPath left absolute path alone? %q", got)
	}
}
