package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"finlens/internal/logging"
	"finlens/internal/services"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "debug", Format: "json", Output: &buf})

	logger.Info("hello", logging.String("k", "v"))
	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestContextFieldsCarryThrough(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-7")
	ctx = services.WithStage(ctx, "verification")
	ctx = services.WithMode(ctx, "inline")

	var buf bytes.Buffer
	logger := logging.New(logging.Options{Format: "json", Output: &buf})
	logging.WithContext(ctx, logger).Info("event")

	out := buf.String()
	for _, want := range []string{`"job_id":"job-7"`, `"stage":"verification"`, `"mode":"inline"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s: %s", want, out)
		}
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Format: "json", Output: &buf})

	logging.NewComponentLogger(logger, "scheduler").Info("event")
	if !strings.Contains(buf.String(), `"component":"scheduler"`) {
		t.Fatalf("missing component field: %s", buf.String())
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("ignored", logging.Int("n", 1))
	logging.NewComponentLogger(nil, "x").Info("also ignored")
}
