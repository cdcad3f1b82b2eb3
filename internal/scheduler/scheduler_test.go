package scheduler_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"finlens/internal/analysis"
	"finlens/internal/analysis/finance"
	"finlens/internal/artifacts"
	"finlens/internal/config"
	"finlens/internal/jobs"
	"finlens/internal/logging"
	"finlens/internal/reasoning"
	"finlens/internal/scheduler"
	"finlens/internal/services"
	"finlens/internal/testsupport"
	"finlens/internal/workqueue"
)

type harness struct {
	cfg       *config.Config
	store     *jobs.Store
	artifacts *artifacts.Store
	broker    *workqueue.Broker
	sched     *scheduler.Scheduler
}

func newHarness(t *testing.T, engine reasoning.Engine, opts ...testsupport.ConfigOption) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	artifactStore := testsupport.MustOpenArtifacts(t, cfg)
	broker := testsupport.MustOpenBroker(t, cfg)

	stages, err := finance.BuildStages(engine, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildStages: %v", err)
	}
	pipeline, err := analysis.New(analysis.Options{
		Logger:             logging.NewNop(),
		RetryDelay:         time.Millisecond,
		StopOnFirstFailure: cfg.Analysis.StopOnFirstFailure,
	}, stages...)
	if err != nil {
		t.Fatalf("analysis.New: %v", err)
	}
	runner, err := scheduler.NewRunner(store, artifactStore, pipeline, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	sched, err := scheduler.New(store, artifactStore, broker, runner, scheduler.Options{
		Logger:           logging.NewNop(),
		MaxQueryChars:    cfg.Analysis.MaxQueryChars,
		MaxDocumentBytes: cfg.Analysis.MaxDocumentBytes,
		MaxInline:        cfg.Scheduler.MaxInline,
	})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	return &harness{cfg: cfg, store: store, artifacts: artifactStore, broker: broker, sched: sched}
}

func okEngine() reasoning.Engine {
	return reasoning.EngineFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "stage output", nil
	})
}

func (h *harness) artifactCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(h.cfg.Paths.ArtifactDir)
	if err != nil {
		t.Fatalf("read artifact dir: %v", err)
	}
	return len(entries)
}

func TestSubmitQueued(t *testing.T) {
	h := newHarness(t, okEngine())
	ctx := context.Background()

	outcome, err := h.sched.Submit(ctx, "how is the company doing", []byte("revenue held steady"), "txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Mode != scheduler.ModeQueued {
		t.Fatalf("expected queued mode, got %s", outcome.Mode)
	}
	if outcome.Job.Status != jobs.StatusPending {
		t.Fatalf("expected pending job, got %s", outcome.Job.Status)
	}

	depth, err := h.broker.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != 1 {
		t.Fatalf("expected one queued task, got %d", depth)
	}
	if h.artifactCount(t) != 1 {
		t.Fatal("queued job must keep its artifact staged")
	}
}

func TestValidationRejectsBeforeArtifactStorage(t *testing.T) {
	h := newHarness(t, okEngine())
	ctx := context.Background()

	cases := []struct {
		name     string
		query    string
		document []byte
		ext      string
	}{
		{"empty query", "", []byte("text"), "txt"},
		{"whitespace query", "   \t", []byte("text"), "txt"},
		{"oversized query", strings.Repeat("q", h.cfg.Analysis.MaxQueryChars+1), []byte("text"), "txt"},
		{"empty document", "q", nil, "txt"},
		{"signature mismatch", "q", []byte("plain text, not a pdf"), "pdf"},
		{"unsupported extension", "q", []byte("body"), "docx"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.sched.Submit(ctx, tc.query, tc.document, tc.ext)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if h.artifactCount(t) != 0 {
		t.Fatal("rejected submissions must not stage artifacts")
	}
	all, err := h.store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected submissions must not create jobs, found %d", len(all))
	}
}

func TestSubmitRejectsOversizedDocument(t *testing.T) {
	h := newHarness(t, okEngine())

	big := make([]byte, h.cfg.Analysis.MaxDocumentBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	if _, err := h.sched.Submit(context.Background(), "q", big, "txt"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInlineFallbackWhenQueueDown(t *testing.T) {
	h := newHarness(t, okEngine())
	ctx := context.Background()

	// Closing the broker makes every enqueue fail as unavailable.
	h.broker.Close()

	outcome, err := h.sched.Submit(ctx, "how is the cash position", []byte("cash is fine"), "txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Mode != scheduler.ModeInline {
		t.Fatalf("expected inline mode, got %s", outcome.Mode)
	}
	if outcome.Job.Status != jobs.StatusCompleted {
		t.Fatalf("inline run should complete the job, got %s (%s)", outcome.Job.Status, outcome.Job.ErrorMessage)
	}

	report, err := analysis.DecodeReport(outcome.Job.ResultJSON)
	if err != nil {
		t.Fatalf("DecodeReport: %v", err)
	}
	if len(report.Stages) != 4 {
		t.Fatalf("expected 4 stage results, got %d", len(report.Stages))
	}
	if h.artifactCount(t) != 0 {
		t.Fatal("artifact must be released after the terminal state")
	}
}

func TestInlineFailureStillTerminalizes(t *testing.T) {
	engine := reasoning.EngineFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", services.Wrap(services.ErrValidation, "reasoning", "complete", "bad request", nil)
	})
	h := newHarness(t, engine)
	ctx := context.Background()

	h.broker.Close()

	outcome, err := h.sched.Submit(ctx, "q", []byte("text"), "txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Job.Status != jobs.StatusFailed {
		t.Fatalf("expected failed job, got %s", outcome.Job.Status)
	}
	if outcome.Job.ErrorMessage == "" || outcome.Job.ResultJSON != "" {
		t.Fatalf("failed job must carry an error and no result: %+v", outcome.Job)
	}
	if h.artifactCount(t) != 0 {
		t.Fatal("artifact must be released after failure")
	}
}

func TestInlineAndQueuedRunsAreEquivalent(t *testing.T) {
	h := newHarness(t, okEngine())
	ctx := context.Background()

	queued, err := h.sched.Submit(ctx, "same question", []byte("same document"), "txt")
	if err != nil {
		t.Fatalf("queued Submit: %v", err)
	}

	// Drain the queued job through the shared runner, as a worker would.
	task, err := h.broker.Dequeue(ctx)
	if err != nil || task == nil {
		t.Fatalf("Dequeue: task=%+v err=%v", task, err)
	}
	pipelineRunner, err := newHarnessRunner(t, h)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if err := pipelineRunner.Process(ctx, task.JobID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	h.broker.Close()
	inline, err := h.sched.Submit(ctx, "same question", []byte("same document"), "txt")
	if err != nil {
		t.Fatalf("inline Submit: %v", err)
	}

	queuedView, err := h.sched.Status(ctx, queued.JobID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if queuedView.Status != jobs.StatusCompleted || inline.Job.Status != jobs.StatusCompleted {
		t.Fatalf("both modes must complete: queued=%s inline=%s", queuedView.Status, inline.Job.Status)
	}

	queuedReport, err := analysis.DecodeReport(queuedView.ResultJSON)
	if err != nil {
		t.Fatalf("decode queued report: %v", err)
	}
	inlineReport, err := analysis.DecodeReport(inline.Job.ResultJSON)
	if err != nil {
		t.Fatalf("decode inline report: %v", err)
	}
	if len(queuedReport.Stages) != len(inlineReport.Stages) {
		t.Fatalf("stage counts differ: %d vs %d", len(queuedReport.Stages), len(inlineReport.Stages))
	}
	for i := range queuedReport.Stages {
		if queuedReport.Stages[i].Stage != inlineReport.Stages[i].Stage {
			t.Fatalf("stage order differs at %d: %s vs %s",
				i, queuedReport.Stages[i].Stage, inlineReport.Stages[i].Stage)
		}
	}
	if h.artifactCount(t) != 0 {
		t.Fatal("all artifacts must be released")
	}
}

func TestInlineCapacityExhausted(t *testing.T) {
	block := make(chan struct{})
	engine := reasoning.EngineFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		<-block
		return "output", nil
	})
	h := newHarness(t, engine, testsupport.WithMaxInline(1))
	ctx := context.Background()

	h.broker.Close()

	firstDone := make(chan error, 1)
	go func() {
		_, err := h.sched.Submit(ctx, "slow one", []byte("doc"), "txt")
		firstDone <- err
	}()

	// Wait until the first submission occupies the inline slot.
	deadline := time.Now().Add(2 * time.Second)
	for {
		summary, err := h.store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if summary.Processing == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first inline run never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err := h.sched.Submit(ctx, "second", []byte("doc"), "txt")
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected overload error, got %v", err)
	}

	close(block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Submit: %v", err)
	}
}

func TestProcessConflictOnClaimedJob(t *testing.T) {
	h := newHarness(t, okEngine())
	ctx := context.Background()

	outcome, err := h.sched.Submit(ctx, "q", []byte("doc"), "txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.store.MarkProcessing(ctx, outcome.JobID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	runner, err := newHarnessRunner(t, h)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if err := runner.Process(ctx, outcome.JobID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func newHarnessRunner(t *testing.T, h *harness) (*scheduler.Runner, error) {
	t.Helper()

	stages, err := finance.BuildStages(okEngine(), logging.NewNop())
	if err != nil {
		return nil, err
	}
	pipeline, err := analysis.New(analysis.Options{Logger: logging.NewNop(), RetryDelay: time.Millisecond}, stages...)
	if err != nil {
		return nil, err
	}
	return scheduler.NewRunner(h.store, h.artifacts, pipeline, logging.NewNop())
}
