package workqueue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"finlens/internal/logging"
	"finlens/internal/services"
	"finlens/internal/workqueue"
)

type recordingRunner struct {
	mu        sync.Mutex
	processed []string
	fail      map[string]error
	done      chan string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{
		fail: make(map[string]error),
		done: make(chan string, 16),
	}
}

func (r *recordingRunner) Process(ctx context.Context, jobID string) error {
	r.mu.Lock()
	r.processed = append(r.processed, jobID)
	err := r.fail[jobID]
	r.mu.Unlock()
	r.done <- jobID
	return err
}

func (r *recordingRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(r.processed))
	copy(cp, r.processed)
	return cp
}

func waitFor(t *testing.T, runner *recordingRunner, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for i := 0; i < want; i++ {
		select {
		case <-runner.done:
		case <-deadline:
			t.Fatalf("timed out waiting for %d processed jobs, saw %v", want, runner.seen())
		}
	}
}

func startPool(t *testing.T, broker *workqueue.Broker, runner workqueue.Runner, workers int) *workqueue.Pool {
	t.Helper()
	pool, err := workqueue.NewPool(broker, runner, workqueue.PoolOptions{
		Logger:             logging.NewNop(),
		Workers:            workers,
		PollInterval:       5 * time.Millisecond,
		ErrorRetryInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(pool.Stop)
	return pool
}

func TestPoolProcessesAndAcks(t *testing.T) {
	broker := openBroker(t, time.Minute)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := broker.Enqueue(ctx, id); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	runner := newRecordingRunner()
	startPool(t, broker, runner, 2)
	waitFor(t, runner, 3)

	deadline := time.Now().Add(2 * time.Second)
	for {
		depth, err := broker.Depth(ctx)
		if err != nil {
			t.Fatalf("Depth: %v", err)
		}
		if depth == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue not drained, depth %d", depth)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolAcksConflictedTasks(t *testing.T) {
	// A redelivered task whose job is already claimed must be dropped, not
	// retried forever.
	broker := openBroker(t, time.Minute)
	ctx := context.Background()

	if err := broker.Enqueue(ctx, "claimed"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := newRecordingRunner()
	runner.fail["claimed"] = services.Wrap(services.ErrConflict, "jobs", "transition", "job claimed is processing", nil)
	startPool(t, broker, runner, 1)
	waitFor(t, runner, 1)

	deadline := time.Now().Add(2 * time.Second)
	for {
		depth, err := broker.Depth(ctx)
		if err != nil {
			t.Fatalf("Depth: %v", err)
		}
		if depth == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("conflicted task never acked, depth %d", depth)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolStopIsIdempotent(t *testing.T) {
	broker := openBroker(t, time.Minute)
	runner := newRecordingRunner()
	pool := startPool(t, broker, runner, 2)

	pool.Stop()
	pool.Stop()

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	pool.Stop()
}

func TestDoubleStartFails(t *testing.T) {
	broker := openBroker(t, time.Minute)
	runner := newRecordingRunner()
	pool := startPool(t, broker, runner, 1)

	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("expected error starting a running pool")
	}
}
