package workqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finlens/internal/logging"
	"finlens/internal/services"
)

// Runner processes one job end to end: claim it, run the analysis, record the
// outcome. A claim lost to a concurrent processor surfaces as
// services.ErrConflict.
type Runner interface {
	Process(ctx context.Context, jobID string) error
}

// PoolOptions configures a worker pool.
type PoolOptions struct {
	Logger *slog.Logger
	// Workers is the number of concurrent polling goroutines.
	Workers int
	// PollInterval is the pause between polls when the queue is empty.
	PollInterval time.Duration
	// ErrorRetryInterval is the pause after a queue backend failure.
	ErrorRetryInterval time.Duration
}

// Pool pulls tasks from a broker and hands them to a runner. Each worker
// acks a task once the runner has recorded a terminal outcome for it; tasks
// whose worker dies are redelivered when their lease expires.
type Pool struct {
	broker *Broker
	runner Runner
	opts   PoolOptions
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewPool constructs a worker pool.
func NewPool(broker *Broker, runner Runner, opts PoolOptions) (*Pool, error) {
	if broker == nil {
		return nil, errors.New("workqueue pool requires a broker")
	}
	if runner == nil {
		return nil, errors.New("workqueue pool requires a runner")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ErrorRetryInterval <= 0 {
		opts.ErrorRetryInterval = 10 * time.Second
	}
	return &Pool{
		broker: broker,
		runner: runner,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "workqueue"),
	}, nil
}

// Start launches the worker goroutines. It is an error to start a running
// pool.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New("worker pool already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true

	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		worker := i + 1
		go func() {
			defer p.wg.Done()
			p.runWorker(runCtx, worker)
		}()
	}
	p.logger.Info("worker pool started", logging.Int("workers", p.opts.Workers))
	return nil
}

// Stop signals the workers and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.started = false
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) runWorker(ctx context.Context, worker int) {
	logger := p.logger.With(logging.Int("worker", worker))
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := p.broker.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue poll failed", logging.Error(err))
			if !sleepCtx(ctx, p.opts.ErrorRetryInterval) {
				return
			}
			continue
		}
		if task == nil {
			if !sleepCtx(ctx, p.opts.PollInterval) {
				return
			}
			continue
		}

		p.handleTask(ctx, logger, task)
	}
}

func (p *Pool) handleTask(ctx context.Context, logger *slog.Logger, task *Task) {
	taskCtx := services.WithJobID(services.WithMode(ctx, "queued"), task.JobID)
	taskLogger := logging.WithContext(taskCtx, logger)

	err := p.runner.Process(taskCtx, task.JobID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrConflict):
		// Redelivered task whose job another processor already claimed.
		taskLogger.Warn("job already claimed, dropping task",
			logging.Int("attempts", task.Attempts))
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// Shutdown mid-task: leave the task leased so it is redelivered.
		taskLogger.Warn("task interrupted by shutdown")
		return
	default:
		taskLogger.Error("job processing failed", logging.Error(err))
	}

	if ackErr := p.broker.Ack(context.WithoutCancel(ctx), task.ID); ackErr != nil {
		taskLogger.Error("task ack failed",
			logging.Error(fmt.Errorf("ack task %d: %w", task.ID, ackErr)))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
