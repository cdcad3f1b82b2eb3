package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"finlens/internal/analysis"
	"finlens/internal/analysis/finance"
	"finlens/internal/artifacts"
	"finlens/internal/config"
	"finlens/internal/jobs"
	"finlens/internal/logging"
	"finlens/internal/reasoning"
	"finlens/internal/scheduler"
	"finlens/internal/workqueue"
)

// Daemon wires the stores, broker, pipeline, and worker pool into one
// lifecycle and enforces single-instance execution with a file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *jobs.Store
	artifacts *artifacts.Store
	broker    *workqueue.Broker
	sched     *scheduler.Scheduler
	pool      *workqueue.Pool

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Jobs         jobs.StatsSummary
	QueueDepth   int
	JobDBPath    string
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. The reasoning engine
// defaults to the configured OpenRouter client; tests inject their own.
func New(cfg *config.Config, logger *slog.Logger, engine reasoning.Engine) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	if engine == nil {
		if !cfg.Reasoning.Enabled {
			return nil, errors.New("reasoning engine is disabled; enable [reasoning] in the config")
		}
		engine = reasoning.NewClient(reasoning.Config{
			APIKey:         cfg.Reasoning.APIKey,
			BaseURL:        cfg.Reasoning.BaseURL,
			Model:          cfg.Reasoning.Model,
			Referer:        cfg.Reasoning.Referer,
			Title:          cfg.Reasoning.Title,
			TimeoutSeconds: cfg.Reasoning.TimeoutSeconds,
		})
	}

	store, err := jobs.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	artifactStore, err := artifacts.NewStore(cfg.Paths.ArtifactDir, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	broker, err := workqueue.Open(cfg.QueueDatabasePath(), time.Duration(cfg.Queue.LeaseSeconds)*time.Second)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open queue broker: %w", err)
	}

	stages, err := finance.BuildStages(engine, logger)
	if err != nil {
		closeAll(store, broker)
		return nil, err
	}
	pipeline, err := analysis.New(analysis.Options{
		Logger:             logger,
		MaxRetries:         cfg.Analysis.MaxRetries,
		RetryDelay:         time.Duration(cfg.Analysis.RetryDelayMillis) * time.Millisecond,
		StageTimeout:       time.Duration(cfg.Analysis.StageTimeoutSeconds) * time.Second,
		StopOnFirstFailure: cfg.Analysis.StopOnFirstFailure,
	}, stages...)
	if err != nil {
		closeAll(store, broker)
		return nil, err
	}

	runner, err := scheduler.NewRunner(store, artifactStore, pipeline, logger)
	if err != nil {
		closeAll(store, broker)
		return nil, err
	}
	sched, err := scheduler.New(store, artifactStore, broker, runner, scheduler.Options{
		Logger:           logger,
		MaxQueryChars:    cfg.Analysis.MaxQueryChars,
		MaxDocumentBytes: cfg.Analysis.MaxDocumentBytes,
		MaxInline:        cfg.Scheduler.MaxInline,
	})
	if err != nil {
		closeAll(store, broker)
		return nil, err
	}
	pool, err := workqueue.NewPool(broker, runner, workqueue.PoolOptions{
		Logger:             logger,
		Workers:            cfg.Queue.Workers,
		PollInterval:       time.Duration(cfg.Queue.PollInterval) * time.Second,
		ErrorRetryInterval: time.Duration(cfg.Queue.ErrorRetryInterval) * time.Second,
	})
	if err != nil {
		closeAll(store, broker)
		return nil, err
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		artifacts: artifactStore,
		broker:    broker,
		sched:     sched,
		pool:      pool,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the worker pool.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another finlens daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pool.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start worker pool: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pool.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return closeAll(d.store, d.broker)
}

// Scheduler exposes the submission entry point for in-process callers.
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.sched
}

// Jobs exposes the job store for read-only CLI commands.
func (d *Daemon) Jobs() *jobs.Store {
	return d.store
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	summary, err := d.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	depth, err := d.broker.Depth(ctx)
	if err != nil {
		depth = -1
	}
	return Status{
		Running:      d.running.Load(),
		Jobs:         summary,
		QueueDepth:   depth,
		JobDBPath:    d.cfg.DatabasePath(),
		QueueDBPath:  d.cfg.QueueDatabasePath(),
		LockFilePath: d.lockPath,
	}, nil
}

func closeAll(store *jobs.Store, broker *workqueue.Broker) error {
	var errs []error
	if store != nil {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if broker != nil {
		if err := broker.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
