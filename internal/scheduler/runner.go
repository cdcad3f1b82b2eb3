package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"finlens/internal/analysis"
	"finlens/internal/artifacts"
	"finlens/internal/docreader"
	"finlens/internal/jobs"
	"finlens/internal/logging"
	"finlens/internal/services"
)

// Runner executes one job end to end. The same runner serves the inline
// submission path and the queue workers, so the two modes cannot drift apart.
type Runner struct {
	store     *jobs.Store
	artifacts *artifacts.Store
	pipeline  *analysis.Pipeline
	logger    *slog.Logger
}

// NewRunner constructs a job runner.
func NewRunner(store *jobs.Store, artifactStore *artifacts.Store, pipeline *analysis.Pipeline, logger *slog.Logger) (*Runner, error) {
	if store == nil {
		return nil, errors.New("runner requires a job store")
	}
	if artifactStore == nil {
		return nil, errors.New("runner requires an artifact store")
	}
	if pipeline == nil {
		return nil, errors.New("runner requires a pipeline")
	}
	return &Runner{
		store:     store,
		artifacts: artifactStore,
		pipeline:  pipeline,
		logger:    logging.NewComponentLogger(logger, "runner"),
	}, nil
}

// Process claims the job, runs the pipeline, records exactly one terminal
// state, and releases the staged artifact. A claim lost to a concurrent
// processor surfaces as services.ErrConflict before anything else happens.
func (r *Runner) Process(ctx context.Context, jobID string) error {
	job, err := r.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if err := r.store.MarkProcessing(ctx, jobID); err != nil {
		return err
	}

	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, r.logger)

	// The claim winner owns the artifact from here on; it is released once a
	// terminal state is recorded, whatever that state is.
	defer func() {
		if job.ArtifactRef == "" {
			return
		}
		if relErr := r.artifacts.Release(job.ArtifactRef); relErr != nil {
			logger.Error("artifact release failed", logging.Error(relErr))
		}
	}()

	logger.Info("analysis started",
		logging.String(logging.FieldEventType, "job_start"),
	)
	start := time.Now()

	report, runErr := r.analyze(jobCtx, job)
	if runErr != nil {
		return r.fail(ctx, logger, job.ID, runErr)
	}

	encoded, err := report.Encode()
	if err != nil {
		return r.fail(ctx, logger, job.ID, err)
	}
	if err := r.store.MarkCompleted(context.WithoutCancel(ctx), job.ID, encoded); err != nil {
		return err
	}

	logger.Info("analysis completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Bool("degraded", report.Degraded),
		logging.Duration("job_duration", time.Since(start)),
	)
	return nil
}

func (r *Runner) analyze(ctx context.Context, job *jobs.Job) (*analysis.Report, error) {
	content, err := r.artifacts.Read(job.ArtifactRef)
	if err != nil {
		return nil, err
	}
	text, err := docreader.ExtractText(content, filepath.Ext(job.ArtifactRef))
	if err != nil {
		return nil, err
	}
	return r.pipeline.Run(ctx, analysis.NewContext(job.Query, job.ArtifactRef, text))
}

// fail records the failed terminal state. Terminal writes never ride on the
// possibly-cancelled run context: a shutdown mid-analysis must not strand the
// job in processing.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, jobID string, runErr error) error {
	logger.Error("analysis failed",
		logging.String(logging.FieldEventType, "job_failure"),
		logging.Error(runErr),
	)
	if markErr := r.store.MarkFailed(context.WithoutCancel(ctx), jobID, services.Message(runErr)); markErr != nil {
		return errors.Join(runErr, markErr)
	}
	return runErr
}
