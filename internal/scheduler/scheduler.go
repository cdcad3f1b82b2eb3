package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"finlens/internal/artifacts"
	"finlens/internal/docreader"
	"finlens/internal/jobs"
	"finlens/internal/logging"
	"finlens/internal/services"
	"finlens/internal/workqueue"
)

// Mode records how a submission is being executed.
type Mode string

const (
	// ModeQueued means the job was handed to the durable queue.
	ModeQueued Mode = "queued"
	// ModeInline means the job ran on the submitter's goroutine because the
	// queue was unavailable.
	ModeInline Mode = "inline"
)

// SubmissionOutcome reports what Submit did with a valid request. The status
// polling contract is identical in both modes.
type SubmissionOutcome struct {
	Mode  Mode
	JobID string
	Job   jobs.View
}

// Options configures a scheduler.
type Options struct {
	Logger *slog.Logger
	// MaxQueryChars bounds the query length in runes.
	MaxQueryChars int
	// MaxDocumentBytes bounds the uploaded document size.
	MaxDocumentBytes int64
	// MaxInline bounds concurrent inline fallback runs.
	MaxInline int
}

// Scheduler validates submissions, stages their artifacts, and routes them to
// the durable queue, falling back to bounded inline execution when the queue
// backend is down.
type Scheduler struct {
	store       *jobs.Store
	artifacts   *artifacts.Store
	broker      *workqueue.Broker
	runner      *Runner
	opts        Options
	logger      *slog.Logger
	inlineSlots chan struct{}
}

// New constructs a scheduler.
func New(store *jobs.Store, artifactStore *artifacts.Store, broker *workqueue.Broker, runner *Runner, opts Options) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("scheduler requires a job store")
	}
	if artifactStore == nil {
		return nil, errors.New("scheduler requires an artifact store")
	}
	if broker == nil {
		return nil, errors.New("scheduler requires a queue broker")
	}
	if runner == nil {
		return nil, errors.New("scheduler requires a runner")
	}
	if opts.MaxQueryChars <= 0 {
		opts.MaxQueryChars = 1000
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = 25 << 20
	}
	if opts.MaxInline <= 0 {
		opts.MaxInline = 1
	}
	return &Scheduler{
		store:       store,
		artifacts:   artifactStore,
		broker:      broker,
		runner:      runner,
		opts:        opts,
		logger:      logging.NewComponentLogger(opts.Logger, "scheduler"),
		inlineSlots: make(chan struct{}, opts.MaxInline),
	}, nil
}

// Submit validates the request, stages the document, creates the job, and
// enqueues it. Validation happens before any artifact is written, so a
// rejected request leaves no trace. When the queue backend is unavailable the
// job runs inline on the caller's goroutine instead.
func (s *Scheduler) Submit(ctx context.Context, query string, document []byte, declaredExt string) (*SubmissionOutcome, error) {
	query, err := s.validate(query, document, declaredExt)
	if err != nil {
		return nil, err
	}

	ref, err := s.artifacts.Acquire(document, declaredExt)
	if err != nil {
		return nil, err
	}

	job, err := s.store.Create(ctx, query, ref)
	if err != nil {
		s.releaseQuietly(ref)
		return nil, err
	}

	enqErr := s.broker.Enqueue(ctx, job.ID)
	if enqErr == nil {
		s.logger.Info("job queued",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldMode, string(ModeQueued)),
		)
		return &SubmissionOutcome{Mode: ModeQueued, JobID: job.ID, Job: job.View()}, nil
	}
	if !errors.Is(enqErr, services.ErrUnavailable) {
		s.terminalizeUnrunnable(ctx, job.ID, "job could not be enqueued")
		s.releaseQuietly(ref)
		return nil, enqErr
	}

	return s.runInline(ctx, job, enqErr)
}

// Status returns the redacted record for a job.
func (s *Scheduler) Status(ctx context.Context, jobID string) (jobs.View, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return jobs.View{}, err
	}
	return job.View(), nil
}

func (s *Scheduler) validate(query string, document []byte, declaredExt string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", services.Wrap(services.ErrValidation, "scheduler", "submit", "query must not be empty", nil)
	}
	if chars := utf8.RuneCountInString(query); chars > s.opts.MaxQueryChars {
		return "", services.Wrap(services.ErrValidation, "scheduler", "submit",
			fmt.Sprintf("query is %d characters, maximum is %d", chars, s.opts.MaxQueryChars), nil)
	}
	if len(document) == 0 {
		return "", services.Wrap(services.ErrValidation, "scheduler", "submit", "document is empty", nil)
	}
	if int64(len(document)) > s.opts.MaxDocumentBytes {
		return "", services.Wrap(services.ErrValidation, "scheduler", "submit",
			fmt.Sprintf("document is %d bytes, maximum is %d", len(document), s.opts.MaxDocumentBytes), nil)
	}
	if err := docreader.CheckSignature(document, declaredExt); err != nil {
		return "", err
	}
	return query, nil
}

// runInline executes the job on the caller's goroutine, bounded by the inline
// capacity. Past the bound the submission is refused rather than silently
// piling up foreground work.
func (s *Scheduler) runInline(ctx context.Context, job *jobs.Job, enqErr error) (*SubmissionOutcome, error) {
	select {
	case s.inlineSlots <- struct{}{}:
		defer func() { <-s.inlineSlots }()
	default:
		s.terminalizeUnrunnable(ctx, job.ID, "queue unavailable and inline capacity exhausted")
		s.releaseQuietly(job.ArtifactRef)
		return nil, services.Wrap(services.ErrUnavailable, "scheduler", "submit",
			"queue unavailable and inline capacity exhausted", enqErr)
	}

	inlineCtx := services.WithMode(ctx, string(ModeInline))
	s.logger.Warn("queue unavailable, running job inline",
		logging.String(logging.FieldJobID, job.ID),
		logging.Error(enqErr),
	)

	if err := s.runner.Process(inlineCtx, job.ID); err != nil {
		// The runner already terminalized the job; the submission itself
		// succeeded, exactly as it would have in queued mode.
		s.logger.Warn("inline run ended in failure",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}

	current, err := s.store.GetByID(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return &SubmissionOutcome{Mode: ModeInline, JobID: job.ID, Job: current.View()}, nil
}

// terminalizeUnrunnable moves a freshly created job that will never be
// executed into the failed state so status polling still converges.
func (s *Scheduler) terminalizeUnrunnable(ctx context.Context, jobID, reason string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.MarkProcessing(ctx, jobID); err != nil {
		s.logger.Error("terminalize claim failed", logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return
	}
	if err := s.store.MarkFailed(ctx, jobID, reason); err != nil {
		s.logger.Error("terminalize failed", logging.String(logging.FieldJobID, jobID), logging.Error(err))
	}
}

func (s *Scheduler) releaseQuietly(ref string) {
	if ref == "" {
		return
	}
	if err := s.artifacts.Release(ref); err != nil {
		s.logger.Error("artifact release failed", logging.Error(err))
	}
}
