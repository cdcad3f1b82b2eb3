package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finlens/internal/logging"
	"finlens/internal/services"
)

const (
	defaultMaxRetries = 1
	defaultRetryDelay = 250 * time.Millisecond
)

// Options controls pipeline execution policy.
type Options struct {
	Logger *slog.Logger
	// MaxRetries is how many times a retriable stage failure is retried
	// after the first attempt. Negative disables retries.
	MaxRetries int
	// RetryDelay is the minimum pause before a retry attempt.
	RetryDelay time.Duration
	// StageTimeout bounds each stage execution; an exceeded budget is a
	// retriable timeout failure. Zero disables the budget.
	StageTimeout time.Duration
	// StopOnFirstFailure aborts the run on the first exhausted stage
	// failure instead of degrading the report.
	StopOnFirstFailure bool
}

// Pipeline executes an ordered set of stages with declared dependencies and
// aggregates their results into a single report.
type Pipeline struct {
	stages []Stage
	opts   Options
	logger *slog.Logger
}

// New validates the stage set and returns a ready pipeline. Validation is
// eager: unknown dependencies and cycles are configuration errors surfaced
// here, never at run time.
func New(opts Options, stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline requires at least one stage")
	}

	byName := make(map[string]Stage, len(stages))
	for _, stg := range stages {
		name := strings.TrimSpace(stg.Name())
		if name == "" {
			return nil, errors.New("pipeline stage with empty name")
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("duplicate pipeline stage %q", name)
		}
		byName[name] = stg
	}
	for _, stg := range stages {
		for _, dep := range stg.Requires() {
			if dep == stg.Name() {
				return nil, fmt.Errorf("stage %q depends on itself", stg.Name())
			}
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("stage %q requires undeclared stage %q", stg.Name(), dep)
			}
		}
	}

	ordered, err := sortStages(stages)
	if err != nil {
		return nil, err
	}

	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	return &Pipeline{
		stages: ordered,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "pipeline"),
	}, nil
}

// StageNames returns the resolved execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, stg := range p.stages {
		names = append(names, stg.Name())
	}
	return names
}

// Run executes every stage once its dependencies' results are available and
// aggregates the outcomes. With StopOnFirstFailure disabled, a failed stage
// only drags down its (transitive) dependents; independent stages still run
// and the report is marked degraded. A run where no stage produced output is
// a pipeline-level failure.
func (p *Pipeline) Run(ctx context.Context, pc Context) (*Report, error) {
	var (
		results   []StageResult
		failed    []string
		firstErr  error
		failedSet = make(map[string]struct{})
	)

	for _, stg := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if blocked, dep := p.blockedBy(stg, failedSet); blocked {
			p.stageLogger(ctx, stg.Name()).Warn("stage skipped; dependency failed",
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String("failed_dependency", dep),
			)
			failedSet[stg.Name()] = struct{}{}
			failed = append(failed, stg.Name())
			continue
		}

		result, err := p.runStage(ctx, stg, pc)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil, err
			}
			if p.opts.StopOnFirstFailure {
				return nil, err
			}
			failedSet[stg.Name()] = struct{}{}
			failed = append(failed, stg.Name())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		results = append(results, result)
		pc = pc.withOutput(result)
	}

	if len(results) == 0 {
		if firstErr == nil {
			firstErr = errors.New("pipeline produced no results")
		}
		return nil, firstErr
	}

	return &Report{
		Stages:       results,
		Degraded:     len(failed) > 0,
		FailedStages: failed,
		GeneratedAt:  time.Now().UTC(),
		Disclaimer:   Disclaimer,
	}, nil
}

func (p *Pipeline) blockedBy(stg Stage, failedSet map[string]struct{}) (bool, string) {
	for _, dep := range stg.Requires() {
		if _, bad := failedSet[dep]; bad {
			return true, dep
		}
	}
	return false, ""
}

func (p *Pipeline) runStage(ctx context.Context, stg Stage, pc Context) (StageResult, error) {
	name := stg.Name()
	attempts := 1 + p.opts.MaxRetries
	logger := p.stageLogger(ctx, name)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.Int("attempt", attempt),
		)
		start := time.Now()

		result, err := p.executeOnce(ctx, stg, pc)
		if err == nil {
			if result.Stage == "" {
				result.Stage = name
			}
			logger.Info("stage completed",
				logging.String(logging.FieldEventType, "stage_complete"),
				logging.Duration("stage_duration", time.Since(start)),
				logging.Int("warnings", len(result.Warnings)),
			)
			return result, nil
		}

		stageErr := classifyStageError(name, err)
		lastErr = stageErr
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Bool("retriable", stageErr.Retriable),
			logging.Int("attempt", attempt),
			logging.Error(stageErr),
		)

		if !stageErr.Retriable || attempt == attempts {
			return StageResult{}, stageErr
		}
		if err := p.pause(ctx); err != nil {
			return StageResult{}, err
		}
	}
	return StageResult{}, lastErr
}

func (p *Pipeline) executeOnce(ctx context.Context, stg Stage, pc Context) (StageResult, error) {
	stageCtx := services.WithStage(ctx, stg.Name())
	if p.opts.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, p.opts.StageTimeout)
		defer cancel()
	}

	result, err := stg.Execute(stageCtx, pc)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return StageResult{}, NewStageError(stg.Name(), true,
			services.Wrap(services.ErrTimeout, stg.Name(), "execute", "stage exceeded its time budget", nil))
	}
	return result, err
}

func (p *Pipeline) pause(ctx context.Context) error {
	timer := time.NewTimer(p.opts.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) stageLogger(ctx context.Context, stage string) *slog.Logger {
	return logging.WithContext(services.WithStage(ctx, stage), p.logger)
}

// classifyStageError normalizes any stage failure into a StageError. Errors
// already typed keep their classification; upstream and timeout failures
// become retriable, everything else permanent.
func classifyStageError(stage string, err error) *StageError {
	if stageErr, ok := AsStageError(err); ok {
		if stageErr.Stage == "" {
			stageErr.Stage = stage
		}
		return stageErr
	}
	return NewStageError(stage, services.Retriable(err), err)
}

// sortStages orders stages so every dependency precedes its dependents while
// preserving declaration order among unconstrained stages.
func sortStages(stages []Stage) ([]Stage, error) {
	placed := make(map[string]struct{}, len(stages))
	visiting := make(map[string]struct{}, len(stages))
	byName := make(map[string]Stage, len(stages))
	for _, stg := range stages {
		byName[stg.Name()] = stg
	}

	ordered := make([]Stage, 0, len(stages))
	var place func(stg Stage) error
	place = func(stg Stage) error {
		name := stg.Name()
		if _, done := placed[name]; done {
			return nil
		}
		if _, cycling := visiting[name]; cycling {
			return fmt.Errorf("stage dependency cycle involving %q", name)
		}
		visiting[name] = struct{}{}
		for _, dep := range stg.Requires() {
			if err := place(byName[dep]); err != nil {
				return err
			}
		}
		delete(visiting, name)
		placed[name] = struct{}{}
		ordered = append(ordered, stg)
		return nil
	}

	for _, stg := range stages {
		if err := place(stg); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
