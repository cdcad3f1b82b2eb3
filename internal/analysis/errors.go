package analysis

import (
	"errors"
	"fmt"
)

// StageError is the typed failure raised by a stage. Retriable errors are
// retried per pipeline policy; the rest fail the stage immediately.
type StageError struct {
	Stage     string
	Retriable bool
	Err       error
}

func (e *StageError) Error() string {
	kind := "permanent"
	if e.Retriable {
		kind = "retriable"
	}
	return fmt.Sprintf("stage %s: %s failure: %v", e.Stage, kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err as a stage failure.
func NewStageError(stage string, retriable bool, err error) *StageError {
	return &StageError{Stage: stage, Retriable: retriable, Err: err}
}

// AsStageError extracts a StageError from an error chain.
func AsStageError(err error) (*StageError, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}
