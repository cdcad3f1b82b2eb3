package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrNotFound    = errors.New("not found")
	ErrTimeout     = errors.New("timeout")
	ErrUnavailable = errors.New("unavailable")
	ErrUpstream    = errors.New("upstream error")
	ErrTransient   = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retriable reports whether an error represents a condition worth retrying.
// Timeouts and upstream failures are retriable; validation, conflict, and
// not-found errors signal caller mistakes and never are.
func Retriable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUpstream), errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

// Message extracts a human-readable description from an error, trimming the
// sentinel prefix when present so persisted messages stay compact.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	for _, marker := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrTimeout, ErrUnavailable, ErrUpstream, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(msg, prefix))
		}
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
