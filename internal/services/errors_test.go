package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrValidation, "scheduler", "submit", "query must not be empty", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation tag, got %v", err)
	}
	if !strings.Contains(err.Error(), "scheduler: submit: query must not be empty") {
		t.Fatalf("missing detail in %q", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrUnavailable, "workqueue", "enqueue", "queue backend error", cause)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("wrapping lost a link: %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "x", "y", "z", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestRetriable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{Wrap(ErrValidation, "a", "b", "c", nil), false},
		{Wrap(ErrConflict, "a", "b", "c", nil), false},
		{Wrap(ErrNotFound, "a", "b", "c", nil), false},
		{Wrap(ErrTimeout, "a", "b", "c", nil), true},
		{Wrap(ErrUpstream, "a", "b", "c", nil), true},
		{Wrap(ErrTransient, "a", "b", "c", nil), true},
		{errors.New("untagged"), false},
	}
	for _, tc := range cases {
		if got := Retriable(tc.err); got != tc.want {
			t.Fatalf("Retriable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestMessageStripsSentinelPrefix(t *testing.T) {
	err := Wrap(ErrNotFound, "jobs", "get", "job 42", nil)
	if got := Message(err); got != "jobs: get: job 42" {
		t.Fatalf("Message = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Fatalf("Message = %q", got)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("Message(nil) = %q", got)
	}
}
