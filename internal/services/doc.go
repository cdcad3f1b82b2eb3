// Package services defines the shared error taxonomy and context annotations
// used across the scheduler, stores, and analysis stages.
//
// Errors are classified with sentinel markers so callers can branch with
// errors.Is without inspecting message text: validation, conflict, and
// not-found errors are surfaced to the submitter immediately and never
// retried; timeout and upstream errors are retriable at the stage level;
// unavailability of the work queue broker triggers the scheduler's inline
// fallback and is never user-visible.
package services
