// Package artifacts manages the temporary on-disk copy of an uploaded
// document while its job is in flight. Every code path that moves a job into
// a terminal state releases the artifact; release is idempotent so worker
// redelivery can never double-delete.
package artifacts
