// Package daemon composes the job store, artifact store, queue broker,
// analysis pipeline, and worker pool into a single lifecycle with flock-based
// locking to prevent multiple instances.
package daemon
