// Package workqueue provides the durable task queue between job submission
// and background analysis: a SQLite-backed broker with lease-based
// redelivery, and a worker pool that drains it.
package workqueue
