// Package jobs persists analysis job records in SQLite and enforces the job
// lifecycle state machine:
//
//	pending -> processing -> completed | failed
//
// Transitions are single guarded UPDATE statements, so two concurrent callers
// attempting the same transition produce exactly one winner; the loser gets a
// conflict error. Terminal states are never left and records are never deleted
// by the core.
package jobs
