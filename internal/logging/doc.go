// Package logging wraps log/slog with the attribute helpers, standardized
// field names, and context-derived loggers used throughout finlens.
//
// Components never construct slog attributes directly; they use the helpers
// here so field names stay consistent between the scheduler, workers, and
// analysis stages. WithContext threads job, stage, mode, and correlation
// identifiers from a context into every record.
package logging
