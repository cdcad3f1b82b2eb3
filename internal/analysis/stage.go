package analysis

import "context"

// Stage is the contract every analysis stage satisfies. Implementations must
// be pure with respect to the Context: all state a stage produces travels in
// its returned StageResult, never through shared mutable state, so the
// pipeline is free to choose any execution policy.
type Stage interface {
	// Name identifies the stage in reports, logs, and dependency declarations.
	Name() string
	// Requires lists the names of stages whose results must be available
	// before this stage executes.
	Requires() []string
	// Execute runs the stage against a read-only view of the job.
	Execute(ctx context.Context, pc Context) (StageResult, error)
}

// StageResult is the output of one stage execution.
type StageResult struct {
	Stage    string   `json:"stage"`
	Output   string   `json:"output"`
	Warnings []string `json:"warnings,omitempty"`
}
