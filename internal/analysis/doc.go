// Package analysis defines the stage contract and the pipeline that composes
// stages into one aggregated report.
//
// Stages declare dependencies by name; the pipeline validates the graph at
// construction time, executes in declaration order unless a dependency forces
// reordering, retries retriable failures with a minimum delay, and either
// aborts on the first exhausted failure or degrades the report depending on
// configuration.
package analysis
