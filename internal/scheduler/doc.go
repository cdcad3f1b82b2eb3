// Package scheduler owns job submission and execution: request validation,
// artifact staging, queue handoff with inline fallback, and the runner shared
// by both execution modes.
package scheduler
