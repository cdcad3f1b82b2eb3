package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an analysis job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the durable record of one analysis request.
type Job struct {
	ID           string
	Query        string
	ArtifactRef  string
	Status       Status
	ResultJSON   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// View is the caller-facing projection of a Job. The raw artifact reference is
// internal plumbing and never leaves the core.
type View struct {
	ID           string    `json:"id"`
	Query        string    `json:"query"`
	Status       Status    `json:"status"`
	ResultJSON   string    `json:"result,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// View returns the redacted projection of the job.
func (j *Job) View() View {
	return View{
		ID:           j.ID,
		Query:        j.Query,
		Status:       j.Status,
		ResultJSON:   j.ResultJSON,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

// StatsSummary describes aggregated job counts per lifecycle state.
type StatsSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
