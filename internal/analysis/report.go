package analysis

import (
	"encoding/json"
	"fmt"
	"time"
)

// Disclaimer accompanies every aggregated report.
const Disclaimer = "This analysis is for informational purposes only. Consult a qualified financial professional before making investment decisions."

// Report is the aggregated outcome of one pipeline run: an ordered mapping
// from stage name to result, plus degradation metadata. A failed stage never
// contributes placeholder content; it is only listed in FailedStages.
type Report struct {
	Stages       []StageResult `json:"stages"`
	Degraded     bool          `json:"degraded"`
	FailedStages []string      `json:"failed_stages,omitempty"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Disclaimer   string        `json:"disclaimer"`
}

// Result returns the recorded output for a stage name.
func (r *Report) Result(stage string) (StageResult, bool) {
	for _, result := range r.Stages {
		if result.Stage == stage {
			return result, true
		}
	}
	return StageResult{}, false
}

// Encode is the canonical serialization persisted on completed jobs.
func (r *Report) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(data), nil
}

// DecodeReport parses a persisted report payload.
func DecodeReport(payload string) (*Report, error) {
	var report Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
