package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Weighting/internal/generation"
)

// ReverseRequestEvent asks for a reverse generation run over stored plans.
// Weights are keyed by response id; Waves optionally maps response id to
// the wave the respondent was sampled in.
type ReverseRequestEvent struct {
	SubsetIDs []string                         `json:"subset_ids"`
	Keep      []string                         `json:"keep,omitempty"`
	Responses map[string][]generation.Response `json:"responses"`
	Weights   map[int]float64                  `json:"weights"`
	Waves     map[int]int                      `json:"waves,omitempty"`
}

type CalculationCompletedEvent struct {
	Cells              int       `json:"cells"`
	Converged          bool      `json:"converged"`
	IterationsRequired int       `json:"iterations_required"`
	EfficiencyScore    float64   `json:"efficiency_score"`
	Timestamp          time.Time `json:"timestamp"`
}

type ReverseCompletedEvent struct {
	RunID     string    `json:"run_id"`
	SubsetIDs []string  `json:"subset_ids"`
	Warnings  int       `json:"warnings"`
	Errors    int       `json:"errors"`
	Fatal     bool      `json:"fatal"`
	Timestamp time.Time `json:"timestamp"`
}

type SubsetCommittedEvent struct {
	SubsetID  string    `json:"subset_id"`
	Version   int       `json:"version"`
	Scheme    string    `json:"scheme"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
