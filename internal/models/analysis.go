package models

// AnalysisCategory groups related findings under a named heading
type AnalysisCategory struct {
	Name   string   `json:"name"`
	Points []string `json:"points"`
}

// AnalysisSource attributes a finding to a result URL with a reliability estimate
type AnalysisSource struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Reliability float64 `json:"reliability"` // 0..1
}

// AnalysisResult is the final cross-round synthesis of a research job.
// Fallback is true when the model output could not be parsed and
// conservative defaults were substituted; Confidence is never absent.
type AnalysisResult struct {
	Summary    string             `json:"summary"`
	KeyPoints  []string           `json:"key_points"`
	Categories []AnalysisCategory `json:"categories,omitempty"`
	Sources    []AnalysisSource   `json:"sources,omitempty"`
	Confidence float64            `json:"confidence"` // 0..1, defaults to 0.1 on parse failure
	Fallback   bool               `json:"fallback,omitempty"`
}

// RoundAnalysis is the per-round model verdict: findings so far and
// the query for the next round, or nil when no further round is warranted.
type RoundAnalysis struct {
	KeyFindings string  `json:"key_findings"`
	NextQuery   *string `json:"next_query"`
	Fallback    bool    `json:"fallback,omitempty"`
}
