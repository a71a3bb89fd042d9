package models

import "time"

// SearchRound captures one iteration of the research loop.
// Rounds are append-only; once completed they are never mutated.
type SearchRound struct {
	RoundNumber      int             `json:"round_number"` // 1-based
	Query            string          `json:"query"`
	Results          []SearchResult  `json:"results"`
	Screenshots      []ScreenshotRef `json:"screenshots,omitempty"`
	KeyFindings      string          `json:"key_findings"`
	NextQuery        *string         `json:"next_query"` // nil means the loop should stop
	AnalysisFallback bool            `json:"analysis_fallback,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}
