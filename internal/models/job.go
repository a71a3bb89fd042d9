package models

import "time"

// JobStatus represents the lifecycle state of a research job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Error codes recorded on failed jobs
const (
	JobErrorCodeInterrupted = "interrupted" // Process restarted while the job was running
	JobErrorCodeInternal    = "internal"    // Unexpected error escaped the round loop
	JobErrorCodeStorage     = "storage"     // Persistence failed at a point the job could not absorb
)

// JobError captures why a job entered the failed state
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JobOptions carries the per-job knobs accepted at submission
type JobOptions struct {
	MaxRounds          int    `json:"max_rounds"`
	MaxResultsPerRound int    `json:"max_results_per_round"`
	IncludeScreenshots bool   `json:"include_screenshots"`
	GenerateMarkdown   bool   `json:"generate_markdown"`
	Language           string `json:"language,omitempty"`
}

// ResearchJob is the aggregate root for one research task.
// Written exclusively by the single worker that owns it and read
// concurrently by status pollers.
type ResearchJob struct {
	ID          string          `json:"id" badgerhold:"key"`
	Topic       string          `json:"topic"`
	Status      JobStatus       `json:"status" badgerholdIndex:"Status"`
	Options     JobOptions      `json:"options"`
	Rounds      []SearchRound   `json:"rounds,omitempty"`
	Screenshots []ScreenshotRef `json:"screenshots,omitempty"`
	Analysis    *AnalysisResult `json:"analysis,omitempty"`
	Document    string          `json:"document,omitempty"` // Rendered HTML report
	Markdown    string          `json:"markdown,omitempty"` // Optional markdown rendition
	Error       *JobError       `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewResearchJob creates a pending job for the given topic
func NewResearchJob(id, topic string, options JobOptions) *ResearchJob {
	now := time.Now()
	return &ResearchJob{
		ID:        id,
		Topic:     topic,
		Status:    JobStatusPending,
		Options:   options,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RoundsCompleted returns the number of finished rounds
func (j *ResearchJob) RoundsCompleted() int {
	return len(j.Rounds)
}

// AppendRound records a completed round and accumulates its screenshots
func (j *ResearchJob) AppendRound(round SearchRound) {
	j.Rounds = append(j.Rounds, round)
	j.Screenshots = append(j.Screenshots, round.Screenshots...)
	j.UpdatedAt = time.Now()
}
