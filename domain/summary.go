package domain

import "time"

// Summary statuses, following the queued -> processing -> completed|failed flow.
const (
	SummaryQueued     = "queued"
	SummaryProcessing = "processing"
	SummaryCompleted  = "completed"
	SummaryFailed     = "failed"
)

// JobSummary is a natural-language summary of a job's ranking, produced by an
// external text-generation service from the engine's output.
type JobSummary struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	JobID       uint      `gorm:"not null;index" json:"job_id"`
	Anonymized  bool      `json:"anonymized"`
	Status      string    `gorm:"type:enum('queued','processing','completed','failed');default:'queued'" json:"status"`
	Summary     string    `gorm:"type:text" json:"summary"`
	RankingJSON *string   `gorm:"type:json" json:"-"` // pointer so it can be NULL
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SummaryJob is the queue message asking the worker to summarize a ranking.
type SummaryJob struct {
	SummaryID uint `json:"summary_id"`
	JobID     uint `json:"job_id"`
	Anonymize bool `json:"anonymize"`
}
