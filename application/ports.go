// Package application orchestrates the scoring engine against the record
// store: it loads inputs, runs the engine and performs the single write a
// grading or completion requires.
package application

import (
	"context"
	"time"

	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

// ScorecardStore is the read/write boundary of the engine. Implementations
// wrap their own failures in *domain.StoreError.
type ScorecardStore interface {
	// Job returns domain.ErrJobNotFound when id does not resolve.
	Job(ctx context.Context, id uint) (*domain.Job, error)

	// ScorecardsByJob returns every scorecard of a job with its evaluations,
	// most recent first.
	ScorecardsByJob(ctx context.Context, jobID uint) ([]domain.Scorecard, error)

	// CandidatesByIDs returns the candidates ordered by id ascending.
	CandidatesByIDs(ctx context.Context, ids []uint) ([]domain.Candidate, error)

	// Candidate returns domain.ErrCandidateNotFound when id does not resolve.
	Candidate(ctx context.Context, id uint) (*domain.Candidate, error)

	// Template returns domain.ErrTemplateNotFound when id does not resolve.
	Template(ctx context.Context, id uint) (*domain.Template, error)

	// CriteriaByTemplates returns the criteria of the given templates ordered
	// by template and position.
	CriteriaByTemplates(ctx context.Context, templateIDs []uint) ([]domain.Criterion, error)

	// Scorecard returns domain.ErrScorecardNotFound when id does not resolve.
	Scorecard(ctx context.Context, id uint) (*domain.Scorecard, error)

	// ScorecardByToken returns domain.ErrScorecardNotFound when no scorecard
	// carries token.
	ScorecardByToken(ctx context.Context, token string) (*domain.Scorecard, error)

	CreateScorecard(ctx context.Context, sc *domain.Scorecard) error

	// SubmitTest stores the grade of a technical test only if it has not been
	// submitted yet, together with its evaluations, atomically. It returns
	// domain.ErrAlreadySubmitted when no row was updated.
	SubmitTest(ctx context.Context, scorecardID uint, result domain.ScorecardResult) error

	// CompleteScorecard stores the totals of an internal scorecard only if it
	// has none yet, atomically with its evaluations. It returns
	// domain.ErrAlreadyCompleted when no row was updated.
	CompleteScorecard(ctx context.Context, scorecardID uint, result domain.ScorecardResult) error
}

// SummaryUpdate is a partial update of a JobSummary.
type SummaryUpdate struct {
	Status      string
	Summary     string
	RankingJSON *string
	Error       string
}

// SummaryStore persists ranking summaries.
type SummaryStore interface {
	CreateSummary(ctx context.Context, s *domain.JobSummary) error
	// Summary returns domain.ErrSummaryNotFound when id does not resolve.
	Summary(ctx context.Context, id uint) (*domain.JobSummary, error)
	UpdateSummary(ctx context.Context, id uint, u SummaryUpdate) error
}

// Store is everything the service reads and writes.
type Store interface {
	ScorecardStore
	SummaryStore
}

// SummaryQueue hands summary jobs to the background worker.
type SummaryQueue interface {
	PublishSummaryJob(ctx context.Context, job domain.SummaryJob) error
}

// Summarizer is the external text-generation collaborator. It receives the
// engine's output and never influences scores.
type Summarizer interface {
	Summarize(ctx context.Context, job domain.Job, ranking scoring.Ranking) (string, error)
}

// MetricsCollector records operational metrics.
type MetricsCollector interface {
	RecordLatency(operation string, duration time.Duration, labels map[string]string)
	RecordCounter(metric string, value float64, labels map[string]string)
	RecordHistogram(metric string, value float64, labels map[string]string)
}

type noopMetrics struct{}

func (noopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (noopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (noopMetrics) RecordHistogram(string, float64, map[string]string)     {}
