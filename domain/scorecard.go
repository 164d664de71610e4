package domain

import (
	"time"

	"scorecard-engine/scoring"
)

// Scorecard kinds.
const (
	KindInternal      = "internal"
	KindTechnicalTest = "technical_test"
)

// Scorecard is one evaluator's assessment of one candidate for one job. It is
// created empty and written exactly once when its evaluations are attached.
type Scorecard struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	CandidateID     uint         `gorm:"not null;index" json:"candidate_id"`
	JobID           uint         `gorm:"not null;index" json:"job_id"`
	TemplateID      uint         `gorm:"not null" json:"template_id"`
	EvaluatorID     string       `gorm:"size:64" json:"evaluator_id"`
	Kind            string       `gorm:"type:enum('internal','technical_test');default:'internal'" json:"kind"`
	ExternalToken   *string      `gorm:"size:64;uniqueIndex" json:"-"`
	TotalScore      *float64     `json:"total_score"`
	MatchPercentage *float64     `json:"match_percentage"`
	Comments        *string      `gorm:"type:text" json:"comments"`
	CreatedAt       time.Time    `json:"created_at"`
	ExpiresAt       *time.Time   `json:"expires_at"`
	SubmittedAt     *time.Time   `json:"submitted_at"`
	Evaluations     []Evaluation `gorm:"foreignKey:ScorecardID" json:"evaluations,omitempty"`
}

// ScorecardResult is the single write that completes a scorecard.
type ScorecardResult struct {
	TotalScore      float64
	MatchPercentage float64
	Comments        *string
	// SubmittedAt is set for technical tests only.
	SubmittedAt *time.Time
	Evaluations []Evaluation
}

func (s *Scorecard) IsTechnicalTest() bool { return s.Kind == KindTechnicalTest }

// IsCompleted reports whether the scorecard carries its own total.
func (s *Scorecard) IsCompleted() bool {
	return s.TotalScore != nil || s.MatchPercentage != nil
}

// CheckSubmittable runs the technical-test preconditions in order: the
// scorecard must exist and be a technical test, must not be submitted yet and
// must not be expired at now.
func (s *Scorecard) CheckSubmittable(now time.Time) error {
	if s == nil || !s.IsTechnicalTest() {
		return ErrTestNotFound
	}
	if s.SubmittedAt != nil {
		return ErrAlreadySubmitted
	}
	if s.ExpiresAt != nil && s.ExpiresAt.Before(now) {
		return ErrLinkExpired
	}
	return nil
}

// Input converts the scorecard for the aggregator.
func (s Scorecard) Input() scoring.ScorecardInput {
	in := scoring.ScorecardInput{
		ID:              s.ID,
		EvaluatorID:     s.EvaluatorID,
		MatchPercentage: s.MatchPercentage,
		TotalScore:      s.TotalScore,
		CreatedAt:       s.CreatedAt,
		Evaluations:     make([]scoring.EvaluationScore, len(s.Evaluations)),
	}
	if s.Comments != nil {
		in.Comment = *s.Comments
	}
	for i, ev := range s.Evaluations {
		in.Evaluations[i] = scoring.EvaluationScore{
			CriterionID: ev.CriteriaID,
			Score:       ev.Score,
			Graded:      s.Kind == KindTechnicalTest,
		}
	}
	return in
}
