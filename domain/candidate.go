package domain

import (
	"strconv"
	"time"

	"scorecard-engine/scoring"
)

type Candidate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Ref returns the identity used by the aggregator.
func (c Candidate) Ref() scoring.CandidateRef {
	return scoring.CandidateRef{ID: strconv.FormatUint(uint64(c.ID), 10), Name: c.Name}
}
