package domain

import "time"

// Evaluation is one scored answer within a scorecard. Immutable once written.
type Evaluation struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	ScorecardID         uint      `gorm:"not null;index" json:"scorecard_id"`
	CriteriaID          uint      `gorm:"column:criteria_id;not null;index" json:"criteria_id"`
	Score               *float64  `json:"score"`
	Notes               string    `gorm:"type:text" json:"notes"`
	TextAnswer          string    `gorm:"type:text" json:"text_answer"`
	SelectedOptionIndex *int      `json:"selected_option_index"`
	IsCorrect           *bool     `json:"is_correct"`
	CreatedAt           time.Time `json:"created_at"`
}
