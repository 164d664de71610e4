package domain

import (
	"time"

	"gorm.io/datatypes"

	"scorecard-engine/scoring"
)

// Template is a named set of criteria used by scorecards.
type Template struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Name      string      `gorm:"size:255;not null" json:"name"`
	Criteria  []Criterion `gorm:"foreignKey:TemplateID" json:"criteria,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Criterion is one weighted question of a template.
type Criterion struct {
	ID           uint                               `gorm:"primaryKey" json:"id"`
	TemplateID   uint                               `gorm:"not null;index" json:"template_id"`
	Name         string                             `gorm:"size:255;not null" json:"name"`
	Category     string                             `gorm:"size:32;not null;default:'outros'" json:"category"`
	Weight       float64                            `gorm:"not null;default:1" json:"weight"`
	ScaleType    string                             `gorm:"size:32;not null;default:'rating_1_5'" json:"scale_type"`
	QuestionType string                             `gorm:"size:32;not null;default:'rating'" json:"question_type"`
	Options      datatypes.JSONSlice[scoring.Option] `gorm:"type:json" json:"options,omitempty"`
	Position     int                                `json:"position"`
	CreatedAt    time.Time                          `json:"created_at"`
}

func (Criterion) TableName() string { return "criteria" }

// Spec converts the stored criterion into the engine's tagged form.
func (c Criterion) Spec() scoring.Criterion {
	return scoring.Criterion{
		ID:       c.ID,
		Name:     c.Name,
		Category: scoring.ParseCategory(c.Category),
		Weight:   c.Weight,
		Scale:    scoring.ParseScaleType(c.ScaleType),
		Question: scoring.NewQuestion(c.QuestionType, c.Options),
	}
}

// IndexCriteria builds the engine lookup for a set of stored criteria.
func IndexCriteria(criteria []Criterion) scoring.CriteriaIndex {
	specs := make([]scoring.Criterion, len(criteria))
	for i, c := range criteria {
		specs[i] = c.Spec()
	}
	return scoring.NewCriteriaIndex(specs)
}

// PublicCriterion is what a test respondent sees: no correctness markers.
type PublicCriterion struct {
	ID           uint     `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	QuestionType string   `json:"question_type"`
	Options      []string `json:"options,omitempty"`
}

func (c Criterion) Public() PublicCriterion {
	q := c.Spec().Question
	pub := PublicCriterion{
		ID:           c.ID,
		Name:         c.Name,
		Category:     string(scoring.ParseCategory(c.Category)),
		QuestionType: string(q.Type()),
	}
	if mc, ok := q.(scoring.MultipleChoiceQuestion); ok {
		pub.Options = make([]string, len(mc.Options))
		for i, o := range mc.Options {
			pub.Options[i] = o.Label
		}
	}
	return pub
}
