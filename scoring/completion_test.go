package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplete(t *testing.T) {
	got := Complete([]EvaluationScore{
		{CriterionID: 1, Score: ptr(5.0)},  // 100, weight 40
		{CriterionID: 2, Score: ptr(3.0)},  // 50, weight 20
		{CriterionID: 3, Score: ptr(10.0)}, // 100, weight 30
		{CriterionID: 50, Score: ptr(3.0)},
		{CriterionID: 4},
	}, testCriteria())

	assert.Equal(t, 3, got.Scored)
	assert.Equal(t, 2, got.Excluded)
	assert.Equal(t, 89.0, got.MatchPercentage)
	assert.Equal(t, 83.3, got.TotalScore)
}

func TestComplete_ZeroWeightsFallBackToMean(t *testing.T) {
	idx := NewCriteriaIndex([]Criterion{{ID: 1, Scale: ScaleRating1To5}, {ID: 2, Scale: ScaleRating1To5}})

	got := Complete([]EvaluationScore{
		{CriterionID: 1, Score: ptr(5.0)},
		{CriterionID: 2, Score: ptr(4.0)},
	}, idx)

	assert.Equal(t, 88.0, got.MatchPercentage)
	assert.Equal(t, 87.5, got.TotalScore)
}

func TestComplete_NothingScored(t *testing.T) {
	got := Complete(nil, testCriteria())
	assert.Zero(t, got.Scored)
	assert.Zero(t, got.MatchPercentage)
}
