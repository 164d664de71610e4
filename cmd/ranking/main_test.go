package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

func TestRender(t *testing.T) {
	color.NoColor = true

	ranking := scoring.Ranking{
		Candidates: []scoring.RankedCandidate{
			{Rank: 1, AggregatedCandidate: scoring.AggregatedCandidate{CandidateName: "Candidato 1", TotalScoreAvg: 91.5, EvaluatorsCount: 2,
				TopCriteria: []scoring.CriterionScore{{Criterion: "Go", Average: 95}}}},
			{Rank: 2, AggregatedCandidate: scoring.AggregatedCandidate{CandidateName: "Candidato 2", TotalScoreAvg: 70, EvaluatorsCount: 1, LowConfidence: true}},
		},
		Stats: &scoring.Stats{TotalCandidates: 2, AverageScore: 81, TopScore: 91.5, LowScore: 70},
	}

	var buf bytes.Buffer
	render(&buf, domain.Job{Title: "Backend Engineer"}, ranking)
	out := buf.String()

	assert.Contains(t, out, "=== Backend Engineer ===")
	assert.Contains(t, out, "Candidato 1")
	assert.Contains(t, out, "Go 95.0")
	assert.Contains(t, out, "low")
	assert.Contains(t, out, "Statistics")
}

func TestRender_Empty(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	render(&buf, domain.Job{Title: "Empty"}, scoring.Ranking{Candidates: []scoring.RankedCandidate{}})

	assert.Contains(t, buf.String(), "No completed scorecards")
}
