package scoring

import "math"

// CompletionResult holds the totals computed once when an evaluator completes
// an internal scorecard.
type CompletionResult struct {
	// MatchPercentage is the weight-biased mean of normalized scores, rounded.
	MatchPercentage float64
	// TotalScore is the plain mean of normalized scores, one decimal.
	TotalScore float64
	Scored     int
	Excluded   int
}

// Complete computes the totals of an internal scorecard. Unknown criteria and
// missing or non-finite scores are excluded. When every scored criterion has
// zero weight the match percentage falls back to the plain mean.
func Complete(evaluations []EvaluationScore, criteria CriteriaIndex) CompletionResult {
	var (
		res       CompletionResult
		sum       float64
		weighted  float64
		weightSum float64
	)

	for _, ev := range evaluations {
		crit, ok := criteria[ev.CriterionID]
		if !ok || ev.Score == nil || math.IsNaN(*ev.Score) || math.IsInf(*ev.Score, 0) {
			res.Excluded++
			continue
		}
		v := Clamp(Normalize(*ev.Score, crit.Scale))
		sum += v
		weighted += v * crit.Weight
		weightSum += crit.Weight
		res.Scored++
	}

	if res.Scored == 0 {
		return res
	}

	mean := sum / float64(res.Scored)
	res.TotalScore = round1(mean)
	if weightSum > 0 {
		res.MatchPercentage = math.Round(weighted / weightSum)
	} else {
		res.MatchPercentage = math.Round(mean)
	}
	return res
}
