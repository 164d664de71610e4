package scoring

import "math"

// GradedAnswer is one submitted answer after resolution.
type GradedAnswer struct {
	Answer
	Resolution Resolution
	// Known reports whether the answer's criterion belongs to the test.
	Known  bool
	Weight float64
	// Weighted is (contribution / 5) * weight, zero when excluded.
	Weighted float64
}

// GradeResult is the deterministic grade of one technical-test submission.
type GradeResult struct {
	// MatchPercentage is round(weightedSum / weightSum * 100), or 0 when no
	// answer contributes.
	MatchPercentage int
	// TotalScore is the weighted average on the 0-5 answer scale.
	TotalScore  float64
	WeightedSum float64
	WeightSum   float64
	Answers     []GradedAnswer
	// Excluded counts answers that did not contribute to the weighted total.
	Excluded int
}

// Grade scores a submission against the criteria of its test. Answers to
// criteria outside the index, open-text answers and unresolvable
// multiple-choice answers are excluded from the weighted total.
func Grade(answers []Answer, criteria CriteriaIndex) GradeResult {
	res := GradeResult{Answers: make([]GradedAnswer, 0, len(answers))}

	for _, a := range answers {
		graded := GradedAnswer{Answer: a, Resolution: Excluded()}

		crit, ok := criteria[a.CriterionID]
		if ok {
			graded.Known = true
			graded.Weight = crit.Weight
			graded.Resolution = Resolve(crit.Question, a)
		}

		if c, scored := graded.Resolution.Contribution(); scored {
			graded.Weighted = c / MaxContribution * crit.Weight
			res.WeightedSum += graded.Weighted
			res.WeightSum += crit.Weight
		} else {
			res.Excluded++
		}
		res.Answers = append(res.Answers, graded)
	}

	if res.WeightSum > 0 {
		ratio := res.WeightedSum / res.WeightSum
		res.MatchPercentage = int(math.Round(ratio * 100))
		res.TotalScore = round2(ratio * MaxContribution)
	}
	return res
}
