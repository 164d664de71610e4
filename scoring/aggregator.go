package scoring

import (
	"math"
	"sort"
	"time"
)

// EvaluationScore is one evaluator's raw score on one criterion.
type EvaluationScore struct {
	CriterionID uint
	Score       *float64
	// Graded marks a technical-test contribution on the 0-5 answer scale.
	// Such scores ignore the criterion's scale type.
	Graded bool
}

// normalized returns the 0-100 value of a scored evaluation.
func (e EvaluationScore) normalized(crit Criterion) float64 {
	if e.Graded {
		return Clamp(*e.Score / MaxContribution * 100)
	}
	return Clamp(Normalize(*e.Score, crit.Scale))
}

// ScorecardInput is one evaluator's scorecard as seen by the aggregator.
type ScorecardInput struct {
	ID              uint
	EvaluatorID     string
	MatchPercentage *float64
	TotalScore      *float64
	Comment         string
	CreatedAt       time.Time
	Evaluations     []EvaluationScore
}

// Total returns the scorecard's own precomputed score, preferring
// MatchPercentage over TotalScore. A scorecard without either is not complete.
func (s ScorecardInput) Total() (float64, bool) {
	switch {
	case s.MatchPercentage != nil:
		return *s.MatchPercentage, true
	case s.TotalScore != nil:
		return *s.TotalScore, true
	default:
		return 0, false
	}
}

// CandidateRef identifies the candidate being aggregated.
type CandidateRef struct {
	ID   string
	Name string
}

// CriterionScore is the averaged normalized score of one criterion.
type CriterionScore struct {
	Criterion   string   `json:"criterion"`
	Category    Category `json:"category"`
	Average     float64  `json:"average"`
	Weight      float64  `json:"weight"`
	Evaluations int      `json:"evaluations"`
}

// CategoryScore is the averaged normalized score of one category.
type CategoryScore struct {
	Category Category `json:"category"`
	Average  float64  `json:"average"`
	Weight   float64  `json:"weight"`
	Criteria int      `json:"criteria"`
}

// Comment is an evaluator's overall scorecard comment.
type Comment struct {
	EvaluatorID string    `json:"evaluator_id"`
	Comment     string    `json:"comment"`
	Date        time.Time `json:"date"`
}

// AggregatedCandidate is the combined view of every completed scorecard of
// one candidate.
type AggregatedCandidate struct {
	CandidateID         string           `json:"candidate_id"`
	CandidateName       string           `json:"candidate_name"`
	TotalScoreAvg       float64          `json:"total_score_avg"`
	EvaluatorsCount     int              `json:"evaluators_count"`
	Breakdown           []CriterionScore `json:"breakdown"`
	CategoryBreakdown   []CategoryScore  `json:"category_breakdown"`
	TopCriteria         []CriterionScore `json:"top_criteria"`
	Comments            []Comment        `json:"comments"`
	LastEvaluationDate  time.Time        `json:"last_evaluation_date"`
	LowConfidence       bool             `json:"low_confidence"`
	ExcludedEvaluations int              `json:"excluded_evaluations"`
}

// Aggregator combines the scorecards of a candidate. It is stateless and safe
// for concurrent use.
type Aggregator struct {
	policy Policy
}

// NewAggregator returns an Aggregator applying policy. Zero fields of policy
// take their DefaultPolicy value.
func NewAggregator(policy Policy) *Aggregator {
	return &Aggregator{policy: policy.withDefaults()}
}

type criterionAcc struct {
	name     string
	category Category
	weight   float64
	sum      float64
	n        int
}

type categoryAcc struct {
	sum      float64
	n        int
	weight   float64
	criteria map[string]struct{}
}

// Aggregate builds the AggregatedCandidate for one candidate. It returns false
// when the candidate has no completed scorecard, in which case the candidate
// must be left out of any output.
//
// Evaluations whose criterion is unknown or whose score is not a finite
// number are excluded and counted in ExcludedEvaluations. Evaluations with no
// score (open text) are skipped.
func (a *Aggregator) Aggregate(
	candidate CandidateRef,
	scorecards []ScorecardInput,
	criteria CriteriaIndex,
) (AggregatedCandidate, bool) {
	completed := make([]ScorecardInput, 0, len(scorecards))
	for _, sc := range scorecards {
		if _, ok := sc.Total(); ok {
			completed = append(completed, sc)
		}
	}
	if len(completed) == 0 {
		return AggregatedCandidate{}, false
	}

	// Most recent evaluation first.
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CreatedAt.After(completed[j].CreatedAt)
	})

	out := AggregatedCandidate{
		CandidateID:     candidate.ID,
		CandidateName:   candidate.Name,
		EvaluatorsCount: len(completed),
		Comments:        []Comment{},
	}

	var (
		totalSum float64
		order    []string
		byName   = make(map[string]*criterionAcc)
		byCat    = make(map[Category]*categoryAcc)
	)

	for _, sc := range completed {
		total, _ := sc.Total()
		totalSum += total

		if sc.CreatedAt.After(out.LastEvaluationDate) {
			out.LastEvaluationDate = sc.CreatedAt
		}
		if sc.Comment != "" {
			out.Comments = append(out.Comments, Comment{
				EvaluatorID: sc.EvaluatorID,
				Comment:     sc.Comment,
				Date:        sc.CreatedAt,
			})
		}

		for _, ev := range sc.Evaluations {
			crit, ok := criteria[ev.CriterionID]
			if !ok {
				out.ExcludedEvaluations++
				continue
			}
			if ev.Score == nil {
				continue
			}
			if math.IsNaN(*ev.Score) || math.IsInf(*ev.Score, 0) {
				out.ExcludedEvaluations++
				continue
			}

			v := ev.normalized(crit)

			acc, ok := byName[crit.Name]
			if !ok {
				acc = &criterionAcc{name: crit.Name, category: crit.Category, weight: crit.Weight}
				byName[crit.Name] = acc
				order = append(order, crit.Name)
			}
			acc.sum += v
			acc.n++

			cat, ok := byCat[crit.Category]
			if !ok {
				cat = &categoryAcc{criteria: make(map[string]struct{})}
				byCat[crit.Category] = cat
			}
			cat.sum += v
			cat.n++
			if _, seen := cat.criteria[crit.Name]; !seen {
				cat.criteria[crit.Name] = struct{}{}
				cat.weight += crit.Weight
			}
		}
	}

	out.TotalScoreAvg = round1(totalSum / float64(len(completed)))
	out.LowConfidence = out.EvaluatorsCount < MinConfidentEvaluators

	out.Breakdown = make([]CriterionScore, 0, len(order))
	for _, name := range order {
		acc := byName[name]
		out.Breakdown = append(out.Breakdown, CriterionScore{
			Criterion:   acc.name,
			Category:    acc.category,
			Average:     round1(acc.sum / float64(acc.n)),
			Weight:      acc.weight,
			Evaluations: acc.n,
		})
	}
	sort.SliceStable(out.Breakdown, func(i, j int) bool {
		return out.Breakdown[i].Average > out.Breakdown[j].Average
	})

	top := min(a.policy.TopCriteria, len(out.Breakdown))
	out.TopCriteria = append([]CriterionScore(nil), out.Breakdown[:top]...)

	out.CategoryBreakdown = make([]CategoryScore, 0, len(byCat))
	for _, c := range Categories {
		cat, ok := byCat[c]
		if !ok {
			continue
		}
		out.CategoryBreakdown = append(out.CategoryBreakdown, CategoryScore{
			Category: c,
			Average:  round1(cat.sum / float64(cat.n)),
			Weight:   cat.weight,
			Criteria: len(cat.criteria),
		})
	}

	return out, true
}
