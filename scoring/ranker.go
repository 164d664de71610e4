package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// anonymousNamespace seeds the synthetic ids of anonymized candidates.
var anonymousNamespace = uuid.MustParse("6f1c1e0a-3b7d-5c1e-9a4f-2d8b7e6c5a10")

// RankedCandidate is an aggregated candidate with its position in a ranking.
type RankedCandidate struct {
	Rank int `json:"rank"`
	AggregatedCandidate
}

// Stats summarizes the scores of one job's ranking.
type Stats struct {
	TotalCandidates int     `json:"totalCandidates"`
	AverageScore    float64 `json:"averageScore"`
	TopScore        float64 `json:"topScore"`
	LowScore        float64 `json:"lowScore"`
}

// Ranking is the Compare output. Stats is nil when there are no candidates.
type Ranking struct {
	Candidates []RankedCandidate `json:"candidates"`
	Stats      *Stats            `json:"stats"`
}

// Ranker orders aggregated candidates of one job.
type Ranker struct {
	policy Policy
}

// NewRanker returns a Ranker applying policy.
func NewRanker(policy Policy) *Ranker {
	return &Ranker{policy: policy.withDefaults()}
}

// Rank sorts candidates by TotalScoreAvg, highest first. The sort is stable:
// candidates with equal scores keep their input order. With anonymize set,
// names and ids are replaced by LabelOf(rank) and SyntheticID(rank), assigned
// after sorting. The input slice is not modified.
func (r *Ranker) Rank(candidates []AggregatedCandidate, anonymize bool) Ranking {
	if len(candidates) == 0 {
		return Ranking{Candidates: []RankedCandidate{}}
	}

	sorted := append([]AggregatedCandidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalScoreAvg > sorted[j].TotalScoreAvg
	})

	ranked := make([]RankedCandidate, len(sorted))
	var sum float64
	for i, c := range sorted {
		rank := i + 1
		if anonymize {
			c.CandidateName = r.LabelOf(rank)
			c.CandidateID = r.SyntheticID(rank)
		}
		ranked[i] = RankedCandidate{Rank: rank, AggregatedCandidate: c}
		sum += c.TotalScoreAvg
	}

	return Ranking{
		Candidates: ranked,
		Stats: &Stats{
			TotalCandidates: len(ranked),
			AverageScore:    math.Round(sum / float64(len(ranked))),
			TopScore:        ranked[0].TotalScoreAvg,
			LowScore:        ranked[len(ranked)-1].TotalScoreAvg,
		},
	}
}

// LabelOf returns the display label of the candidate at rank (1-based).
func (r *Ranker) LabelOf(rank int) string {
	return fmt.Sprintf("%s %d", r.policy.AnonymousLabel, rank)
}

// SyntheticID returns a stable identifier for the anonymized candidate at
// rank. It depends only on the rank and the label prefix.
func (r *Ranker) SyntheticID(rank int) string {
	return uuid.NewSHA1(anonymousNamespace, []byte(r.LabelOf(rank))).String()
}
