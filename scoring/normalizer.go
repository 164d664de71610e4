// Package scoring is the pure assessment engine: it normalizes raw criterion
// scores, resolves technical-test answers, aggregates scorecards per candidate,
// ranks candidates of one job and grades test submissions. Nothing in this
// package performs I/O.
package scoring

import "math"

// ScaleType is the raw-score convention of a criterion before normalization.
type ScaleType int

const (
	// ScaleAlreadyNormalized means the raw score is already on 0-100.
	ScaleAlreadyNormalized ScaleType = iota
	// ScaleRating1To5 is a 1-5 rating.
	ScaleRating1To5
	// ScaleRating1To10 is a 1-10 rating.
	ScaleRating1To10
)

// ParseScaleType maps the persisted scale name to a ScaleType. Unknown or
// empty names are treated as already normalized.
func ParseScaleType(s string) ScaleType {
	switch s {
	case "rating_1_5":
		return ScaleRating1To5
	case "rating_1_10":
		return ScaleRating1To10
	default:
		return ScaleAlreadyNormalized
	}
}

func (s ScaleType) String() string {
	switch s {
	case ScaleRating1To5:
		return "rating_1_5"
	case ScaleRating1To10:
		return "rating_1_10"
	default:
		return "already_normalized"
	}
}

// Normalize converts a raw score into the 0-100 range for the given scale.
// Scores outside the scale's valid range are not rejected and produce values
// outside [0, 100]; see Clamp.
func Normalize(score float64, scale ScaleType) float64 {
	switch scale {
	case ScaleRating1To5:
		return (score - 1) / 4 * 100
	case ScaleRating1To10:
		return (score - 1) / 9 * 100
	case ScaleAlreadyNormalized:
		return score
	default:
		return score
	}
}

// Clamp bounds a normalized value to [0, 100].
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
