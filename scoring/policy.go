package scoring

// MinConfidentEvaluators is the evaluator count below which a candidate is
// flagged low_confidence. It is part of the output contract and not tunable.
const MinConfidentEvaluators = 2

// Policy holds the tunable presentation rules of the engine.
type Policy struct {
	// TopCriteria caps the top_criteria list of an aggregated candidate.
	TopCriteria int `yaml:"top_criteria" validate:"min=1,max=20"`

	// AnonymousLabel prefixes positional labels in anonymized rankings.
	AnonymousLabel string `yaml:"anonymous_label" validate:"required,max=50"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		TopCriteria:    3,
		AnonymousLabel: "Candidato",
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.TopCriteria <= 0 {
		p.TopCriteria = def.TopCriteria
	}
	if p.AnonymousLabel == "" {
		p.AnonymousLabel = def.AnonymousLabel
	}
	return p
}
