package scoring

// MaxContribution is the top of the 1-5 answer scale used by technical tests.
const MaxContribution = 5.0

// QuestionType is the persisted name of a question kind.
type QuestionType string

const (
	QuestionRating         QuestionType = "rating"
	QuestionOpenText       QuestionType = "open_text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
)

// Question is how a criterion is answered in a technical test. The set of
// implementations is closed: RatingQuestion, OpenTextQuestion and
// MultipleChoiceQuestion.
type Question interface {
	Type() QuestionType
	sealed()
}

// RatingQuestion is answered with a 1-5 score.
type RatingQuestion struct{}

// OpenTextQuestion is answered with free text and graded by a human.
type OpenTextQuestion struct{}

// MultipleChoiceQuestion is answered by picking one of Options.
type MultipleChoiceQuestion struct {
	Options []Option
}

// Option is one multiple-choice alternative.
type Option struct {
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct"`
}

func (RatingQuestion) Type() QuestionType         { return QuestionRating }
func (OpenTextQuestion) Type() QuestionType       { return QuestionOpenText }
func (MultipleChoiceQuestion) Type() QuestionType { return QuestionMultipleChoice }

func (RatingQuestion) sealed()         {}
func (OpenTextQuestion) sealed()       {}
func (MultipleChoiceQuestion) sealed() {}

// NewQuestion builds the Question variant for a persisted question type.
// Unknown types fall back to rating.
func NewQuestion(t string, options []Option) Question {
	switch QuestionType(t) {
	case QuestionOpenText:
		return OpenTextQuestion{}
	case QuestionMultipleChoice:
		return MultipleChoiceQuestion{Options: options}
	default:
		return RatingQuestion{}
	}
}

// Answer is one respondent answer to one criterion.
type Answer struct {
	CriterionID         uint
	Score               *float64
	TextAnswer          string
	SelectedOptionIndex *int
	Notes               string
}

// Resolution is the outcome of resolving one answer. An excluded resolution
// carries no contribution and does not count towards the weighted total.
type Resolution struct {
	contribution float64
	scored       bool
	IsCorrect    *bool
}

// Scored returns a resolution contributing c points on the 0-5 scale.
func Scored(c float64, isCorrect *bool) Resolution {
	return Resolution{contribution: c, scored: true, IsCorrect: isCorrect}
}

// Excluded returns a resolution that does not contribute.
func Excluded() Resolution {
	return Resolution{}
}

// Contribution returns the 0-5 contribution and whether there is one.
func (r Resolution) Contribution() (float64, bool) {
	return r.contribution, r.scored
}

// Resolve determines the contribution of one answer given its question.
func Resolve(q Question, a Answer) Resolution {
	switch q := q.(type) {
	case RatingQuestion:
		if a.Score == nil {
			return Excluded()
		}
		return Scored(*a.Score, nil)
	case MultipleChoiceQuestion:
		idx := a.SelectedOptionIndex
		if idx == nil || *idx < 0 || *idx >= len(q.Options) {
			return Excluded()
		}
		correct := q.Options[*idx].IsCorrect
		if correct {
			return Scored(MaxContribution, &correct)
		}
		return Scored(0, &correct)
	case OpenTextQuestion:
		return Excluded()
	default:
		return Excluded()
	}
}
