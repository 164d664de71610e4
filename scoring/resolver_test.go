package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolve covers each question variant, including the answers that must
// be excluded rather than scored.
func TestResolve(t *testing.T) {
	mc := MultipleChoiceQuestion{Options: []Option{
		{Label: "goroutines", IsCorrect: true},
		{Label: "threads"},
	}}

	tests := []struct {
		name        string
		question    Question
		answer      Answer
		wantScored  bool
		wantPoints  float64
		wantCorrect *bool
	}{
		{
			name:       "rating uses the raw score",
			question:   RatingQuestion{},
			answer:     Answer{Score: ptr(4.0)},
			wantScored: true,
			wantPoints: 4,
		},
		{
			name:     "rating without score is excluded",
			question: RatingQuestion{},
			answer:   Answer{},
		},
		{
			name:        "correct option scores full points",
			question:    mc,
			answer:      Answer{SelectedOptionIndex: ptr(0)},
			wantScored:  true,
			wantPoints:  5,
			wantCorrect: ptr(true),
		},
		{
			name:        "wrong option scores zero",
			question:    mc,
			answer:      Answer{SelectedOptionIndex: ptr(1)},
			wantScored:  true,
			wantPoints:  0,
			wantCorrect: ptr(false),
		},
		{
			name:     "missing option index is excluded",
			question: mc,
			answer:   Answer{},
		},
		{
			name:     "out of range option index is excluded",
			question: mc,
			answer:   Answer{SelectedOptionIndex: ptr(7)},
		},
		{
			name:     "negative option index is excluded",
			question: mc,
			answer:   Answer{SelectedOptionIndex: ptr(-1)},
		},
		{
			name:     "open text never scores",
			question: OpenTextQuestion{},
			answer:   Answer{TextAnswer: "I would use a worker pool", Score: ptr(5.0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.question, tt.answer)
			points, scored := res.Contribution()
			assert.Equal(t, tt.wantScored, scored)
			assert.Equal(t, tt.wantPoints, points)
			if tt.wantCorrect == nil {
				assert.Nil(t, res.IsCorrect)
				return
			}
			require.NotNil(t, res.IsCorrect)
			assert.Equal(t, *tt.wantCorrect, *res.IsCorrect)
		})
	}
}

func TestNewQuestion(t *testing.T) {
	opts := []Option{{Label: "a", IsCorrect: true}}

	assert.Equal(t, QuestionRating, NewQuestion("rating", nil).Type())
	assert.Equal(t, QuestionOpenText, NewQuestion("open_text", nil).Type())
	assert.Equal(t, QuestionRating, NewQuestion("", nil).Type())

	q := NewQuestion("multiple_choice", opts)
	mc, ok := q.(MultipleChoiceQuestion)
	require.True(t, ok)
	assert.Equal(t, opts, mc.Options)
}
