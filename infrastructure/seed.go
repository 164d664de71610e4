package infrastructure

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

// demoSink receives the demo records in dependency order. Each create must
// assign the record's id.
type demoSink interface {
	createJob(*domain.Job) error
	createTemplate(*domain.Template) error
	createCandidate(*domain.Candidate) error
	createScorecard(*domain.Scorecard) error
}

type demoScorecard struct {
	candidate int
	evaluator string
	comment   string
	age       time.Duration
	scores    map[string]float64
}

func demoInterviewTemplate() domain.Template {
	return domain.Template{
		Name: "Backend Interview",
		Criteria: []domain.Criterion{
			{Name: "Go", Category: "hard_skills", Weight: 30, ScaleType: "rating_1_5", QuestionType: "rating"},
			{Name: "System Design", Category: "hard_skills", Weight: 25, ScaleType: "rating_1_10", QuestionType: "rating"},
			{Name: "Experience", Category: "experiencia", Weight: 20, ScaleType: "rating_1_5", QuestionType: "rating"},
			{Name: "Communication", Category: "soft_skills", Weight: 15, ScaleType: "rating_1_5", QuestionType: "rating"},
			{Name: "Culture", Category: "fit_cultural", Weight: 10, ScaleType: "rating_1_5", QuestionType: "rating"},
		},
	}
}

func demoTestTemplate() domain.Template {
	return domain.Template{
		Name: "Go Fundamentals",
		Criteria: []domain.Criterion{
			{
				Name: "Unbuffered channels", Category: "hard_skills", Weight: 40, ScaleType: "rating_1_5", QuestionType: "multiple_choice",
				Options: datatypes.NewJSONSlice([]scoring.Option{
					{Label: "A send blocks until a receiver is ready", IsCorrect: true},
					{Label: "A send never blocks"},
					{Label: "A send panics without a receiver"},
				}),
			},
			{
				Name: "Context cancellation", Category: "hard_skills", Weight: 30, ScaleType: "rating_1_5", QuestionType: "multiple_choice",
				Options: datatypes.NewJSONSlice([]scoring.Option{
					{Label: "Cancelling a parent cancels its children", IsCorrect: true},
					{Label: "Children must be cancelled one by one"},
				}),
			},
			{Name: "Testing practice", Category: "hard_skills", Weight: 30, ScaleType: "rating_1_5", QuestionType: "rating"},
			{Name: "Hardest bug", Category: "experiencia", Weight: 10, QuestionType: "open_text"},
		},
	}
}

var demoScorecards = []demoScorecard{
	{0, "rec-ana", "Strong Go background, clear communicator.", 72 * time.Hour,
		map[string]float64{"Go": 5, "System Design": 8, "Experience": 4, "Communication": 5, "Culture": 4}},
	{0, "rec-bruno", "Solid, a bit light on distributed systems.", 48 * time.Hour,
		map[string]float64{"Go": 4, "System Design": 6, "Experience": 4, "Communication": 4, "Culture": 5}},
	{1, "rec-ana", "Good fundamentals, needs mentoring on design.", 30 * time.Hour,
		map[string]float64{"Go": 4, "System Design": 5, "Experience": 3, "Communication": 3, "Culture": 4}},
	{2, "rec-bruno", "Excellent architect, limited Go exposure.", 24 * time.Hour,
		map[string]float64{"Go": 3, "System Design": 10, "Experience": 5, "Communication": 4, "Culture": 3}},
	{2, "rec-carla", "Would hire.", 12 * time.Hour,
		map[string]float64{"Go": 4, "System Design": 9, "Experience": 5, "Communication": 5, "Culture": 4}},
}

// seedDemo writes one job with its interview and test templates, three
// candidates and a handful of completed interview scorecards.
func seedDemo(sink demoSink, now time.Time) error {
	job := domain.Job{
		Title: "Backend Engineer (Go)",
		Description: "Product engineer for the assessment platform: Go services, MySQL, RabbitMQ, " +
			"API design and integration with text-generation services.",
	}
	if err := sink.createJob(&job); err != nil {
		return err
	}

	interview, test := demoInterviewTemplate(), demoTestTemplate()
	for _, t := range []*domain.Template{&interview, &test} {
		if err := sink.createTemplate(t); err != nil {
			return err
		}
	}

	candidates := []domain.Candidate{
		{Name: "Ana Souza", Email: "ana.souza@example.com"},
		{Name: "Bruno Lima", Email: "bruno.lima@example.com"},
		{Name: "Carla Mendes", Email: "carla.mendes@example.com"},
	}
	for i := range candidates {
		if err := sink.createCandidate(&candidates[i]); err != nil {
			return err
		}
	}

	idx := domain.IndexCriteria(interview.Criteria)

	for _, d := range demoScorecards {
		sc := domain.Scorecard{
			CandidateID: candidates[d.candidate].ID,
			JobID:       job.ID,
			TemplateID:  interview.ID,
			EvaluatorID: d.evaluator,
			Kind:        domain.KindInternal,
			Comments:    &d.comment,
			CreatedAt:   now.Add(-d.age),
		}
		var scores []scoring.EvaluationScore
		for _, c := range interview.Criteria {
			v, ok := d.scores[c.Name]
			if !ok {
				continue
			}
			score := v
			sc.Evaluations = append(sc.Evaluations, domain.Evaluation{CriteriaID: c.ID, Score: &score})
			scores = append(scores, scoring.EvaluationScore{CriterionID: c.ID, Score: &score})
		}
		totals := scoring.Complete(scores, idx)
		sc.TotalScore = &totals.TotalScore
		sc.MatchPercentage = &totals.MatchPercentage

		if err := sink.createScorecard(&sc); err != nil {
			return err
		}
	}
	return nil
}

// SeedDemo fills an empty memory store with the demo data set.
func (m *MemoryStore) SeedDemo() error {
	return seedDemo(memorySink{m}, m.now())
}

type memorySink struct{ m *MemoryStore }

func (s memorySink) createJob(j *domain.Job) error { *j = s.m.AddJob(*j); return nil }

func (s memorySink) createTemplate(t *domain.Template) error { *t = s.m.AddTemplate(*t); return nil }

func (s memorySink) createCandidate(c *domain.Candidate) error { *c = s.m.AddCandidate(*c); return nil }

func (s memorySink) createScorecard(sc *domain.Scorecard) error { *sc = s.m.AddScorecard(*sc); return nil }

type gormSink struct{ tx *gorm.DB }

func (s gormSink) createJob(j *domain.Job) error { return s.tx.Create(j).Error }

func (s gormSink) createTemplate(t *domain.Template) error { return s.tx.Create(t).Error }

func (s gormSink) createCandidate(c *domain.Candidate) error { return s.tx.Create(c).Error }

func (s gormSink) createScorecard(sc *domain.Scorecard) error { return s.tx.Create(sc).Error }
