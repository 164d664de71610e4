package application_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"scorecard-engine/application"
	"scorecard-engine/domain"
	"scorecard-engine/infrastructure"
	"scorecard-engine/scoring"
)

func ptr[T any](v T) *T { return &v }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     *infrastructure.MemoryStore
	svc       *application.Service
	clock     *clock
	job       domain.Job
	emptyJob  domain.Job
	interview domain.Template
	test      domain.Template
	alice     domain.Candidate
	bob       domain.Candidate
	carol     domain.Candidate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: infrastructure.NewMemoryStore(),
		clock: &clock{now: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)},
	}
	f.job = f.store.AddJob(domain.Job{Title: "Backend Engineer"})
	f.emptyJob = f.store.AddJob(domain.Job{Title: "Designer"})
	f.interview = f.store.AddTemplate(domain.Template{
		Name: "Interview",
		Criteria: []domain.Criterion{
			{Name: "Go", Category: "hard_skills", Weight: 40, ScaleType: "rating_1_5", QuestionType: "rating"},
			{Name: "Design", Category: "hard_skills", Weight: 30, ScaleType: "rating_1_10", QuestionType: "rating"},
			{Name: "Communication", Category: "soft_skills", Weight: 30, ScaleType: "rating_1_5", QuestionType: "rating"},
		},
	})
	f.test = f.store.AddTemplate(domain.Template{
		Name: "Go Test",
		Criteria: []domain.Criterion{
			{
				Name: "Channels", Category: "hard_skills", Weight: 40, ScaleType: "rating_1_5", QuestionType: "multiple_choice",
				Options: datatypes.NewJSONSlice([]scoring.Option{{Label: "blocks", IsCorrect: true}, {Label: "never blocks"}}),
			},
			{Name: "Testing", Category: "hard_skills", Weight: 60, ScaleType: "rating_1_5", QuestionType: "rating"},
			{Name: "Story", Category: "experiencia", Weight: 10, QuestionType: "open_text"},
		},
	})
	f.alice = f.store.AddCandidate(domain.Candidate{Name: "Alice"})
	f.bob = f.store.AddCandidate(domain.Candidate{Name: "Bob"})
	f.carol = f.store.AddCandidate(domain.Candidate{Name: "Carol"})

	goID := f.interview.Criteria[0].ID
	base := f.clock.Now().Add(-48 * time.Hour)
	f.store.AddScorecard(domain.Scorecard{
		CandidateID: f.alice.ID, JobID: f.job.ID, TemplateID: f.interview.ID, EvaluatorID: "rec-1",
		MatchPercentage: ptr(80.0), Comments: ptr("solid"), CreatedAt: base,
		Evaluations: []domain.Evaluation{{CriteriaID: goID, Score: ptr(4.0)}},
	})
	f.store.AddScorecard(domain.Scorecard{
		CandidateID: f.alice.ID, JobID: f.job.ID, TemplateID: f.interview.ID, EvaluatorID: "rec-2",
		MatchPercentage: ptr(90.0), CreatedAt: base.Add(time.Hour),
		Evaluations: []domain.Evaluation{{CriteriaID: goID, Score: ptr(5.0)}},
	})
	f.store.AddScorecard(domain.Scorecard{
		CandidateID: f.bob.ID, JobID: f.job.ID, TemplateID: f.interview.ID, EvaluatorID: "rec-1",
		MatchPercentage: ptr(95.0), CreatedAt: base,
	})
	// Carol's only scorecard is still open.
	f.store.AddScorecard(domain.Scorecard{
		CandidateID: f.carol.ID, JobID: f.job.ID, TemplateID: f.interview.ID, EvaluatorID: "rec-3", CreatedAt: base,
	})

	f.svc = application.NewService(application.Deps{
		Store:       f.store,
		Policy:      scoring.DefaultPolicy(),
		TestLinkTTL: 24 * time.Hour,
		Now:         f.clock.Now,
	})
	return f
}

func (f *fixture) testLink(t *testing.T) *application.TestLink {
	t.Helper()
	link, err := f.svc.CreateTestLink(context.Background(), application.TestLinkRequest{
		CandidateID: f.carol.ID,
		JobID:       f.job.ID,
		TemplateID:  f.test.ID,
	})
	require.NoError(t, err)
	return link
}

func (f *fixture) answers() []scoring.Answer {
	return []scoring.Answer{
		{CriterionID: f.test.Criteria[0].ID, SelectedOptionIndex: ptr(0)},
		{CriterionID: f.test.Criteria[1].ID, Score: ptr(4.0)},
		{CriterionID: f.test.Criteria[2].ID, TextAnswer: "a race in a cache"},
	}
}

func TestAggregate(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Aggregate(context.Background(), f.job.ID)
	require.NoError(t, err)

	require.Equal(t, 2, res.TotalCandidates)
	require.Len(t, res.Candidates, 2)

	alice := res.Candidates[0]
	assert.Equal(t, "Alice", alice.CandidateName)
	assert.Equal(t, 85.0, alice.TotalScoreAvg)
	assert.Equal(t, 2, alice.EvaluatorsCount)
	assert.False(t, alice.LowConfidence)
	require.Len(t, alice.Breakdown, 1)
	assert.Equal(t, 87.5, alice.Breakdown[0].Average)

	bob := res.Candidates[1]
	assert.Equal(t, "Bob", bob.CandidateName)
	assert.True(t, bob.LowConfidence)
}

func TestAggregate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Aggregate(ctx, f.emptyJob.ID)
	assert.ErrorIs(t, err, domain.ErrNoScorecards)

	_, err = f.svc.Aggregate(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = f.svc.Aggregate(ctx, 0)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "job_id is required", verr.Error())
}

func TestCompare(t *testing.T) {
	f := newFixture(t)

	ranking, err := f.svc.Compare(context.Background(), f.job.ID, false)
	require.NoError(t, err)

	require.Len(t, ranking.Candidates, 2)
	assert.Equal(t, "Bob", ranking.Candidates[0].CandidateName)
	assert.Equal(t, 1, ranking.Candidates[0].Rank)
	assert.Equal(t, "Alice", ranking.Candidates[1].CandidateName)
	require.NotNil(t, ranking.Stats)
	assert.Equal(t, 2, ranking.Stats.TotalCandidates)
	assert.Equal(t, 90.0, ranking.Stats.AverageScore)
	assert.Equal(t, 95.0, ranking.Stats.TopScore)
	assert.Equal(t, 85.0, ranking.Stats.LowScore)
}

func TestCompare_Anonymized(t *testing.T) {
	f := newFixture(t)

	ranking, err := f.svc.Compare(context.Background(), f.job.ID, true)
	require.NoError(t, err)

	require.Len(t, ranking.Candidates, 2)
	for i, c := range ranking.Candidates {
		assert.Equal(t, []string{"Candidato 1", "Candidato 2"}[i], c.CandidateName)
		assert.Len(t, c.CandidateID, 36)
	}
	assert.Equal(t, 95.0, ranking.Candidates[0].TotalScoreAvg)
}

func TestCompare_NoScorecards(t *testing.T) {
	f := newFixture(t)

	ranking, err := f.svc.Compare(context.Background(), f.emptyJob.ID, false)
	require.NoError(t, err)
	assert.Empty(t, ranking.Candidates)
	assert.NotNil(t, ranking.Candidates)
	assert.Nil(t, ranking.Stats)
}

func TestSubmitTest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.testLink(t)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), link.ExpiresAt)

	res, err := f.svc.SubmitTest(ctx, link.Token, f.answers())
	require.NoError(t, err)

	// 40 * 5/5 + 60 * 4/5 = 88 out of 100
	assert.True(t, res.Success)
	assert.Equal(t, 88, res.MatchPercentage)
	assert.Equal(t, 4.4, res.TotalScore)

	sc, err := f.store.Scorecard(ctx, link.ScorecardID)
	require.NoError(t, err)
	require.NotNil(t, sc.SubmittedAt)
	assert.Equal(t, 88.0, *sc.MatchPercentage)
	require.Len(t, sc.Evaluations, 3)
	mc := sc.Evaluations[0]
	require.NotNil(t, mc.IsCorrect)
	assert.True(t, *mc.IsCorrect)
	assert.Equal(t, 5.0, *mc.Score)
	assert.Nil(t, sc.Evaluations[2].Score)
	assert.Equal(t, "a race in a cache", sc.Evaluations[2].TextAnswer)

	// The graded test now counts for Carol.
	agg, err := f.svc.Aggregate(ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.TotalCandidates)
}

func TestSubmitTest_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitTest(ctx, "no-such-token", f.answers())
	assert.EqualError(t, err, "Test not found")

	link := f.testLink(t)
	_, err = f.svc.SubmitTest(ctx, link.Token, f.answers())
	require.NoError(t, err)

	_, err = f.svc.SubmitTest(ctx, link.Token, f.answers())
	assert.EqualError(t, err, "Test already submitted")

	expired := f.testLink(t)
	f.clock.Advance(24*time.Hour + time.Second)
	_, err = f.svc.SubmitTest(ctx, expired.Token, f.answers())
	assert.EqualError(t, err, "Test link has expired")
}

func TestSubmitTest_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		token   string
		answers []scoring.Answer
		want    string
	}{
		{"missing token", "", f.answers(), "token is required"},
		{"missing answers", "tok", nil, "answers is required"},
		{"missing criteria id", "tok", []scoring.Answer{{Score: ptr(3.0)}}, "answers[0].criteria_id is required"},
		{"duplicate criteria", "tok", []scoring.Answer{{CriterionID: 1}, {CriterionID: 1}}, "answers[1].criteria_id 1 is answered more than once"},
		{"score out of range", "tok", []scoring.Answer{{CriterionID: 1, Score: ptr(6.0)}}, "answers[0].score must be between 1 and 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitTest(ctx, tt.token, tt.answers)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Errors, tt.want)
		})
	}
}

func TestSubmitTest_OutOfRangeOptionIsExcluded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, idx := range []int{-1, 2, 99} {
		link := f.testLink(t)
		res, err := f.svc.SubmitTest(ctx, link.Token, []scoring.Answer{
			{CriterionID: f.test.Criteria[0].ID, SelectedOptionIndex: ptr(idx)},
			{CriterionID: f.test.Criteria[1].ID, Score: ptr(5.0)},
		})
		require.NoError(t, err, "index %d", idx)
		assert.Equal(t, 100, res.MatchPercentage, "index %d", idx)

		sc, err := f.store.Scorecard(ctx, link.ScorecardID)
		require.NoError(t, err)
		require.Len(t, sc.Evaluations, 2)
		assert.Nil(t, sc.Evaluations[0].Score)
		assert.Nil(t, sc.Evaluations[0].IsCorrect)
		assert.Equal(t, idx, *sc.Evaluations[0].SelectedOptionIndex)
	}
}

func TestSubmitTest_BreakdownMatchesGradeWhateverTheScale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	depth := f.store.AddTemplate(domain.Template{
		Name: "Depth test",
		Criteria: []domain.Criterion{
			{Name: "Depth", Category: "hard_skills", Weight: 10, ScaleType: "rating_1_10", QuestionType: "rating"},
			{
				Name: "Select", Category: "hard_skills", Weight: 10, QuestionType: "multiple_choice",
				Options: datatypes.NewJSONSlice([]scoring.Option{{Label: "yes", IsCorrect: true}}),
			},
		},
	})
	link, err := f.svc.CreateTestLink(ctx, application.TestLinkRequest{
		CandidateID: f.carol.ID, JobID: f.emptyJob.ID, TemplateID: depth.ID,
	})
	require.NoError(t, err)

	res, err := f.svc.SubmitTest(ctx, link.Token, []scoring.Answer{
		{CriterionID: depth.Criteria[0].ID, Score: ptr(5.0)},
		{CriterionID: depth.Criteria[1].ID, SelectedOptionIndex: ptr(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.MatchPercentage)

	agg, err := f.svc.Aggregate(ctx, f.emptyJob.ID)
	require.NoError(t, err)
	require.Len(t, agg.Candidates, 1)
	carol := agg.Candidates[0]
	assert.Equal(t, 100.0, carol.TotalScoreAvg)
	require.Len(t, carol.Breakdown, 2)
	for _, b := range carol.Breakdown {
		assert.Equal(t, 100.0, b.Average, b.Criterion)
	}
}

func TestSubmitTest_ConcurrentSubmissionsGradeOnce(t *testing.T) {
	f := newFixture(t)
	link := f.testLink(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitTest(context.Background(), link.Token, f.answers())
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrAlreadySubmitted):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())

	sc, err := f.store.Scorecard(context.Background(), link.ScorecardID)
	require.NoError(t, err)
	assert.Len(t, sc.Evaluations, 3)
}

func TestGetTest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.testLink(t)

	view, err := f.svc.GetTest(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", view.JobTitle)
	require.Len(t, view.Criteria, 3)
	assert.Equal(t, []string{"blocks", "never blocks"}, view.Criteria[0].Options)

	_, err = f.svc.SubmitTest(ctx, link.Token, f.answers())
	require.NoError(t, err)
	_, err = f.svc.GetTest(ctx, link.Token)
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
}

func TestCreateTestLink_UnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateTestLink(context.Background(), application.TestLinkRequest{
		CandidateID: f.alice.ID, JobID: f.job.ID, TemplateID: 999,
	})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	_, err = f.svc.CreateTestLink(context.Background(), application.TestLinkRequest{})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
}

func TestCompleteScorecard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc := f.store.AddScorecard(domain.Scorecard{
		CandidateID: f.carol.ID, JobID: f.job.ID, TemplateID: f.interview.ID, EvaluatorID: "rec-9",
	})
	req := application.CompletionRequest{
		Comments: ptr("promising"),
		Evaluations: []application.EvaluationInput{
			{CriteriaID: f.interview.Criteria[0].ID, Score: ptr(5.0)}, // 100
			{CriteriaID: f.interview.Criteria[1].ID, Score: ptr(5.0)}, // 44.44
			{CriteriaID: f.interview.Criteria[2].ID, Score: ptr(3.0)}, // 50
		},
	}

	res, err := f.svc.CompleteScorecard(ctx, sc.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 68.0, res.MatchPercentage)
	assert.Equal(t, 64.8, res.TotalScore)

	_, err = f.svc.CompleteScorecard(ctx, sc.ID, req)
	assert.EqualError(t, err, "Scorecard already completed")

	stored, err := f.store.Scorecard(ctx, sc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Evaluations, 3)
	assert.Equal(t, "promising", *stored.Comments)
}

func TestCompleteScorecard_RejectsTechnicalTests(t *testing.T) {
	f := newFixture(t)
	link := f.testLink(t)

	_, err := f.svc.CompleteScorecard(context.Background(), link.ScorecardID, application.CompletionRequest{
		Evaluations: []application.EvaluationInput{{CriteriaID: f.test.Criteria[1].ID, Score: ptr(4.0)}},
	})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []domain.SummaryJob
	err  error
}

func (q *recordingQueue) PublishSummaryJob(_ context.Context, job domain.SummaryJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type stubSummarizer struct {
	got scoring.Ranking
	err error
}

func (s *stubSummarizer) Summarize(_ context.Context, job domain.Job, ranking scoring.Ranking) (string, error) {
	s.got = ranking
	if s.err != nil {
		return "", s.err
	}
	return job.Title + ": " + ranking.Candidates[0].CandidateName + " leads", nil
}

func TestSummaryFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := &recordingQueue{}
	svc := application.NewService(application.Deps{Store: f.store, Queue: queue, Now: f.clock.Now})

	summary, err := svc.RequestSummary(ctx, f.job.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SummaryQueued, summary.Status)
	require.Len(t, queue.jobs, 1)

	summarizer := &stubSummarizer{}
	worker := application.NewSummaryWorker(svc, summarizer)
	require.NoError(t, worker.Handle(ctx, queue.jobs[0]))

	got, err := svc.Summary(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SummaryCompleted, got.Status)
	assert.Equal(t, "Backend Engineer: Candidato 1 leads", got.Summary)
	require.NotNil(t, got.RankingJSON)
	assert.Contains(t, *got.RankingJSON, `"candidate_name":"Candidato 1"`)
	assert.Equal(t, 95.0, summarizer.got.Candidates[0].TotalScoreAvg)
}

func TestSummaryFlow_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	disabled := application.NewService(application.Deps{Store: f.store})
	_, err := disabled.RequestSummary(ctx, f.job.ID, false)
	assert.ErrorIs(t, err, application.ErrSummariesDisabled)

	queue := &recordingQueue{}
	svc := application.NewService(application.Deps{Store: f.store, Queue: queue})
	summary, err := svc.RequestSummary(ctx, f.job.ID, false)
	require.NoError(t, err)

	worker := application.NewSummaryWorker(svc, &stubSummarizer{err: errors.New("quota exceeded")})
	err = worker.Handle(ctx, queue.jobs[0])
	require.Error(t, err)

	got, err := svc.Summary(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SummaryFailed, got.Status)
	assert.Contains(t, got.Error, "quota exceeded")

	queue.err = errors.New("connection closed")
	_, err = svc.RequestSummary(ctx, f.job.ID, false)
	require.Error(t, err)
}
