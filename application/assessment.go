package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

// SubmissionResult is returned to the respondent after grading.
type SubmissionResult struct {
	Success         bool    `json:"success"`
	MatchPercentage int     `json:"matchPercentage"`
	TotalScore      float64 `json:"totalScore"`
}

// SubmitTest grades a technical-test submission and stores it. The write only
// happens if the test is still unsubmitted at commit time, so of two
// concurrent submissions exactly one succeeds and the other gets
// domain.ErrAlreadySubmitted.
func (s *Service) SubmitTest(ctx context.Context, token string, answers []scoring.Answer) (res *SubmissionResult, err error) {
	ctx, done := s.observe(ctx, "submit_test")
	defer func() { done(err) }()

	if err := validateSubmission(token, answers); err != nil {
		return nil, err
	}

	sc, err := s.testByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := sc.CheckSubmittable(now); err != nil {
		return nil, err
	}

	criteria, err := s.store.CriteriaByTemplates(ctx, []uint{sc.TemplateID})
	if err != nil {
		return nil, err
	}
	grade := scoring.Grade(answers, domain.IndexCriteria(criteria))

	evals := make([]domain.Evaluation, 0, len(grade.Answers))
	for _, ga := range grade.Answers {
		if !ga.Known {
			continue
		}
		evals = append(evals, gradedEvaluation(sc.ID, ga))
	}
	if unknown := len(grade.Answers) - len(evals); unknown > 0 {
		s.log.WithFields(logrus.Fields{"scorecard_id": sc.ID, "unknown": unknown}).
			Warn("answers to criteria outside the test were not stored")
	}

	submittedAt := now
	err = s.store.SubmitTest(ctx, sc.ID, domain.ScorecardResult{
		TotalScore:      grade.TotalScore,
		MatchPercentage: float64(grade.MatchPercentage),
		SubmittedAt:     &submittedAt,
		Evaluations:     evals,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordHistogram("test_match_percentage", float64(grade.MatchPercentage), nil)
	s.log.WithFields(logrus.Fields{
		"scorecard_id":     sc.ID,
		"match_percentage": grade.MatchPercentage,
		"excluded":         grade.Excluded,
	}).Info("technical test graded")

	return &SubmissionResult{
		Success:         true,
		MatchPercentage: grade.MatchPercentage,
		TotalScore:      grade.TotalScore,
	}, nil
}

func validateSubmission(token string, answers []scoring.Answer) error {
	verr := domain.NewValidationError("submission")
	if token == "" {
		verr.AddError("token is required")
	}
	if len(answers) == 0 {
		verr.AddError("answers is required")
	}
	seen := make(map[uint]bool, len(answers))
	for i, a := range answers {
		switch {
		case a.CriterionID == 0:
			verr.AddError(fmt.Sprintf("answers[%d].criteria_id is required", i))
		case seen[a.CriterionID]:
			verr.AddError(fmt.Sprintf("answers[%d].criteria_id %d is answered more than once", i, a.CriterionID))
		}
		seen[a.CriterionID] = true
		if a.Score != nil && (*a.Score < 1 || *a.Score > scoring.MaxContribution) {
			verr.AddError(fmt.Sprintf("answers[%d].score must be between 1 and 5", i))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// gradedEvaluation stores the contribution as the score of multiple-choice
// answers so that aggregation reads them like ratings.
func gradedEvaluation(scorecardID uint, ga scoring.GradedAnswer) domain.Evaluation {
	ev := domain.Evaluation{
		ScorecardID:         scorecardID,
		CriteriaID:          ga.CriterionID,
		Notes:               ga.Notes,
		TextAnswer:          ga.TextAnswer,
		SelectedOptionIndex: ga.SelectedOptionIndex,
		IsCorrect:           ga.Resolution.IsCorrect,
	}
	if c, ok := ga.Resolution.Contribution(); ok {
		ev.Score = &c
	}
	return ev
}

// testByToken maps a missing scorecard to the respondent-facing not-found.
func (s *Service) testByToken(ctx context.Context, token string) (*domain.Scorecard, error) {
	sc, err := s.store.ScorecardByToken(ctx, token)
	if err == nil {
		return sc, nil
	}
	if errors.Is(err, domain.ErrScorecardNotFound) {
		return nil, domain.ErrTestNotFound
	}
	return nil, err
}

// TestView is what a respondent sees when opening a test link.
type TestView struct {
	Token     string                   `json:"token"`
	JobTitle  string                   `json:"job_title"`
	ExpiresAt *time.Time               `json:"expires_at"`
	Criteria  []domain.PublicCriterion `json:"criteria"`
}

// GetTest returns the questions of an open technical test. It applies the
// same preconditions as SubmitTest.
func (s *Service) GetTest(ctx context.Context, token string) (res *TestView, err error) {
	ctx, done := s.observe(ctx, "get_test")
	defer func() { done(err) }()

	if token == "" {
		return nil, requiredField("test", "token")
	}
	sc, err := s.testByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := sc.CheckSubmittable(s.now()); err != nil {
		return nil, err
	}

	var (
		job      *domain.Job
		criteria []domain.Criterion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		job, err = s.store.Job(gctx, sc.JobID)
		return err
	})
	g.Go(func() error {
		var err error
		criteria, err = s.store.CriteriaByTemplates(gctx, []uint{sc.TemplateID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &TestView{
		Token:     token,
		JobTitle:  job.Title,
		ExpiresAt: sc.ExpiresAt,
		Criteria:  make([]domain.PublicCriterion, len(criteria)),
	}
	for i, c := range criteria {
		view.Criteria[i] = c.Public()
	}
	return view, nil
}

// TestLinkRequest asks for a new technical test for a candidate.
type TestLinkRequest struct {
	CandidateID uint
	JobID       uint
	TemplateID  uint
	// ExpiresIn overrides the configured link lifetime when positive.
	ExpiresIn time.Duration
}

// TestLink is the created technical test.
type TestLink struct {
	ScorecardID uint      `json:"scorecard_id"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateTestLink creates an unsubmitted technical-test scorecard reachable
// through a random token.
func (s *Service) CreateTestLink(ctx context.Context, req TestLinkRequest) (res *TestLink, err error) {
	ctx, done := s.observe(ctx, "create_test_link",
		attribute.Int64("job_id", int64(req.JobID)),
		attribute.Int64("candidate_id", int64(req.CandidateID)),
	)
	defer func() { done(err) }()

	verr := domain.NewValidationError("test_link")
	if req.CandidateID == 0 {
		verr.AddError("candidate_id is required")
	}
	if req.JobID == 0 {
		verr.AddError("job_id is required")
	}
	if req.TemplateID == 0 {
		verr.AddError("template_id is required")
	}
	if req.ExpiresIn < 0 {
		verr.AddError("expires_in_hours must not be negative")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.Candidate(gctx, req.CandidateID)
		return err
	})
	g.Go(func() error {
		_, err := s.store.Job(gctx, req.JobID)
		return err
	})
	g.Go(func() error {
		_, err := s.store.Template(gctx, req.TemplateID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ttl := s.testLinkTTL
	if req.ExpiresIn > 0 {
		ttl = req.ExpiresIn
	}
	token := uuid.NewString()
	expiresAt := s.now().Add(ttl)

	sc := &domain.Scorecard{
		CandidateID:   req.CandidateID,
		JobID:         req.JobID,
		TemplateID:    req.TemplateID,
		Kind:          domain.KindTechnicalTest,
		ExternalToken: &token,
		ExpiresAt:     &expiresAt,
	}
	if err := s.store.CreateScorecard(ctx, sc); err != nil {
		return nil, err
	}

	return &TestLink{ScorecardID: sc.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// EvaluationInput is one evaluator rating in an internal scorecard.
type EvaluationInput struct {
	CriteriaID uint
	Score      *float64
	Notes      string
}

// CompletionRequest carries the evaluations of an internal scorecard.
type CompletionRequest struct {
	Comments    *string
	Evaluations []EvaluationInput
}

// CompletionResult is the outcome of completing an internal scorecard.
type CompletionResult struct {
	ScorecardID     uint    `json:"scorecard_id"`
	MatchPercentage float64 `json:"match_percentage"`
	TotalScore      float64 `json:"total_score"`
	Excluded        int     `json:"excluded_evaluations"`
}

// CompleteScorecard attaches evaluations to an internal scorecard and writes
// its totals once. A second completion gets domain.ErrAlreadyCompleted.
func (s *Service) CompleteScorecard(ctx context.Context, id uint, req CompletionRequest) (res *CompletionResult, err error) {
	ctx, done := s.observe(ctx, "complete_scorecard", attribute.Int64("scorecard_id", int64(id)))
	defer func() { done(err) }()

	verr := domain.NewValidationError("scorecard")
	if id == 0 {
		verr.AddError("id is required")
	}
	if len(req.Evaluations) == 0 {
		verr.AddError("evaluations is required")
	}
	for i, ev := range req.Evaluations {
		if ev.CriteriaID == 0 {
			verr.AddError(fmt.Sprintf("evaluations[%d].criteria_id is required", i))
		}
		if ev.Score == nil {
			verr.AddError(fmt.Sprintf("evaluations[%d].score is required", i))
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	sc, err := s.store.Scorecard(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc.IsTechnicalTest() {
		verr.AddError("technical tests are graded through their submission link")
		return nil, verr
	}
	if sc.IsCompleted() {
		return nil, domain.ErrAlreadyCompleted
	}

	criteria, err := s.store.CriteriaByTemplates(ctx, []uint{sc.TemplateID})
	if err != nil {
		return nil, err
	}
	idx := domain.IndexCriteria(criteria)

	scores := make([]scoring.EvaluationScore, len(req.Evaluations))
	evals := make([]domain.Evaluation, 0, len(req.Evaluations))
	for i, ev := range req.Evaluations {
		scores[i] = scoring.EvaluationScore{CriterionID: ev.CriteriaID, Score: ev.Score}
		if _, ok := idx[ev.CriteriaID]; ok {
			evals = append(evals, domain.Evaluation{
				ScorecardID: sc.ID,
				CriteriaID:  ev.CriteriaID,
				Score:       ev.Score,
				Notes:       ev.Notes,
			})
		}
	}

	totals := scoring.Complete(scores, idx)
	if totals.Scored == 0 {
		verr.AddError("evaluations do not match any criterion of the scorecard template")
		return nil, verr
	}

	err = s.store.CompleteScorecard(ctx, sc.ID, domain.ScorecardResult{
		TotalScore:      totals.TotalScore,
		MatchPercentage: totals.MatchPercentage,
		Comments:        req.Comments,
		Evaluations:     evals,
	})
	if err != nil {
		return nil, err
	}

	return &CompletionResult{
		ScorecardID:     sc.ID,
		MatchPercentage: totals.MatchPercentage,
		TotalScore:      totals.TotalScore,
		Excluded:        totals.Excluded,
	}, nil
}
