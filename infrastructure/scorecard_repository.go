package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"scorecard-engine/application"
	"scorecard-engine/domain"
)

var _ application.Store = (*ScorecardRepository)(nil)

// ScorecardRepository is the MySQL-backed Store.
type ScorecardRepository struct {
	db *gorm.DB
}

func NewScorecardRepository(db *gorm.DB) *ScorecardRepository {
	return &ScorecardRepository{db: db}
}

// first loads one row into dest, mapping a missing row to notFound.
func (r *ScorecardRepository) first(ctx context.Context, op string, dest any, id uint, notFound error) error {
	err := r.db.WithContext(ctx).First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if err != nil {
		return domain.NewStoreError(op, err)
	}
	return nil
}

func (r *ScorecardRepository) Job(ctx context.Context, id uint) (*domain.Job, error) {
	var job domain.Job
	if err := r.first(ctx, "load job", &job, id, domain.ErrJobNotFound); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *ScorecardRepository) Candidate(ctx context.Context, id uint) (*domain.Candidate, error) {
	var c domain.Candidate
	if err := r.first(ctx, "load candidate", &c, id, domain.ErrCandidateNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ScorecardRepository) Template(ctx context.Context, id uint) (*domain.Template, error) {
	var t domain.Template
	err := r.db.WithContext(ctx).
		Preload("Criteria", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("load template", err)
	}
	return &t, nil
}

func (r *ScorecardRepository) Scorecard(ctx context.Context, id uint) (*domain.Scorecard, error) {
	var sc domain.Scorecard
	err := r.db.WithContext(ctx).Preload("Evaluations").First(&sc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrScorecardNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("load scorecard", err)
	}
	return &sc, nil
}

func (r *ScorecardRepository) ScorecardByToken(ctx context.Context, token string) (*domain.Scorecard, error) {
	var sc domain.Scorecard
	err := r.db.WithContext(ctx).Where("external_token = ?", token).First(&sc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrScorecardNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("load scorecard by token", err)
	}
	return &sc, nil
}

func (r *ScorecardRepository) ScorecardsByJob(ctx context.Context, jobID uint) ([]domain.Scorecard, error) {
	var out []domain.Scorecard
	err := r.db.WithContext(ctx).
		Preload("Evaluations").
		Where("job_id = ?", jobID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, domain.NewStoreError("load scorecards", err)
	}
	return out, nil
}

func (r *ScorecardRepository) CandidatesByIDs(ctx context.Context, ids []uint) ([]domain.Candidate, error) {
	var out []domain.Candidate
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error; err != nil {
		return nil, domain.NewStoreError("load candidates", err)
	}
	return out, nil
}

func (r *ScorecardRepository) CriteriaByTemplates(ctx context.Context, templateIDs []uint) ([]domain.Criterion, error) {
	var out []domain.Criterion
	if len(templateIDs) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Where("template_id IN ?", templateIDs).
		Order("template_id, position, id").
		Find(&out).Error
	if err != nil {
		return nil, domain.NewStoreError("load criteria", err)
	}
	return out, nil
}

func (r *ScorecardRepository) CreateScorecard(ctx context.Context, sc *domain.Scorecard) error {
	if err := r.db.WithContext(ctx).Create(sc).Error; err != nil {
		return domain.NewStoreError("create scorecard", err)
	}
	return nil
}

// SubmitTest writes the grade only while submitted_at is still NULL. The
// conditional update and the evaluation inserts share one transaction.
func (r *ScorecardRepository) SubmitTest(ctx context.Context, scorecardID uint, result domain.ScorecardResult) error {
	return r.writeOnce(ctx, "submit test", scorecardID, "submitted_at IS NULL", domain.ErrAlreadySubmitted,
		map[string]any{
			"total_score":      result.TotalScore,
			"match_percentage": result.MatchPercentage,
			"submitted_at":     result.SubmittedAt,
		}, result.Evaluations)
}

// completionGuard matches domain.Scorecard.IsCompleted being false.
const completionGuard = "total_score IS NULL AND match_percentage IS NULL"

// CompleteScorecard writes the totals only while the scorecard has neither
// total.
func (r *ScorecardRepository) CompleteScorecard(ctx context.Context, scorecardID uint, result domain.ScorecardResult) error {
	updates := map[string]any{
		"total_score":      result.TotalScore,
		"match_percentage": result.MatchPercentage,
	}
	if result.Comments != nil {
		updates["comments"] = *result.Comments
	}
	return r.writeOnce(ctx, "complete scorecard", scorecardID, completionGuard, domain.ErrAlreadyCompleted,
		updates, result.Evaluations)
}

func (r *ScorecardRepository) writeOnce(
	ctx context.Context,
	op string,
	scorecardID uint,
	guard string,
	conflict error,
	updates map[string]any,
	evals []domain.Evaluation,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Scorecard{}).
			Where("id = ?", scorecardID).
			Where(guard).
			Updates(updates)
		if res.Error != nil {
			return domain.NewStoreError(op, res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict
		}
		if len(evals) == 0 {
			return nil
		}
		for i := range evals {
			evals[i].ScorecardID = scorecardID
		}
		if err := tx.Create(&evals).Error; err != nil {
			return domain.NewStoreError(op, err)
		}
		return nil
	})
}

func (r *ScorecardRepository) CreateSummary(ctx context.Context, s *domain.JobSummary) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return domain.NewStoreError("create summary", err)
	}
	return nil
}

func (r *ScorecardRepository) Summary(ctx context.Context, id uint) (*domain.JobSummary, error) {
	var s domain.JobSummary
	if err := r.first(ctx, "load summary", &s, id, domain.ErrSummaryNotFound); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScorecardRepository) UpdateSummary(ctx context.Context, id uint, u application.SummaryUpdate) error {
	updates := map[string]any{"status": u.Status}
	if u.Summary != "" {
		updates["summary"] = u.Summary
	}
	if u.RankingJSON != nil {
		updates["ranking_json"] = u.RankingJSON
	}
	if u.Error != "" {
		updates["error"] = u.Error
	}
	err := r.db.WithContext(ctx).Model(&domain.JobSummary{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return domain.NewStoreError("update summary", err)
	}
	return nil
}
