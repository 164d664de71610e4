package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"scorecard-engine/domain"
)

// RequestSummary queues a natural-language summary of a job's ranking and
// returns the queued record immediately.
func (s *Service) RequestSummary(ctx context.Context, jobID uint, anonymize bool) (res *domain.JobSummary, err error) {
	ctx, done := s.observe(ctx, "request_summary", attribute.Int64("job_id", int64(jobID)))
	defer func() { done(err) }()

	if s.queue == nil {
		return nil, ErrSummariesDisabled
	}
	if jobID == 0 {
		return nil, requiredField("summary", "job_id")
	}
	if _, err := s.store.Job(ctx, jobID); err != nil {
		return nil, err
	}

	summary := &domain.JobSummary{JobID: jobID, Anonymized: anonymize, Status: domain.SummaryQueued}
	if err := s.store.CreateSummary(ctx, summary); err != nil {
		return nil, err
	}

	job := domain.SummaryJob{SummaryID: summary.ID, JobID: jobID, Anonymize: anonymize}
	if err := s.queue.PublishSummaryJob(ctx, job); err != nil {
		if uerr := s.store.UpdateSummary(ctx, summary.ID, SummaryUpdate{
			Status: domain.SummaryFailed,
			Error:  "failed to queue job",
		}); uerr != nil {
			s.log.WithError(uerr).WithField("summary_id", summary.ID).Error("failed to mark summary as failed")
		}
		return nil, fmt.Errorf("queue summary %d: %w", summary.ID, err)
	}
	return summary, nil
}

// Summary returns a summary record by id.
func (s *Service) Summary(ctx context.Context, id uint) (res *domain.JobSummary, err error) {
	ctx, done := s.observe(ctx, "get_summary", attribute.Int64("summary_id", int64(id)))
	defer func() { done(err) }()

	if id == 0 {
		return nil, requiredField("summary", "id")
	}
	return s.store.Summary(ctx, id)
}

// SummaryWorker consumes summary jobs: it ranks the job with the engine and
// hands the ranking to the summarizer. The summarizer's text is stored next
// to the ranking and never changes it.
type SummaryWorker struct {
	service    *Service
	summarizer Summarizer
	log        *logrus.Entry
}

func NewSummaryWorker(service *Service, summarizer Summarizer) *SummaryWorker {
	return &SummaryWorker{
		service:    service,
		summarizer: summarizer,
		log:        service.log.WithField("component", "summary_worker"),
	}
}

// Handle processes one job. Failures are recorded on the summary record and
// returned.
func (w *SummaryWorker) Handle(ctx context.Context, job domain.SummaryJob) (err error) {
	ctx, done := w.service.observe(ctx, "summarize",
		attribute.Int64("summary_id", int64(job.SummaryID)),
		attribute.Int64("job_id", int64(job.JobID)),
	)
	defer func() { done(err) }()

	store := w.service.store
	log := w.log.WithFields(logrus.Fields{"summary_id": job.SummaryID, "job_id": job.JobID})
	log.Info("processing summary job")

	if err := store.UpdateSummary(ctx, job.SummaryID, SummaryUpdate{Status: domain.SummaryProcessing}); err != nil {
		return err
	}

	fail := func(cause error) error {
		log.WithError(cause).Warn("summary job failed")
		if uerr := store.UpdateSummary(ctx, job.SummaryID, SummaryUpdate{
			Status: domain.SummaryFailed,
			Error:  cause.Error(),
		}); uerr != nil {
			return errors.Join(cause, uerr)
		}
		return cause
	}

	meta, err := store.Job(ctx, job.JobID)
	if err != nil {
		return fail(err)
	}
	ranking, err := w.service.Compare(ctx, job.JobID, job.Anonymize)
	if err != nil {
		return fail(err)
	}
	if len(ranking.Candidates) == 0 {
		return fail(domain.ErrNoScorecards)
	}

	raw, err := json.Marshal(ranking)
	if err != nil {
		return fail(fmt.Errorf("encode ranking: %w", err))
	}
	text, err := w.summarizer.Summarize(ctx, *meta, ranking)
	if err != nil {
		return fail(fmt.Errorf("summarize: %w", err))
	}

	rankingJSON := string(raw)
	if err := store.UpdateSummary(ctx, job.SummaryID, SummaryUpdate{
		Status:      domain.SummaryCompleted,
		Summary:     text,
		RankingJSON: &rankingJSON,
	}); err != nil {
		return err
	}

	log.Info("summary job finished")
	return nil
}
