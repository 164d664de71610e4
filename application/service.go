package application

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

// DefaultTestLinkTTL is the lifetime of a technical-test link when neither
// the request nor the configuration sets one.
const DefaultTestLinkTTL = 72 * time.Hour

// ErrSummariesDisabled is returned when no summary queue is configured.
var ErrSummariesDisabled = errors.New("summaries are not enabled")

// Deps are the collaborators of a Service. Only Store is required.
type Deps struct {
	Store       Store
	Queue       SummaryQueue
	Metrics     MetricsCollector
	Logger      *logrus.Entry
	Policy      scoring.Policy
	TestLinkTTL time.Duration
	Now         func() time.Time
}

// Service runs the aggregate, compare and grade operations. Every call is
// independent; the service holds no per-request state.
type Service struct {
	store       Store
	queue       SummaryQueue
	metrics     MetricsCollector
	log         *logrus.Entry
	tracer      trace.Tracer
	aggregator  *scoring.Aggregator
	ranker      *scoring.Ranker
	testLinkTTL time.Duration
	now         func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		store:       d.Store,
		queue:       d.Queue,
		metrics:     d.Metrics,
		log:         d.Logger,
		tracer:      otel.Tracer("scorecard-engine/application"),
		aggregator:  scoring.NewAggregator(d.Policy),
		ranker:      scoring.NewRanker(d.Policy),
		testLinkTTL: d.TestLinkTTL,
		now:         d.Now,
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if s.testLinkTTL <= 0 {
		s.testLinkTTL = DefaultTestLinkTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = s.log.WithField("module", "assessment")
	return s
}

// AggregateResult is the Aggregate output.
type AggregateResult struct {
	Candidates      []scoring.AggregatedCandidate `json:"candidates"`
	TotalCandidates int                           `json:"total_candidates"`
}

// Aggregate builds one AggregatedCandidate per candidate of the job with at
// least one completed scorecard. It returns domain.ErrNoScorecards when there
// is none.
func (s *Service) Aggregate(ctx context.Context, jobID uint) (res *AggregateResult, err error) {
	ctx, done := s.observe(ctx, "aggregate", attribute.Int64("job_id", int64(jobID)))
	defer func() { done(err) }()

	if jobID == 0 {
		return nil, requiredField("aggregate", "job_id")
	}

	candidates, err := s.aggregateJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &AggregateResult{Candidates: candidates, TotalCandidates: len(candidates)}, nil
}

// Compare ranks the aggregated candidates of a job. A job without completed
// scorecards yields an empty ranking with nil stats.
func (s *Service) Compare(ctx context.Context, jobID uint, anonymize bool) (res scoring.Ranking, err error) {
	ctx, done := s.observe(ctx, "compare",
		attribute.Int64("job_id", int64(jobID)),
		attribute.Bool("anonymize", anonymize),
	)
	defer func() { done(err) }()

	if jobID == 0 {
		return scoring.Ranking{}, requiredField("compare", "job_id")
	}

	candidates, err := s.aggregateJob(ctx, jobID)
	if errors.Is(err, domain.ErrNoScorecards) {
		return s.ranker.Rank(nil, anonymize), nil
	}
	if err != nil {
		return scoring.Ranking{}, err
	}
	return s.ranker.Rank(candidates, anonymize), nil
}

func (s *Service) aggregateJob(ctx context.Context, jobID uint) ([]scoring.AggregatedCandidate, error) {
	var scorecards []domain.Scorecard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.Job(gctx, jobID)
		return err
	})
	g.Go(func() error {
		var err error
		scorecards, err = s.store.ScorecardsByJob(gctx, jobID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCandidate := make(map[uint][]scoring.ScorecardInput)
	var candidateIDs, templateIDs []uint
	for _, sc := range scorecards {
		if !sc.IsCompleted() {
			continue
		}
		if _, seen := byCandidate[sc.CandidateID]; !seen {
			candidateIDs = append(candidateIDs, sc.CandidateID)
		}
		byCandidate[sc.CandidateID] = append(byCandidate[sc.CandidateID], sc.Input())
		if !slices.Contains(templateIDs, sc.TemplateID) {
			templateIDs = append(templateIDs, sc.TemplateID)
		}
	}
	if len(candidateIDs) == 0 {
		return nil, domain.ErrNoScorecards
	}
	slices.Sort(candidateIDs)
	slices.Sort(templateIDs)

	var (
		criteria []domain.Criterion
		people   []domain.Candidate
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		criteria, err = s.store.CriteriaByTemplates(gctx, templateIDs)
		return err
	})
	g.Go(func() error {
		var err error
		people, err = s.store.CandidatesByIDs(gctx, candidateIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := domain.IndexCriteria(criteria)
	known := make(map[uint]domain.Candidate, len(people))
	for _, p := range people {
		known[p.ID] = p
	}

	out := make([]scoring.AggregatedCandidate, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		ref := scoring.CandidateRef{ID: strconv.FormatUint(uint64(id), 10)}
		if p, ok := known[id]; ok {
			ref = p.Ref()
		} else {
			s.log.WithFields(logrus.Fields{"job_id": jobID, "candidate_id": id}).
				Warn("candidate record missing, aggregating without a name")
		}

		agg, ok := s.aggregator.Aggregate(ref, byCandidate[id], idx)
		if !ok {
			continue
		}
		if agg.ExcludedEvaluations > 0 {
			s.log.WithFields(logrus.Fields{
				"job_id":       jobID,
				"candidate_id": id,
				"excluded":     agg.ExcludedEvaluations,
			}).Warn("evaluations excluded from aggregation")
		}
		out = append(out, agg)
	}
	if len(out) == 0 {
		return nil, domain.ErrNoScorecards
	}
	return out, nil
}

// observe starts a span and returns the function that closes it and records
// the outcome of the operation.
func (s *Service) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "Service."+op, trace.WithAttributes(attrs...))
	start := s.now()

	return ctx, func(err error) {
		defer span.End()

		result := outcome(err)
		labels := map[string]string{"operation": op, "outcome": result}
		s.metrics.RecordLatency(op, time.Since(start), labels)
		s.metrics.RecordCounter("operations_total", 1, labels)

		if err == nil {
			span.SetStatus(codes.Ok, "")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		if result == "error" {
			s.log.WithError(err).WithField("operation", op).Error("operation failed")
		}
	}
}

func outcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, domain.ErrTestNotFound),
		errors.Is(err, domain.ErrNoScorecards),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrCandidateNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrScorecardNotFound),
		errors.Is(err, domain.ErrSummaryNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrLinkExpired),
		errors.Is(err, domain.ErrAlreadyCompleted):
		return "conflict"
	default:
		return "error"
	}
}

func requiredField(entity, field string) error {
	verr := domain.NewValidationError(entity)
	verr.AddError(field + " is required")
	return verr
}

// Job returns a job by id.
func (s *Service) Job(ctx context.Context, id uint) (*domain.Job, error) {
	if id == 0 {
		return nil, requiredField("job", "job_id")
	}
	return s.store.Job(ctx, id)
}
