package infrastructure

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"scorecard-engine/application"
	"scorecard-engine/domain"
)

var _ application.Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Writes are serialized by one mutex, so
// the submit and complete guards hold under concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	now        func() time.Time
	nextID     uint
	jobs       map[uint]domain.Job
	candidates map[uint]domain.Candidate
	templates  map[uint]domain.Template
	criteria   map[uint]domain.Criterion
	scorecards map[uint]domain.Scorecard
	summaries  map[uint]domain.JobSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:        time.Now,
		jobs:       make(map[uint]domain.Job),
		candidates: make(map[uint]domain.Candidate),
		templates:  make(map[uint]domain.Template),
		criteria:   make(map[uint]domain.Criterion),
		scorecards: make(map[uint]domain.Scorecard),
		summaries:  make(map[uint]domain.JobSummary),
	}
}

func (m *MemoryStore) id(requested uint) uint {
	if requested != 0 {
		if requested > m.nextID {
			m.nextID = requested
		}
		return requested
	}
	m.nextID++
	return m.nextID
}

// AddJob stores j, assigning an id when it has none.
func (m *MemoryStore) AddJob(j domain.Job) domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = m.id(j.ID)
	if j.CreatedAt.IsZero() {
		j.CreatedAt = m.now()
	}
	m.jobs[j.ID] = j
	return j
}

func (m *MemoryStore) AddCandidate(c domain.Candidate) domain.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id(c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	m.candidates[c.ID] = c
	return c
}

// AddTemplate stores t and its criteria.
func (m *MemoryStore) AddTemplate(t domain.Template) domain.Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id(t.ID)
	for i := range t.Criteria {
		c := &t.Criteria[i]
		c.ID = m.id(c.ID)
		c.TemplateID = t.ID
		if c.Position == 0 {
			c.Position = i + 1
		}
		m.criteria[c.ID] = *c
	}
	m.templates[t.ID] = t
	return t
}

// AddScorecard stores sc and its evaluations as given, completed or not.
func (m *MemoryStore) AddScorecard(sc domain.Scorecard) domain.Scorecard {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc.ID = m.id(sc.ID)
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = m.now()
	}
	if sc.Kind == "" {
		sc.Kind = domain.KindInternal
	}
	sc.Evaluations = m.stampEvaluations(sc.ID, sc.Evaluations)
	m.scorecards[sc.ID] = sc
	return cloneScorecard(sc)
}

func (m *MemoryStore) stampEvaluations(scorecardID uint, evals []domain.Evaluation) []domain.Evaluation {
	out := make([]domain.Evaluation, len(evals))
	for i, ev := range evals {
		ev.ID = m.id(ev.ID)
		ev.ScorecardID = scorecardID
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = m.now()
		}
		out[i] = ev
	}
	return out
}

func cloneScorecard(sc domain.Scorecard) domain.Scorecard {
	sc.Evaluations = slices.Clone(sc.Evaluations)
	return sc
}

func (m *MemoryStore) Job(ctx context.Context, id uint) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &j, nil
}

func (m *MemoryStore) ScorecardsByJob(ctx context.Context, jobID uint) ([]domain.Scorecard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Scorecard
	for _, sc := range m.scorecards {
		if sc.JobID == jobID {
			out = append(out, cloneScorecard(sc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CandidatesByIDs(ctx context.Context, ids []uint) ([]domain.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.candidates[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Candidate(ctx context.Context, id uint) (*domain.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, domain.ErrCandidateNotFound
	}
	return &c, nil
}

func (m *MemoryStore) Template(ctx context.Context, id uint) (*domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	t.Criteria = slices.Clone(t.Criteria)
	return &t, nil
}

func (m *MemoryStore) CriteriaByTemplates(ctx context.Context, templateIDs []uint) ([]domain.Criterion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Criterion
	for _, c := range m.criteria {
		if slices.Contains(templateIDs, c.TemplateID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TemplateID != out[j].TemplateID {
			return out[i].TemplateID < out[j].TemplateID
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Scorecard(ctx context.Context, id uint) (*domain.Scorecard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scorecards[id]
	if !ok {
		return nil, domain.ErrScorecardNotFound
	}
	sc = cloneScorecard(sc)
	return &sc, nil
}

func (m *MemoryStore) ScorecardByToken(ctx context.Context, token string) (*domain.Scorecard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sc := range m.scorecards {
		if sc.ExternalToken != nil && *sc.ExternalToken == token {
			sc = cloneScorecard(sc)
			return &sc, nil
		}
	}
	return nil, domain.ErrScorecardNotFound
}

func (m *MemoryStore) CreateScorecard(ctx context.Context, sc *domain.Scorecard) error {
	created := m.AddScorecard(*sc)
	*sc = created
	return nil
}

func (m *MemoryStore) SubmitTest(ctx context.Context, scorecardID uint, result domain.ScorecardResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scorecards[scorecardID]
	if !ok {
		return domain.ErrScorecardNotFound
	}
	if sc.SubmittedAt != nil {
		return domain.ErrAlreadySubmitted
	}
	m.apply(&sc, result)
	sc.SubmittedAt = result.SubmittedAt
	m.scorecards[scorecardID] = sc
	return nil
}

func (m *MemoryStore) CompleteScorecard(ctx context.Context, scorecardID uint, result domain.ScorecardResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scorecards[scorecardID]
	if !ok {
		return domain.ErrScorecardNotFound
	}
	if sc.IsCompleted() {
		return domain.ErrAlreadyCompleted
	}
	m.apply(&sc, result)
	m.scorecards[scorecardID] = sc
	return nil
}

func (m *MemoryStore) apply(sc *domain.Scorecard, result domain.ScorecardResult) {
	total, match := result.TotalScore, result.MatchPercentage
	sc.TotalScore = &total
	sc.MatchPercentage = &match
	if result.Comments != nil {
		sc.Comments = result.Comments
	}
	sc.Evaluations = append(sc.Evaluations, m.stampEvaluations(sc.ID, result.Evaluations)...)
}

func (m *MemoryStore) CreateSummary(ctx context.Context, s *domain.JobSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id(s.ID)
	now := m.now()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.Status == "" {
		s.Status = domain.SummaryQueued
	}
	m.summaries[s.ID] = *s
	return nil
}

func (m *MemoryStore) Summary(ctx context.Context, id uint) (*domain.JobSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[id]
	if !ok {
		return nil, domain.ErrSummaryNotFound
	}
	return &s, nil
}

func (m *MemoryStore) UpdateSummary(ctx context.Context, id uint, u application.SummaryUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[id]
	if !ok {
		return domain.ErrSummaryNotFound
	}
	s.Status = u.Status
	if u.Summary != "" {
		s.Summary = u.Summary
	}
	if u.RankingJSON != nil {
		s.RankingJSON = u.RankingJSON
	}
	if u.Error != "" {
		s.Error = u.Error
	}
	s.UpdatedAt = m.now()
	m.summaries[id] = s
	return nil
}
