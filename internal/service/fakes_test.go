package service

import (
	"context"
	"errors"
	"examforge/internal/fallback"
	"examforge/internal/model"
	"examforge/internal/permutation"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

var errDown = errors.New("connection refused")

type fakeQuestionRepo struct {
	mu        sync.Mutex
	byID      map[string]*model.Question
	pool      []*model.Question
	err       error
	sampleErr error
	lookups   int
}

func newFakeQuestionRepo(questions ...model.Question) *fakeQuestionRepo {
	r := &fakeQuestionRepo{byID: make(map[string]*model.Question)}
	for i := range questions {
		q := questions[i]
		r.byID[q.ID] = &q
		if !q.IsChild() {
			r.pool = append(r.pool, &q)
		}
	}
	return r
}

func (r *fakeQuestionRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	var out []*model.Question
	for _, id := range ids {
		if q, ok := r.byID[id]; ok {
			c := *q
			c.Source = model.SourcePrimary
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) Sample(ctx context.Context, filter model.QuestionFilter, count int) ([]*model.Question, error) {
	if r.sampleErr != nil {
		return nil, r.sampleErr
	}
	var out []*model.Question
	for _, q := range r.pool {
		if len(out) == count {
			break
		}
		c := *q
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeQuestionRepo) Create(ctx context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[q.ID] = q
	return nil
}

type fakeQuestionCache struct {
	mu   sync.Mutex
	data map[string]model.Question
	err  error
}

func newFakeQuestionCache() *fakeQuestionCache {
	return &fakeQuestionCache{data: make(map[string]model.Question)}
}

func (c *fakeQuestionCache) SetMany(ctx context.Context, questions []*model.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range questions {
		c.data[q.ID] = *q
	}
	return nil
}

func (c *fakeQuestionCache) GetMany(ctx context.Context, ids []string) ([]*model.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []*model.Question
	for _, id := range ids {
		if q, ok := c.data[id]; ok {
			q.Source = model.SourceCache
			out = append(out, &q)
		}
	}
	return out, nil
}

type fakeExamRepo struct {
	mu    sync.Mutex
	exams map[string]model.ExamInstance
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{exams: make(map[string]model.ExamInstance)}
}

func (r *fakeExamRepo) Create(ctx context.Context, exam *model.ExamInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exams[exam.ID] = *exam
	return nil
}

func (r *fakeExamRepo) GetByID(ctx context.Context, id string) (*model.ExamInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[id]
	if !ok {
		return nil, nil
	}
	return &exam, nil
}

func (r *fakeExamRepo) MarkConsumed(ctx context.Context, id string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[id]
	if !ok {
		return nil
	}
	exam.Status = model.ExamConsumed
	if exam.ExpiresAt == nil || expiresAt.Before(*exam.ExpiresAt) {
		exam.ExpiresAt = &expiresAt
	}
	r.exams[id] = exam
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string]model.Attempt
	writes   int
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[string]model.Attempt)}
}

func (r *fakeAttemptRepo) Start(ctx context.Context, a *model.Attempt) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if existing, ok := r.attempts[a.Key]; ok {
		return &existing, nil
	}
	r.attempts[a.Key] = *a
	stored := *a
	return &stored, nil
}

func (r *fakeAttemptRepo) Finish(ctx context.Context, a *model.Attempt) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	next := *a
	if existing, ok := r.attempts[a.Key]; ok {
		next.ID = existing.ID
		next.StartedAt = existing.StartedAt
		next.CreatedAt = existing.CreatedAt
	}
	r.attempts[a.Key] = next
	return &next, nil
}

func (r *fakeAttemptRepo) GetByKey(ctx context.Context, key string) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[key]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *fakeAttemptRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Attempt
	for _, a := range r.attempts {
		if a.UserID == userID {
			c := a
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeScopeRepo map[string]string

func (r fakeScopeRepo) ResolveSlug(ctx context.Context, slug string) (string, error) {
	return r[slug], nil
}

type publishedEvent struct {
	Type    string
	Payload interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *fakeNotifier) Publish(eventType string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Type: eventType, Payload: payload})
	return nil
}

// harness wires the services over in-memory stores
type harness struct {
	primary   *fakeQuestionRepo
	exams     *fakeExamRepo
	attempts  *fakeAttemptRepo
	notifier  *fakeNotifier
	questions *QuestionService
	attemptSv *AttemptService
	examSv    *ExamService
	grading   *GradingService
}

func newHarness(t *testing.T, primary *fakeQuestionRepo, ds FallbackSource) *harness {
	t.Helper()
	log := zap.NewNop()
	h := &harness{
		primary:  primary,
		exams:    newFakeExamRepo(),
		attempts: newFakeAttemptRepo(),
		notifier: &fakeNotifier{},
	}
	engine := permutation.NewSeeded(7, 11)
	h.questions = NewQuestionService(primary, ds, nil, engine, log)
	h.attemptSv = NewAttemptService(h.attempts, log)
	h.examSv = NewExamService(h.exams, nil, nil, h.questions, h.attemptSv, engine,
		ExamSettings{DefaultCount: 5, MaxCount: 10}, log)
	h.examSv.SetNotifier(h.notifier)
	h.grading = NewGradingService(h.examSv, h.questions, h.attemptSv, 60, time.Hour, log)
	h.grading.SetNotifier(h.notifier)
	return h
}

func mcq(id, text string, correct int, choices ...string) model.Question {
	return model.Question{
		ID:           id,
		Text:         text,
		Choices:      choices,
		CorrectIndex: intPtr(correct),
		Kind:         model.QuestionStandalone,
	}
}

func passage(id string, childIDs ...string) model.Question {
	return model.Question{
		ID:       id,
		Text:     "Read the passage",
		Passage:  "Once upon a time...",
		Kind:     model.QuestionComprehension,
		ChildIDs: childIDs,
	}
}

// comprehensionDataset is q1 plus passage p1 with children c1 and c2
func comprehensionDataset() *fallback.Dataset {
	return fallback.FromQuestions([]model.Question{
		mcq("q1", "2+2?", 1, "3", "4", "5", "6"),
		passage("p1", "c1", "c2"),
		mcq("c1", "Who?", 0, "Ann", "Bob", "Cy"),
		mcq("c2", "Where?", 2, "Here", "There", "Nowhere"),
	})
}
