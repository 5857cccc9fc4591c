package service

import (
	"context"
	"errors"
	"examforge/internal/cache"
	"examforge/internal/event"
	"examforge/internal/metrics"
	"examforge/internal/model"
	"examforge/internal/permutation"
	"examforge/internal/repository"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExamSettings bounds fresh assembly
type ExamSettings struct {
	DefaultCount int
	MaxCount     int
	TTL          time.Duration // 0 leaves fresh instances without an expiry stamp
}

// ExamRequest is one call to the exam endpoint. With an ExamID the stored
// instance is replayed; otherwise a fresh one is assembled.
type ExamRequest struct {
	ExamID string
	Count  int
	Module string
	Scope  string
	Owner  model.Identity
}

// ExamService assembles exam instances and renders them for serving
type ExamService struct {
	examRepo  repository.ExamRepo
	scopeRepo repository.ScopeRepo // optional
	examCache cache.ExamCache      // optional
	questions *QuestionService
	attempts  *AttemptService
	engine    *permutation.Engine
	settings  ExamSettings
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

// NewExamService creates a new exam service
func NewExamService(
	examRepo repository.ExamRepo,
	scopeRepo repository.ScopeRepo,
	examCache cache.ExamCache,
	questions *QuestionService,
	attempts *AttemptService,
	engine *permutation.Engine,
	settings ExamSettings,
	log *zap.Logger,
) *ExamService {
	if settings.DefaultCount <= 0 {
		settings.DefaultCount = 20
	}
	if settings.MaxCount < settings.DefaultCount {
		settings.MaxCount = settings.DefaultCount
	}
	return &ExamService{
		examRepo:  examRepo,
		scopeRepo: scopeRepo,
		examCache: examCache,
		questions: questions,
		attempts:  attempts,
		engine:    engine,
		settings:  settings,
		log:       log,
		now:       time.Now,
	}
}

// SetNotifier sets the event publisher
func (s *ExamService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Get dispatches to Serve or Assemble
func (s *ExamService) Get(ctx context.Context, req ExamRequest) (*model.ExamPayload, error) {
	if req.ExamID != "" {
		return s.Serve(ctx, req.ExamID, req.Owner)
	}
	return s.Assemble(ctx, req)
}

// Assemble samples a fresh exam, fixes a choice order for every gradable
// question and persists the instance before rendering it.
func (s *ExamService) Assemble(ctx context.Context, req ExamRequest) (*model.ExamPayload, error) {
	count := req.Count
	if count <= 0 {
		count = s.settings.DefaultCount
	}
	if count > s.settings.MaxCount {
		count = s.settings.MaxCount
	}

	filter := model.QuestionFilter{
		Module: req.Module,
		Scope:  s.resolveScope(ctx, req.Scope),
	}

	sampled, err := s.questions.Sample(ctx, filter, count)
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			return nil, fmt.Errorf("failed to sample questions: %w", err)
		}
		// Both sources down: the exam is issued empty rather than failing
		s.log.Warn("assembling empty exam", zap.Error(err))
	}

	exam, err := s.build(ctx, sampled)
	if err != nil {
		return nil, err
	}
	now := s.now()
	exam.ID = uuid.NewString()
	exam.Owner = req.Owner.UserID
	exam.Scope = filter.Scope
	exam.Module = filter.Module
	exam.Status = model.ExamIssued
	exam.CreatedAt = now
	if s.settings.TTL > 0 {
		expires := now.Add(s.settings.TTL)
		exam.ExpiresAt = &expires
	}

	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to save exam: %w", err)
	}
	s.cacheExam(ctx, exam)

	payload := s.render(ctx, exam)
	s.startAttempt(ctx, exam, req.Owner, payload.Series)

	metrics.ExamsAssembled.WithLabelValues("fresh").Inc()
	s.publish(event.ExamAssembled, ExamAssembledEvent{
		ExamID:     exam.ID,
		TokenCount: len(exam.Tokens),
		Owner:      exam.Owner,
		Module:     exam.Module,
		Scope:      exam.Scope,
	})
	s.log.Info("exam assembled",
		zap.String("examId", exam.ID),
		zap.Int("requested", count),
		zap.Int("tokens", len(exam.Tokens)),
	)
	return payload, nil
}

// build turns the sample into tokens and permutations. Passages become
// parent markers and each of their children gets its own permutation.
func (s *ExamService) build(ctx context.Context, sampled []*model.Question) (*model.ExamInstance, error) {
	exam := &model.ExamInstance{
		Tokens:       make([]model.QuestionToken, 0, len(sampled)),
		Permutations: make([][]int, 0, len(sampled)),
	}

	// A sampled question that a sampled passage lists is served nested
	nested := make(map[string]bool)
	for _, q := range sampled {
		if q.IsParent() {
			for _, id := range q.ChildIDs {
				nested[id] = true
			}
		}
	}

	var childIDs []string
	for _, q := range sampled {
		if nested[q.ID] && !q.IsParent() {
			continue
		}
		if q.IsParent() {
			exam.Tokens = append(exam.Tokens, model.ParentMarker(q.ID))
			exam.Permutations = append(exam.Permutations, nil)
			childIDs = append(childIDs, q.ChildIDs...)
			continue
		}
		exam.Tokens = append(exam.Tokens, model.Plain(q.ID))
		exam.Permutations = append(exam.Permutations, s.engine.Generate(len(q.Choices)))
	}

	if len(childIDs) == 0 {
		return exam, nil
	}

	children, err := s.questions.ResolveMany(ctx, childIDs)
	if err != nil && !errors.Is(err, ErrStorageUnavailable) {
		return nil, fmt.Errorf("failed to resolve passage children: %w", err)
	}
	seen := make(map[string]bool, len(childIDs))
	for _, id := range childIDs {
		child, ok := children[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		exam.ChildPermutations = append(exam.ChildPermutations, model.ChildPermutation{
			QuestionID: id,
			Order:      s.engine.Generate(len(child.Choices)),
		})
	}
	return exam, nil
}

// Serve replays a stored instance. Nothing is re-sampled or re-permuted.
func (s *ExamService) Serve(ctx context.Context, examID string, owner model.Identity) (*model.ExamPayload, error) {
	exam, err := s.Load(ctx, examID)
	if err != nil {
		return nil, err
	}

	payload := s.render(ctx, exam)
	s.startAttempt(ctx, exam, owner, payload.Series)
	metrics.ExamsAssembled.WithLabelValues("replay").Inc()
	return payload, nil
}

// Load fetches an instance through the cache. Unknown and expired
// instances are ErrExamNotFound.
func (s *ExamService) Load(ctx context.Context, examID string) (*model.ExamInstance, error) {
	if examID == "" {
		return nil, ErrExamNotFound
	}

	var exam *model.ExamInstance
	if s.examCache != nil {
		cached, err := s.examCache.Get(ctx, examID)
		if err != nil {
			s.log.Warn("exam cache read failed", zap.String("examId", examID), zap.Error(err))
		}
		exam = cached
	}

	if exam == nil {
		stored, err := s.examRepo.GetByID(ctx, examID)
		if err != nil {
			return nil, fmt.Errorf("failed to load exam: %w", err)
		}
		if stored == nil {
			return nil, ErrExamNotFound
		}
		exam = stored
		s.cacheExam(ctx, exam)
	}

	if exam.Expired(s.now()) {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

// render expands the token list into the client series
func (s *ExamService) render(ctx context.Context, exam *model.ExamInstance) *model.ExamPayload {
	payload := &model.ExamPayload{ExamID: exam.ID, Series: []model.SeriesItem{}}
	layout, err := s.Layout(ctx, exam)
	if err != nil {
		s.log.Warn("rendering exam without question storage", zap.String("examId", exam.ID), zap.Error(err))
		return payload
	}
	payload.Series = layout.Series
	return payload
}

// Layout resolves the instance's questions and arranges them exactly as
// they are served. Grading reads the display orders from here.
func (s *ExamService) Layout(ctx context.Context, exam *model.ExamInstance) (Layout, error) {
	ids := make([]string, 0, len(exam.Tokens))
	for _, tok := range exam.Tokens {
		ids = append(ids, tok.ID)
	}
	records, err := s.questions.ResolveMany(ctx, ids)
	if err != nil {
		return Layout{}, err
	}

	// Children of every resolved passage, fetched in one batch
	var childIDs []string
	for _, tok := range exam.Tokens {
		if q, ok := records[tok.ID]; ok && (tok.IsParent() || q.IsParent()) {
			for _, id := range q.ChildIDs {
				if _, known := records[id]; !known {
					childIDs = append(childIDs, id)
				}
			}
		}
	}
	if len(childIDs) > 0 {
		children, err := s.questions.ResolveMany(ctx, childIDs)
		if err != nil {
			s.log.Warn("passage children unavailable", zap.String("examId", exam.ID), zap.Error(err))
		}
		for id, q := range children {
			records[id] = q
		}
	}

	return Arrange(exam, records, s.log), nil
}

// Layout is an arranged instance
type Layout struct {
	Series []model.SeriesItem
	// Orders has an entry for every gradable question in Series: the
	// display order it was rendered with, nil for canonical order
	Orders  map[string][]int
	Records map[string]*model.Question
}

// Expand builds the series for exam from resolved records
func Expand(exam *model.ExamInstance, records map[string]*model.Question, log *zap.Logger) []model.SeriesItem {
	return Arrange(exam, records, log).Series
}

// Arrange lays out exam from resolved records. Token order is kept. A
// passage child appears once, under the first resolved passage that lists
// it, and never at top level. Tokens without a record are skipped; so is a
// passage whose own record is missing, children included.
func Arrange(exam *model.ExamInstance, records map[string]*model.Question, log *zap.Logger) Layout {
	// Passages referenced by the token list, resolved or not
	markers := make(map[string]bool)
	for _, tok := range exam.Tokens {
		if tok.IsParent() {
			markers[tok.ID] = true
		}
	}

	// Child id -> the passage it is nested under
	owner := make(map[string]string)
	for _, tok := range exam.Tokens {
		q, ok := records[tok.ID]
		if !ok || !(tok.IsParent() || q.IsParent()) {
			continue
		}
		for _, id := range q.ChildIDs {
			if _, claimed := owner[id]; !claimed && id != tok.ID {
				owner[id] = tok.ID
			}
		}
	}

	childOrders := make(map[string][]int, len(exam.ChildPermutations))
	for _, cp := range exam.ChildPermutations {
		childOrders[cp.QuestionID] = cp.Order
	}

	layout := Layout{
		Series:  make([]model.SeriesItem, 0, len(exam.Tokens)),
		Orders:  make(map[string][]int, len(exam.Tokens)+len(exam.ChildPermutations)),
		Records: records,
	}
	emitted := make(map[string]bool, len(exam.Tokens))
	for i, tok := range exam.Tokens {
		if emitted[tok.ID] {
			continue
		}
		q, ok := records[tok.ID]
		if !ok {
			continue
		}

		if tok.IsParent() || q.IsParent() {
			emitted[tok.ID] = true
			item := model.SeriesItem{
				ID:       q.ID,
				Type:     model.SeriesTypeComprehension,
				Text:     q.Text,
				Passage:  q.Passage,
				Children: []model.SeriesItem{},
			}
			for _, id := range q.ChildIDs {
				child, ok := records[id]
				if !ok || owner[id] != tok.ID || emitted[id] {
					continue
				}
				emitted[id] = true
				layout.Orders[id] = childOrders[id]
				item.Children = append(item.Children, choiceItem(child, childOrders[id], log))
			}
			layout.Series = append(layout.Series, item)
			continue
		}

		// Belongs to a passage: nested there, or dropped with it
		if _, nested := owner[tok.ID]; nested {
			continue
		}
		if q.IsChild() && markers[q.ParentID] {
			continue
		}

		emitted[tok.ID] = true
		var perm []int
		if i < len(exam.Permutations) {
			perm = exam.Permutations[i]
		}
		layout.Orders[tok.ID] = perm
		layout.Series = append(layout.Series, choiceItem(q, perm, log))
	}
	return layout
}

func choiceItem(q *model.Question, perm []int, log *zap.Logger) model.SeriesItem {
	if perm != nil && !permutation.Valid(perm, len(q.Choices)) {
		log.Warn("stored permutation does not fit choices, using canonical order",
			zap.String("questionId", q.ID),
			zap.Int("choices", len(q.Choices)),
			zap.Int("permutation", len(perm)),
		)
	}
	if perm == nil {
		perm = permutation.Identity(len(q.Choices))
	}
	return model.SeriesItem{
		ID:      q.ID,
		Type:    model.SeriesTypeMCQ,
		Text:    q.Text,
		Choices: permutation.Apply(perm, q.Choices),
	}
}

// MarkConsumed is called after grading; it never pushes expiry later
func (s *ExamService) MarkConsumed(ctx context.Context, examID string, retention time.Duration) {
	expires := s.now().Add(retention)
	if err := s.examRepo.MarkConsumed(ctx, examID, expires); err != nil {
		s.log.Warn("failed to mark exam consumed", zap.String("examId", examID), zap.Error(err))
		return
	}
	if s.examCache != nil {
		if err := s.examCache.Delete(ctx, examID); err != nil {
			s.log.Warn("failed to evict exam from cache", zap.String("examId", examID), zap.Error(err))
		}
	}
}

func (s *ExamService) resolveScope(ctx context.Context, slug string) string {
	if slug == "" || s.scopeRepo == nil {
		return slug
	}
	id, err := s.scopeRepo.ResolveSlug(ctx, slug)
	if err != nil {
		s.log.Warn("scope lookup failed, filtering by raw value", zap.String("scope", slug), zap.Error(err))
		return slug
	}
	if id == "" {
		return slug
	}
	return id
}

func (s *ExamService) startAttempt(ctx context.Context, exam *model.ExamInstance, owner model.Identity, series []model.SeriesItem) {
	if s.attempts == nil || owner.UserID == "" {
		return
	}
	if _, err := s.attempts.Start(ctx, exam.ID, owner, SeriesQuestionIDs(series)); err != nil {
		s.log.Warn("failed to open attempt", zap.String("examId", exam.ID), zap.Error(err))
	}
}

func (s *ExamService) cacheExam(ctx context.Context, exam *model.ExamInstance) {
	if s.examCache == nil {
		return
	}
	if err := s.examCache.Set(ctx, exam); err != nil {
		s.log.Warn("failed to cache exam", zap.String("examId", exam.ID), zap.Error(err))
	}
}

func (s *ExamService) publish(eventType string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(eventType, payload); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// SeriesQuestionIDs lists the gradable question ids of a series in order
func SeriesQuestionIDs(series []model.SeriesItem) []string {
	var ids []string
	for _, item := range series {
		if item.Type == model.SeriesTypeComprehension {
			for _, child := range item.Children {
				ids = append(ids, child.ID)
			}
			continue
		}
		ids = append(ids, item.ID)
	}
	return ids
}
