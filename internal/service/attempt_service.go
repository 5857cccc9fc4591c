package service

import (
	"context"
	"examforge/internal/model"
	"examforge/internal/repository"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttemptService keeps exactly one attempt record per identity key
type AttemptService struct {
	repo repository.AttemptRepo
	log  *zap.Logger
	now  func() time.Time
}

// NewAttemptService creates a new attempt service
func NewAttemptService(repo repository.AttemptRepo, log *zap.Logger) *AttemptService {
	return &AttemptService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// AttemptKey derives the upsert key: the exam id when known, otherwise
// whatever identity fields are set. With neither, the key is a one-off
// anonymous id.
func AttemptKey(examID string, identity model.Identity) string {
	if examID != "" {
		return "exam:" + examID
	}
	var parts []string
	if identity.UserID != "" {
		parts = append(parts, "user:"+identity.UserID)
	}
	if identity.Scope != "" {
		parts = append(parts, "scope:"+identity.Scope)
	}
	if identity.Module != "" {
		parts = append(parts, "module:"+identity.Module)
	}
	if len(parts) == 0 {
		return "anon:" + uuid.NewString()
	}
	return strings.Join(parts, "|")
}

// Start records that an exam was served. An existing attempt for the key,
// in progress or finished, is left untouched.
func (s *AttemptService) Start(ctx context.Context, examID string, identity model.Identity, questionIDs []string) (*model.Attempt, error) {
	now := s.now()
	attempt := &model.Attempt{
		ID:          uuid.NewString(),
		Key:         AttemptKey(examID, identity),
		ExamID:      examID,
		UserID:      identity.UserID,
		Scope:       identity.Scope,
		Module:      identity.Module,
		QuestionIDs: questionIDs,
		MaxScore:    len(questionIDs),
		Status:      model.AttemptInProgress,
		StartedAt:   now,
		CreatedAt:   now,
	}
	stored, err := s.repo.Start(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}
	return stored, nil
}

// FinishInput carries a graded submission
type FinishInput struct {
	ExamID   string
	Identity model.Identity
	Key      string // Precomputed key; derived from ExamID and Identity when empty
	Result   model.GradeResult
	Answers  []model.AnswerRecord
}

// Finish overwrites the attempt for the key with the graded result. The
// first startedAt and createdAt survive; a new record gets
// startedAt = finishedAt = now.
func (s *AttemptService) Finish(ctx context.Context, in FinishInput) (*model.Attempt, error) {
	key := in.Key
	if key == "" {
		key = AttemptKey(in.ExamID, in.Identity)
	}

	questionIDs := make([]string, len(in.Answers))
	for i, a := range in.Answers {
		questionIDs[i] = a.QuestionID
	}

	now := s.now()
	attempt := &model.Attempt{
		ID:          uuid.NewString(),
		Key:         key,
		ExamID:      in.ExamID,
		UserID:      in.Identity.UserID,
		Scope:       in.Identity.Scope,
		Module:      in.Identity.Module,
		QuestionIDs: questionIDs,
		Answers:     in.Answers,
		Score:       in.Result.Score,
		MaxScore:    in.Result.Total,
		Percentage:  in.Result.Percentage,
		Passed:      in.Result.Passed,
		Status:      model.AttemptFinished,
		StartedAt:   now,
		FinishedAt:  &now,
		CreatedAt:   now,
	}

	stored, err := s.repo.Finish(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to save attempt: %w", err)
	}
	s.log.Debug("attempt finished",
		zap.String("key", key),
		zap.Int("score", stored.Score),
		zap.Int("maxScore", stored.MaxScore),
	)
	return stored, nil
}

// Get returns the attempt stored under key
func (s *AttemptService) Get(ctx context.Context, key string) (*model.Attempt, error) {
	attempt, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// ListByUser returns a user's attempts, newest first
func (s *AttemptService) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Attempt, error) {
	if userID == "" {
		return nil, nil
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
