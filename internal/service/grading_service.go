package service

import (
	"context"
	"examforge/internal/event"
	"examforge/internal/metrics"
	"examforge/internal/model"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SubmitRequest is one graded submission
type SubmitRequest struct {
	ExamID   string
	Identity model.Identity
	Answers  []model.AnswerSubmission
}

// GradingService scores submissions and records the attempt
type GradingService struct {
	exams             *ExamService
	questions         *QuestionService
	attempts          *AttemptService
	passThreshold     int
	consumedRetention time.Duration
	notifier          Notifier
	log               *zap.Logger
}

// NewGradingService creates a new grading service. passThreshold is the
// minimum percentage that passes.
func NewGradingService(
	exams *ExamService,
	questions *QuestionService,
	attempts *AttemptService,
	passThreshold int,
	consumedRetention time.Duration,
	log *zap.Logger,
) *GradingService {
	return &GradingService{
		exams:             exams,
		questions:         questions,
		attempts:          attempts,
		passThreshold:     passThreshold,
		consumedRetention: consumedRetention,
		log:               log,
	}
}

// SetNotifier sets the event publisher
func (s *GradingService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Submit grades the answers and upserts the attempt. Nothing is written
// when the request is rejected.
func (s *GradingService) Submit(ctx context.Context, req SubmitRequest) (*model.GradeResult, error) {
	if len(req.Answers) == 0 {
		return nil, ErrNoAnswers
	}
	for _, a := range req.Answers {
		if a.QuestionID == "" {
			return nil, fmt.Errorf("%w: answer without questionId", ErrMalformedInput)
		}
	}

	ids := make([]string, len(req.Answers))
	for i, a := range req.Answers {
		ids[i] = a.QuestionID
	}

	var (
		exam         *model.ExamInstance
		questions    map[string]*model.Question
		permutations map[string][]int
	)
	if req.ExamID != "" {
		loaded, err := s.exams.Load(ctx, req.ExamID)
		if err != nil {
			return nil, err
		}
		exam = loaded

		// Grade against the orders the client was shown
		layout, err := s.exams.Layout(ctx, exam)
		if err != nil {
			return nil, err
		}
		permutations = layout.Orders
		questions = make(map[string]*model.Question, len(ids))
		var outside []string
		for _, id := range uniqueIDs(ids) {
			if _, served := layout.Orders[id]; !served {
				outside = append(outside, id)
				continue
			}
			if q, ok := layout.Records[id]; ok {
				questions[id] = q
			}
		}
		if len(outside) > 0 {
			s.log.Warn("answers for questions outside the exam, scored as unknown",
				zap.String("examId", exam.ID),
				zap.Strings("questionIds", outside),
			)
		}
	} else {
		resolved, err := s.questions.ResolveMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		questions = resolved
	}

	graded := Grade(req.Answers, questions, permutations, s.passThreshold)
	if len(graded.Unpermuted) > 0 {
		s.log.Warn("no stored permutation, display index taken as canonical",
			zap.String("examId", req.ExamID),
			zap.Strings("questionIds", graded.Unpermuted),
		)
	}

	key := AttemptKey(req.ExamID, req.Identity)
	result := graded.Result
	result.ExamID = req.ExamID
	result.AttemptKey = key

	if _, err := s.attempts.Finish(ctx, FinishInput{
		ExamID:   req.ExamID,
		Identity: req.Identity,
		Key:      key,
		Result:   result,
		Answers:  graded.Records,
	}); err != nil {
		return nil, err
	}

	if exam != nil {
		s.exams.MarkConsumed(ctx, exam.ID, s.consumedRetention)
	}

	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	metrics.SubmissionsGraded.WithLabelValues(outcome).Inc()

	if s.notifier != nil {
		err := s.notifier.Publish(event.AttemptFinished, AttemptFinishedEvent{
			AttemptKey: key,
			ExamID:     req.ExamID,
			UserID:     req.Identity.UserID,
			Score:      result.Score,
			Total:      result.Total,
			Percentage: result.Percentage,
			Passed:     result.Passed,
		})
		if err != nil {
			s.log.Warn("failed to publish event", zap.String("type", event.AttemptFinished), zap.Error(err))
		}
	}

	s.log.Info("submission graded",
		zap.String("attemptKey", key),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total),
		zap.Bool("passed", result.Passed),
	)
	return &result, nil
}
