package service

import (
	"context"
	"examforge/internal/cache"
	"examforge/internal/metrics"
	"examforge/internal/model"
	"examforge/internal/permutation"
	"examforge/internal/repository"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FallbackSource is the static secondary question source
type FallbackSource interface {
	FindByIDs(ids []string) ([]*model.Question, error)
	Eligible(filter model.QuestionFilter) ([]*model.Question, error)
}

// QuestionService resolves question ids across the primary store and the
// fallback dataset, degrading to whichever source is reachable.
type QuestionService struct {
	repo     repository.QuestionRepo
	fallback FallbackSource
	cache    cache.QuestionCache // optional
	engine   *permutation.Engine
	log      *zap.Logger
}

// NewQuestionService creates a new question service
func NewQuestionService(
	repo repository.QuestionRepo,
	fallback FallbackSource,
	questionCache cache.QuestionCache,
	engine *permutation.Engine,
	log *zap.Logger,
) *QuestionService {
	return &QuestionService{
		repo:     repo,
		fallback: fallback,
		cache:    questionCache,
		engine:   engine,
		log:      log,
	}
}

// ResolveMany looks ids up in both sources concurrently. Ids found nowhere
// are absent from the map. When both sources fail and the cache has nothing
// either, the map is empty and ErrStorageUnavailable is returned with it.
func (s *QuestionService) ResolveMany(ctx context.Context, ids []string) (map[string]*model.Question, error) {
	ids = uniqueIDs(ids)
	result := make(map[string]*model.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	primaryIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if repository.IsPrimaryID(id) {
			primaryIDs = append(primaryIDs, id)
		}
	}

	var (
		g                        errgroup.Group
		primary, secondary       []*model.Question
		primaryErr, secondaryErr error
	)
	// Each lookup records its own error so one failing source never
	// cancels the other.
	g.Go(func() error {
		if len(primaryIDs) == 0 {
			return nil
		}
		primary, primaryErr = s.repo.GetByIDs(ctx, primaryIDs)
		return nil
	})
	g.Go(func() error {
		secondary, secondaryErr = s.fallback.FindByIDs(ids)
		return nil
	})
	_ = g.Wait()

	if primaryErr != nil {
		s.log.Warn("primary question store unavailable", zap.Int("ids", len(primaryIDs)), zap.Error(primaryErr))
		metrics.SourceDegraded.WithLabelValues("primary").Inc()
	}
	if secondaryErr != nil {
		s.log.Warn("fallback dataset unavailable", zap.Error(secondaryErr))
		metrics.SourceDegraded.WithLabelValues("fallback").Inc()
	}

	if primaryErr != nil && secondaryErr != nil {
		return s.fromCache(ctx, ids)
	}

	// Primary wins on collision
	for _, q := range secondary {
		result[q.ID] = q
	}
	for _, q := range primary {
		result[q.ID] = q
	}

	if s.cache != nil && len(primary) > 0 {
		if err := s.cache.SetMany(ctx, primary); err != nil {
			s.log.Warn("failed to cache questions", zap.Error(err))
		}
	}
	return result, nil
}

func (s *QuestionService) fromCache(ctx context.Context, ids []string) (map[string]*model.Question, error) {
	result := make(map[string]*model.Question)
	if s.cache == nil {
		return result, ErrStorageUnavailable
	}
	cached, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		s.log.Warn("question cache unavailable", zap.Error(err))
		return result, ErrStorageUnavailable
	}
	if len(cached) == 0 {
		return result, ErrStorageUnavailable
	}
	for _, q := range cached {
		result[q.ID] = q
	}
	s.log.Info("served questions from cache", zap.Int("requested", len(ids)), zap.Int("found", len(result)))
	return result, nil
}

// Sample draws up to count eligible records without replacement, in draw
// order. A pool smaller than count yields the whole pool.
func (s *QuestionService) Sample(ctx context.Context, filter model.QuestionFilter, count int) ([]*model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	sampled, err := s.repo.Sample(ctx, filter, count)
	if err == nil && len(sampled) > 0 {
		return sampled, nil
	}
	if err != nil {
		s.log.Warn("primary sample failed, drawing from fallback dataset", zap.Error(err))
		metrics.SourceDegraded.WithLabelValues("primary").Inc()
	}

	pool, ferr := s.fallback.Eligible(filter)
	if ferr != nil {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, ferr)
		}
		// Primary answered with an empty pool; that stands
		return nil, nil
	}

	s.engine.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
