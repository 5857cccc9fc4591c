package cache

import (
	"context"
	"encoding/json"
	"examforge/internal/model"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuestionCache keeps recently resolved primary-store records. It is read
// only when both question sources are unreachable.
type QuestionCache interface {
	SetMany(ctx context.Context, questions []*model.Question) error
	GetMany(ctx context.Context, ids []string) ([]*model.Question, error)
}

type questionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuestionCache creates a new question cache
func NewQuestionCache(client *redis.Client, ttl time.Duration) QuestionCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &questionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *questionCache) key(id string) string {
	return fmt.Sprintf("question:%s", id)
}

func (c *questionCache) SetMany(ctx context.Context, questions []*model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return err
		}
		pipe.Set(ctx, c.key(q.ID), data, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *questionCache) GetMany(ctx context.Context, ids []string) ([]*model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	questions := make([]*model.Question, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // Missing key
		}
		var q model.Question
		if err := json.Unmarshal([]byte(s), &q); err != nil {
			continue
		}
		q.Source = model.SourceCache
		questions = append(questions, &q)
	}
	return questions, nil
}
