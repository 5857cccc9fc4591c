package cache

import (
	"context"
	"encoding/json"
	"examforge/internal/model"
	"examforge/internal/normalize"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExamCache is a read-through cache in front of the exam instance store
type ExamCache interface {
	Set(ctx context.Context, exam *model.ExamInstance) error
	Get(ctx context.Context, id string) (*model.ExamInstance, error)
	Delete(ctx context.Context, id string) error
}

type examCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewExamCache creates a new exam cache
func NewExamCache(client *redis.Client, ttl time.Duration) ExamCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &examCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *examCache) key(id string) string {
	return fmt.Sprintf("exam:%s", id)
}

func (c *examCache) Set(ctx context.Context, exam *model.ExamInstance) error {
	ttl := c.ttl
	if exam.ExpiresAt != nil {
		// Never outlive the instance itself
		remaining := time.Until(*exam.ExpiresAt)
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	data, err := json.Marshal(exam)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(exam.ID), data, ttl).Err()
}

func (c *examCache) Get(ctx context.Context, id string) (*model.ExamInstance, error) {
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeExam([]byte(data))
}

func (c *examCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

// cachedExam leaves tokens raw so entries written in the flat string form
// still decode
type cachedExam struct {
	model.ExamInstance
	Tokens json.RawMessage `json:"tokens"`
}

func decodeExam(data []byte) (*model.ExamInstance, error) {
	var entry cachedExam
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	exam := entry.ExamInstance
	exam.Tokens = normalize.Tokens(entry.Tokens)
	return &exam, nil
}
