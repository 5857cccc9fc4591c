package repository

import (
	"context"
	"examforge/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AttemptRepo persists one attempt per identity key. Writes are single
// atomic find-and-modify upserts on a unique key index.
type AttemptRepo interface {
	// Start creates an in-progress attempt if none exists for the key and
	// returns whatever is stored.
	Start(ctx context.Context, attempt *model.Attempt) (*model.Attempt, error)
	// Finish overwrites the graded fields of the attempt for the key,
	// keeping the original id, startedAt and createdAt.
	Finish(ctx context.Context, attempt *model.Attempt) (*model.Attempt, error)
	GetByKey(ctx context.Context, key string) (*model.Attempt, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Attempt, error)
}

type attemptRepo struct {
	collection *mongo.Collection
}

// NewAttemptRepo creates a new attempt repository
func NewAttemptRepo(db *mongo.Database) AttemptRepo {
	return &attemptRepo{
		collection: db.Collection("attempts"),
	}
}

func (r *attemptRepo) Start(ctx context.Context, attempt *model.Attempt) (*model.Attempt, error) {
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":         attempt.ID,
			"key":         attempt.Key,
			"examId":      attempt.ExamID,
			"userId":      attempt.UserID,
			"scope":       attempt.Scope,
			"module":      attempt.Module,
			"questionIds": attempt.QuestionIDs,
			"answers":     bson.A{},
			"score":       0,
			"maxScore":    attempt.MaxScore,
			"percentage":  0,
			"passed":      false,
			"status":      model.AttemptInProgress,
			"startedAt":   attempt.StartedAt,
			"createdAt":   attempt.CreatedAt,
		},
	}
	return r.upsert(ctx, attempt.Key, update)
}

func (r *attemptRepo) Finish(ctx context.Context, attempt *model.Attempt) (*model.Attempt, error) {
	update := bson.M{
		"$set": bson.M{
			"examId":      attempt.ExamID,
			"userId":      attempt.UserID,
			"scope":       attempt.Scope,
			"module":      attempt.Module,
			"questionIds": attempt.QuestionIDs,
			"answers":     attempt.Answers,
			"score":       attempt.Score,
			"maxScore":    attempt.MaxScore,
			"percentage":  attempt.Percentage,
			"passed":      attempt.Passed,
			"status":      model.AttemptFinished,
			"finishedAt":  attempt.FinishedAt,
		},
		"$setOnInsert": bson.M{
			"_id":       attempt.ID,
			"key":       attempt.Key,
			"startedAt": attempt.StartedAt,
			"createdAt": attempt.CreatedAt,
		},
	}
	return r.upsert(ctx, attempt.Key, update)
}

func (r *attemptRepo) upsert(ctx context.Context, key string, update bson.M) (*model.Attempt, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.Attempt
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"key": key}, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert inserted the key first; this run now matches it
		stored = model.Attempt{}
		err = r.collection.FindOneAndUpdate(ctx, bson.M{"key": key}, update, opts).Decode(&stored)
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *attemptRepo) GetByKey(ctx context.Context, key string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.collection.FindOne(ctx, bson.M{"key": key}).Decode(&attempt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Attempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attempts []*model.Attempt
	if err = cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}
