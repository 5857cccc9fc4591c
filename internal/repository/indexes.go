package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureIndexes creates the indexes the stores rely on. The unique key
// index on attempts is what makes concurrent upserts collapse to one record.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) {
	questions := db.Collection("questions")
	createIndex(ctx, log, questions, bson.D{{Key: "module", Value: 1}, {Key: "scope", Value: 1}}, nil)
	createIndex(ctx, log, questions, bson.D{{Key: "parentId", Value: 1}}, nil)

	exams := db.Collection("exam_instances")
	// Retention: instances disappear once expiresAt passes
	createIndex(ctx, log, exams, bson.D{{Key: "expiresAt", Value: 1}}, options.Index().SetExpireAfterSeconds(0))
	createIndex(ctx, log, exams, bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}, nil)

	attempts := db.Collection("attempts")
	createIndex(ctx, log, attempts, bson.D{{Key: "key", Value: 1}}, options.Index().SetUnique(true))
	createIndex(ctx, log, attempts, bson.D{{Key: "userId", Value: 1}, {Key: "startedAt", Value: -1}}, nil)

	scopes := db.Collection("scopes")
	createIndex(ctx, log, scopes, bson.D{{Key: "slug", Value: 1}}, options.Index().SetUnique(true))

	log.Info("mongo indexes ensured")
}

func createIndex(ctx context.Context, log *zap.Logger, coll *mongo.Collection, keys bson.D, opts *options.IndexOptions) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Warn("failed to create index", zap.String("collection", coll.Name()), zap.Error(err))
	}
}
