package main

import (
	"context"
	"examforge/internal/config"
	"examforge/internal/fallback"
	"examforge/internal/logger"
	"examforge/internal/model"
	"examforge/internal/repository"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Loads a question file (fallback dataset format) into the questions
// collection. Ids that are not ObjectIDs get fresh ones; passage links are
// rewritten to match.
func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	file := flag.String("file", "", "question JSON file (defaults to fallback.path)")
	drop := flag.Bool("drop", false, "remove existing questions first")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level})
	defer log.Sync()

	path := *file
	if path == "" {
		path = cfg.Fallback.Path
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatal("failed to open question file", zap.String("path", path), zap.Error(err))
	}
	questions, err := fallback.Decode(f)
	f.Close()
	if err != nil {
		log.Fatal("failed to decode question file", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.Mongo.Database)
	repository.EnsureIndexes(ctx, db, log)

	if *drop {
		res, err := db.Collection("questions").DeleteMany(ctx, bson.M{})
		if err != nil {
			log.Fatal("failed to clear questions", zap.Error(err))
		}
		log.Info("cleared questions", zap.Int64("deleted", res.DeletedCount))
	}

	repo := repository.NewQuestionRepo(db)
	ids := Remap(questions)
	for i := range questions {
		if err := repo.Create(ctx, &questions[i]); err != nil {
			log.Fatal("failed to insert question", zap.String("id", questions[i].ID), zap.Error(err))
		}
	}

	log.Info("seeded questions",
		zap.String("file", path),
		zap.Int("count", len(questions)),
		zap.Int("remapped", len(ids)),
	)
}

// Remap gives every non-ObjectID question a new ObjectID and rewrites
// childIds and parentId references. Children listed by a passage get the
// back reference they lack, so sampling never draws them on their own.
// It returns old id -> new id for the rewritten records.
func Remap(questions []model.Question) map[string]string {
	parents := make(map[string]string)
	for _, q := range questions {
		if !q.IsParent() {
			continue
		}
		for _, cid := range q.ChildIDs {
			if _, ok := parents[cid]; !ok {
				parents[cid] = q.ID
			}
		}
	}
	for i := range questions {
		q := &questions[i]
		if p, ok := parents[q.ID]; ok && q.ParentID == "" && p != q.ID {
			q.ParentID = p
		}
	}

	ids := make(map[string]string)
	for i := range questions {
		q := &questions[i]
		if repository.IsPrimaryID(q.ID) {
			continue
		}
		newID := primitive.NewObjectID().Hex()
		if q.ID != "" {
			ids[q.ID] = newID
		}
		q.ID = newID
	}

	for i := range questions {
		q := &questions[i]
		if mapped, ok := ids[q.ParentID]; ok {
			q.ParentID = mapped
		}
		for j, cid := range q.ChildIDs {
			if mapped, ok := ids[cid]; ok {
				q.ChildIDs[j] = mapped
			}
		}
	}
	return ids
}
