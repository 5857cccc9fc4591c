package repository

import (
	"context"
	"examforge/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// QuestionRepo is the primary question store
type QuestionRepo interface {
	// Batched lookup; ids that are not primary-store ids are ignored
	GetByIDs(ctx context.Context, ids []string) ([]*model.Question, error)
	// Uniform sample without replacement of standalone and passage records
	Sample(ctx context.Context, filter model.QuestionFilter, count int) ([]*model.Question, error)

	// Seeding
	Create(ctx context.Context, question *model.Question) error
}

type questionRepo struct {
	collection *mongo.Collection
}

// questionDoc stores the id as an ObjectID; reads decode it back into the
// string id of model.Question.
type questionDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Text         string             `bson:"text"`
	Passage      string             `bson:"passage,omitempty"`
	Choices      []string           `bson:"choices,omitempty"`
	CorrectIndex *int               `bson:"correctIndex,omitempty"`
	Kind         model.QuestionKind `bson:"kind,omitempty"`
	ChildIDs     []string           `bson:"childIds,omitempty"`
	ParentID     string             `bson:"parentId,omitempty"`
	Module       string             `bson:"module,omitempty"`
	Scope        string             `bson:"scope,omitempty"`
}

// NewQuestionRepo creates a new question repository
func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection("questions"),
	}
}

// IsPrimaryID reports whether id looks like a primary-store identifier
func IsPrimaryID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func (r *questionRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Question, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, oid)
	}
	if len(objectIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*model.Question
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	for _, q := range questions {
		q.Source = model.SourcePrimary
	}
	return questions, nil
}

func (r *questionRepo) Sample(ctx context.Context, filter model.QuestionFilter, count int) ([]*model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	match := bson.M{
		"$or": bson.A{
			bson.M{"parentId": bson.M{"$exists": false}},
			bson.M{"parentId": ""},
		},
	}
	if filter.Module != "" {
		match["module"] = filter.Module
	}
	if filter.Scope != "" {
		match["scope"] = filter.Scope
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sample", Value: bson.M{"size": count}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sampled []*model.Question
	if err = cursor.All(ctx, &sampled); err != nil {
		return nil, err
	}

	// $sample may repeat a document on large collections
	seen := make(map[string]bool, len(sampled))
	questions := make([]*model.Question, 0, len(sampled))
	for _, q := range sampled {
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		q.Source = model.SourcePrimary
		questions = append(questions, q)
	}
	return questions, nil
}

func (r *questionRepo) Create(ctx context.Context, question *model.Question) error {
	// Generate ObjectID if not provided
	oid := primitive.NewObjectID()
	if question.ID != "" {
		parsed, err := primitive.ObjectIDFromHex(question.ID)
		if err != nil {
			return err
		}
		oid = parsed
	}

	doc := questionDoc{
		ID:           oid,
		Text:         question.Text,
		Passage:      question.Passage,
		Choices:      question.Choices,
		CorrectIndex: question.CorrectIndex,
		Kind:         question.Kind,
		ChildIDs:     question.ChildIDs,
		ParentID:     question.ParentID,
		Module:       question.Module,
		Scope:        question.Scope,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return err
	}
	question.ID = oid.Hex()
	return nil
}
