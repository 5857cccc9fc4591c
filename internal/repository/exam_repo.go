package repository

import (
	"context"
	"examforge/internal/model"
	"examforge/internal/normalize"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ExamRepo persists assembled exam instances
type ExamRepo interface {
	Create(ctx context.Context, exam *model.ExamInstance) error
	GetByID(ctx context.Context, id string) (*model.ExamInstance, error)
	// MarkConsumed stamps the terminal status and pulls expiry forward to
	// expiresAt if that is earlier than the current stamp.
	MarkConsumed(ctx context.Context, id string, expiresAt time.Time) error
}

type examRepo struct {
	collection *mongo.Collection
}

// NewExamRepo creates a new exam instance repository
func NewExamRepo(db *mongo.Database) ExamRepo {
	return &examRepo{
		collection: db.Collection("exam_instances"),
	}
}

func (r *examRepo) Create(ctx context.Context, exam *model.ExamInstance) error {
	_, err := r.collection.InsertOne(ctx, exam)
	return err
}

func (r *examRepo) GetByID(ctx context.Context, id string) (*model.ExamInstance, error) {
	raw, err := r.collection.FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Exam not found
		}
		return nil, err
	}
	return DecodeExam(raw)
}

func (r *examRepo) MarkConsumed(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": model.ExamConsumed},
		"$min": bson.M{"expiresAt": expiresAt},
	})
	return err
}

// examRow is an instance as stored, with the token list left undecoded.
// Older rows hold flat strings or encoded text instead of token objects.
type examRow struct {
	model.ExamInstance `bson:",inline"`
	Tokens             bson.RawValue `bson:"tokens"`
}

// DecodeExam reads a stored instance and normalizes its token list
func DecodeExam(raw bson.Raw) (*model.ExamInstance, error) {
	var row examRow
	if err := bson.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	exam := row.ExamInstance
	exam.Tokens = normalize.Tokens(tokenValue(row.Tokens))
	return &exam, nil
}

// tokenValue converts a raw tokens field into a value normalize accepts
func tokenValue(rv bson.RawValue) any {
	switch rv.Type {
	case bson.TypeString:
		return rv.StringValue()
	case bson.TypeArray:
		values, err := rv.Array().Values()
		if err != nil {
			return nil
		}
		items := make([]any, 0, len(values))
		for _, v := range values {
			switch {
			case v.Type == bson.TypeString:
				items = append(items, v.StringValue())
			case v.Type == bson.TypeObjectID:
				items = append(items, v.ObjectID().Hex())
			case v.Type == bson.TypeEmbeddedDocument:
				items = append(items, tokenObject(v.Document()))
			case v.IsNumber():
				if n, ok := v.AsInt64OK(); ok {
					items = append(items, strconv.FormatInt(n, 10))
				}
			}
		}
		return items
	default:
		return nil
	}
}

func tokenObject(doc bson.Raw) map[string]any {
	m := make(map[string]any, 2)
	for _, k := range []string{"kind", "id", "_id", "parent"} {
		v := doc.Lookup(k)
		if s, ok := v.StringValueOK(); ok {
			m[k] = s
		} else if oid, ok := v.ObjectIDOK(); ok {
			m[k] = oid.Hex()
		}
	}
	return m
}
