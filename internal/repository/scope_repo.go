package repository

import (
	"context"
	"examforge/internal/model"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ScopeRepo resolves organization slugs. Organizations themselves are
// administered elsewhere; this is read-only.
type ScopeRepo interface {
	// ResolveSlug returns the scope id for slug, or "" if unknown
	ResolveSlug(ctx context.Context, slug string) (string, error)
}

type scopeRepo struct {
	collection *mongo.Collection
}

// NewScopeRepo creates a new scope repository
func NewScopeRepo(db *mongo.Database) ScopeRepo {
	return &scopeRepo{
		collection: db.Collection("scopes"),
	}
}

func (r *scopeRepo) ResolveSlug(ctx context.Context, slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return "", nil
	}

	var scope model.Scope
	err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&scope)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return scope.ID, nil
}
