package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are the JWT claims issued by the external auth service.
// Only the identity fields are read here.
type UserClaims struct {
	UserID string `json:"userId"`
	Scope  string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Scope is an organization record used to resolve slugs to filter ids
type Scope struct {
	ID   string `json:"id" bson:"_id"`
	Slug string `json:"slug" bson:"slug"`
	Name string `json:"name" bson:"name"`
}
