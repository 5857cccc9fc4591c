package model

import "strings"

// TokenKind tags a QuestionToken
type TokenKind string

const (
	TokenPlain  TokenKind = "plain"
	TokenParent TokenKind = "parent"
)

// ParentPrefix marks a comprehension parent in the flat string form
const ParentPrefix = "parent:"

// QuestionToken is a normalized reference to a question: either the
// question itself or a marker that expands into a passage and its children.
type QuestionToken struct {
	Kind TokenKind `json:"kind" bson:"kind"`
	ID   string    `json:"id" bson:"id"`
}

// Plain builds a direct question reference
func Plain(id string) QuestionToken {
	return QuestionToken{Kind: TokenPlain, ID: id}
}

// ParentMarker builds a passage reference
func ParentMarker(id string) QuestionToken {
	return QuestionToken{Kind: TokenParent, ID: id}
}

// IsParent reports whether the token expands into a comprehension unit
func (t QuestionToken) IsParent() bool {
	return t.Kind == TokenParent
}

// String renders the flat legacy form: "<id>" or "parent:<id>"
func (t QuestionToken) String() string {
	if t.IsParent() {
		return ParentPrefix + t.ID
	}
	return t.ID
}

// TrimParentPrefix returns the id after a case-insensitive "parent:" prefix
func TrimParentPrefix(s string) (string, bool) {
	if len(s) < len(ParentPrefix) || !strings.EqualFold(s[:len(ParentPrefix)], ParentPrefix) {
		return s, false
	}
	return strings.TrimSpace(s[len(ParentPrefix):]), true
}
