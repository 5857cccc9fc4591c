package middleware

import (
	"context"
	"examforge/internal/model"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey contextKey = "userId"
	ScopeKey  contextKey = "scope"
)

// TokenValidator checks a bearer token
type TokenValidator interface {
	ValidateToken(token string) (*model.UserClaims, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// OptionalUser attaches the caller's identity when a bearer token is sent.
// No token means anonymous; a bad token is rejected.
func (m *AuthMiddleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, ScopeKey, claims.Scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser is OptionalUser that also rejects anonymous callers
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return m.OptionalUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// GetIdentity returns the token identity, and false for anonymous callers
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	userID := GetUserID(ctx)
	if userID == "" {
		return model.Identity{}, false
	}
	scope, _ := ctx.Value(ScopeKey).(string)
	return model.Identity{UserID: userID, Scope: scope}, true
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
