package service

import (
	"errors"
	"examforge/internal/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidateToken(t *testing.T) {
	svc := NewAuthService("test-secret")

	token, err := svc.IssueToken("u1", "acme", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Scope != "acme" {
		t.Errorf("unexpected claims %+v", claims)
	}

	permanent, _ := svc.IssueToken("u1", "", 0)
	if _, err := svc.ValidateToken(permanent); err != nil {
		t.Errorf("token without expiry should validate, got %v", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewAuthService("test-secret")
	other := NewAuthService("other-secret")

	foreign, _ := other.IssueToken("u1", "", time.Hour)
	noUser, _ := svc.IssueToken("", "", time.Hour)
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &model.UserClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("test-secret"))

	testCases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign},
		{"no user", noUser},
		{"expired", expired},
		{"empty", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
