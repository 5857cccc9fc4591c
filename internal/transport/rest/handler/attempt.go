package handler

import (
	"context"
	"examforge/internal/model"
	"examforge/internal/transport/rest/middleware"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AttemptReader reads stored attempts
type AttemptReader interface {
	Get(ctx context.Context, key string) (*model.Attempt, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Attempt, error)
}

// AttemptHandler handles attempt endpoints
type AttemptHandler struct {
	attempts AttemptReader
	log      *zap.Logger
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attempts AttemptReader, log *zap.Logger) *AttemptHandler {
	return &AttemptHandler{attempts: attempts, log: log}
}

// Get handles GET /v1/attempts/{key}
func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.attempts.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	// Attempts tied to a user are only visible to that user
	if attempt.UserID != "" && attempt.UserID != middleware.GetUserID(r.Context()) {
		writeError(w, http.StatusNotFound, "attempt not found")
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// Mine handles GET /v1/me/attempts
func (h *AttemptHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := int64(50)
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.ParseInt(l, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	attempts, err := h.attempts.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if attempts == nil {
		attempts = []*model.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attempts": attempts,
		"count":    len(attempts),
	})
}
