package handler

import (
	"context"
	"encoding/json"
	"examforge/internal/model"
	"examforge/internal/service"
	"examforge/internal/transport/rest/middleware"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ExamProvider serves fresh and replayed exams
type ExamProvider interface {
	Get(ctx context.Context, req service.ExamRequest) (*model.ExamPayload, error)
}

// Submitter grades submissions
type Submitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*model.GradeResult, error)
}

// ExamHandler handles exam and submission endpoints
type ExamHandler struct {
	exams   ExamProvider
	grading Submitter
	log     *zap.Logger
}

// NewExamHandler creates a new exam handler
func NewExamHandler(exams ExamProvider, grading Submitter, log *zap.Logger) *ExamHandler {
	return &ExamHandler{exams: exams, grading: grading, log: log}
}

// SubmitRequest is the request body for grading. Identity fields are
// ignored when the caller is authenticated.
type SubmitRequest struct {
	ExamID  string                   `json:"examId"`
	UserID  string                   `json:"userId"`
	Scope   string                   `json:"scope"`
	Module  string                   `json:"module"`
	Answers []model.AnswerSubmission `json:"answers" validate:"dive"`
}

// Assemble handles GET /v1/exams
func (h *ExamHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var count int
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		count = n
	}

	owner, _ := middleware.GetIdentity(r.Context())
	owner.Module = q.Get("module")

	payload, err := h.exams.Get(r.Context(), service.ExamRequest{
		ExamID: q.Get("examId"),
		Count:  count,
		Module: q.Get("module"),
		Scope:  q.Get("scope"),
		Owner:  owner,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// Replay handles GET /v1/exams/{examId}
func (h *ExamHandler) Replay(w http.ResponseWriter, r *http.Request) {
	examID := mux.Vars(r)["examId"]
	owner, _ := middleware.GetIdentity(r.Context())

	payload, err := h.exams.Get(r.Context(), service.ExamRequest{ExamID: examID, Owner: owner})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// Submit handles POST /v1/exams/{examId}/submit and POST /v1/submissions
func (h *ExamHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if examID, ok := mux.Vars(r)["examId"]; ok {
		req.ExamID = examID
	}

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		identity = model.Identity{UserID: req.UserID, Scope: req.Scope}
	}
	identity.Module = req.Module

	result, err := h.grading.Submit(r.Context(), service.SubmitRequest{
		ExamID:   req.ExamID,
		Identity: identity,
		Answers:  req.Answers,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
