package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptFinished   AttemptStatus = "finished"
)

// AnswerRecord is one graded submission inside an attempt
type AnswerRecord struct {
	QuestionID     string `json:"questionId" bson:"questionId"`
	DisplayIndex   *int   `json:"displayIndex,omitempty" bson:"displayIndex,omitempty"`     // As clicked
	CanonicalIndex *int   `json:"canonicalIndex,omitempty" bson:"canonicalIndex,omitempty"` // After inversion
	SelectedText   string `json:"selectedText,omitempty" bson:"selectedText,omitempty"`
	CorrectIndex   *int   `json:"correctIndex,omitempty" bson:"correctIndex,omitempty"`
	IsCorrect      bool   `json:"isCorrect" bson:"isCorrect"`
}

// Attempt is one test-taking episode, keyed by exam id or by identity
type Attempt struct {
	ID          string         `json:"id" bson:"_id"`
	Key         string         `json:"key" bson:"key"`
	ExamID      string         `json:"examId,omitempty" bson:"examId,omitempty"`
	UserID      string         `json:"userId,omitempty" bson:"userId,omitempty"`
	Scope       string         `json:"scope,omitempty" bson:"scope,omitempty"`
	Module      string         `json:"module,omitempty" bson:"module,omitempty"`
	QuestionIDs []string       `json:"questionIds" bson:"questionIds"`
	Answers     []AnswerRecord `json:"answers" bson:"answers"`
	Score       int            `json:"score" bson:"score"`
	MaxScore    int            `json:"maxScore" bson:"maxScore"`
	Percentage  int            `json:"percentage" bson:"percentage"`
	Passed      bool           `json:"passed" bson:"passed"`
	Status      AttemptStatus  `json:"status" bson:"status"`
	StartedAt   time.Time      `json:"startedAt" bson:"startedAt"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
}

// Identity is who is taking an exam. Every field is optional.
type Identity struct {
	UserID string `json:"userId,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Module string `json:"module,omitempty"`
}

// IsZero reports whether no identity field is set
func (i Identity) IsZero() bool {
	return i.UserID == "" && i.Scope == "" && i.Module == ""
}

// AnswerSubmission is one answer as sent by the client
type AnswerSubmission struct {
	QuestionID   string `json:"questionId" validate:"required"`
	DisplayIndex *int   `json:"displayIndex"`
}

// GradeDetail is the per-question grading output
type GradeDetail struct {
	QuestionID         string `json:"questionId"`
	CorrectIndex       *int   `json:"correctIndex"`
	YourCanonicalIndex *int   `json:"yourCanonicalIndex"`
	Correct            bool   `json:"correct"`
}

// GradeResult is returned to the client after a submission
type GradeResult struct {
	ExamID     string        `json:"examId,omitempty"`
	AttemptKey string        `json:"attemptKey"`
	Score      int           `json:"score"`
	Total      int           `json:"total"`
	Percentage int           `json:"percentage"`
	Passed     bool          `json:"passed"`
	Details    []GradeDetail `json:"details"`
}
