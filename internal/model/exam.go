package model

import "time"

type ExamStatus string

const (
	ExamIssued   ExamStatus = "issued"
	ExamConsumed ExamStatus = "consumed"
)

// ChildPermutation is the stored display order for a passage child
type ChildPermutation struct {
	QuestionID string `json:"questionId" bson:"questionId"`
	Order      []int  `json:"order" bson:"order"`
}

// ExamInstance is one assembled exam. Tokens and permutations are fixed at
// assembly; only Status and ExpiresAt change afterwards.
type ExamInstance struct {
	ID                string             `json:"id" bson:"_id"`
	Tokens            []QuestionToken    `json:"tokens" bson:"tokens"`
	Permutations      [][]int            `json:"permutations" bson:"permutations"` // Parallel to Tokens, nil at parent markers
	ChildPermutations []ChildPermutation `json:"childPermutations,omitempty" bson:"childPermutations,omitempty"`
	Owner             string             `json:"owner,omitempty" bson:"owner,omitempty"`
	Scope             string             `json:"scope,omitempty" bson:"scope,omitempty"`
	Module            string             `json:"module,omitempty" bson:"module,omitempty"`
	Status            ExamStatus         `json:"status" bson:"status"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	ExpiresAt         *time.Time         `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
}

// Expired reports whether the instance is past its expiry stamp
func (e *ExamInstance) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// SeriesItem is the client-facing question payload. It never carries
// canonical indices, answer keys or the permutation.
type SeriesItem struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // "mcq" | "comprehension"
	Text     string       `json:"text"`
	Passage  string       `json:"passage,omitempty"`
	Choices  []string     `json:"choices,omitempty"`
	Children []SeriesItem `json:"children,omitempty"`
}

const (
	SeriesTypeMCQ           = "mcq"
	SeriesTypeComprehension = "comprehension"
)

// ExamPayload is returned by the exam endpoint
type ExamPayload struct {
	ExamID string       `json:"examId"`
	Series []SeriesItem `json:"series"`
}
