package model

// QuestionKind defines how a question participates in an exam
type QuestionKind string

const (
	QuestionStandalone    QuestionKind = "standalone"    // Plain multiple choice item
	QuestionComprehension QuestionKind = "comprehension" // Passage with ordered child questions
)

// QuestionSource tags where a record was resolved from (diagnostics only)
type QuestionSource string

const (
	SourcePrimary  QuestionSource = "primary"
	SourceFallback QuestionSource = "fallback"
	SourceCache    QuestionSource = "cache"
)

// Question is the canonical content of one assessable item.
// Choices are stored in canonical order; CorrectIndex points into them.
type Question struct {
	ID           string         `json:"id" bson:"_id,omitempty"`
	Text         string         `json:"text" bson:"text"`
	Passage      string         `json:"passage,omitempty" bson:"passage,omitempty"` // Comprehension parents only
	Choices      []string       `json:"choices,omitempty" bson:"choices,omitempty"`
	CorrectIndex *int           `json:"correctIndex,omitempty" bson:"correctIndex,omitempty"` // nil = no known key
	Kind         QuestionKind   `json:"kind,omitempty" bson:"kind,omitempty"`
	ChildIDs     []string       `json:"childIds,omitempty" bson:"childIds,omitempty"`
	ParentID     string         `json:"parentId,omitempty" bson:"parentId,omitempty"` // Set on children
	Module       string         `json:"module,omitempty" bson:"module,omitempty"`
	Scope        string         `json:"scope,omitempty" bson:"scope,omitempty"`
	Source       QuestionSource `json:"source,omitempty" bson:"-"`
}

// IsParent reports whether the question is a comprehension passage
func (q *Question) IsParent() bool {
	return q.Kind == QuestionComprehension
}

// IsChild reports whether the question belongs to a passage
func (q *Question) IsChild() bool {
	return q.ParentID != ""
}

// KnownCorrectIndex returns the canonical correct index if it is present
// and inside the choice range.
func (q *Question) KnownCorrectIndex() (int, bool) {
	if q.CorrectIndex == nil {
		return 0, false
	}
	idx := *q.CorrectIndex
	if idx < 0 || idx >= len(q.Choices) {
		return 0, false
	}
	return idx, true
}

// QuestionFilter narrows the eligible pool for fresh assembly.
// Both values are opaque and passed straight to the store.
type QuestionFilter struct {
	Module string
	Scope  string
}
