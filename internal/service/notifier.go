package service

// Notifier publishes domain events (avoids importing the broker client here)
type Notifier interface {
	Publish(eventType string, payload interface{}) error
}

// ExamAssembledEvent is published after a fresh exam is persisted
type ExamAssembledEvent struct {
	ExamID     string `json:"examId"`
	TokenCount int    `json:"tokenCount"`
	Owner      string `json:"owner,omitempty"`
	Module     string `json:"module,omitempty"`
	Scope      string `json:"scope,omitempty"`
}

// AttemptFinishedEvent is published after a submission is graded and stored
type AttemptFinishedEvent struct {
	AttemptKey string `json:"attemptKey"`
	ExamID     string `json:"examId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Passed     bool   `json:"passed"`
}
