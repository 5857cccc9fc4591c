package service

import (
	"errors"
	"fmt"
)

var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrMalformedInput     = errors.New("malformed input")
	ErrNoAnswers          = fmt.Errorf("%w: no answers submitted", ErrMalformedInput)
	ErrStorageUnavailable = errors.New("question storage unavailable")
)
