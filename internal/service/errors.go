package service

import (
	"errors"
	"fmt"
)

// Domain errors surfaced by the exam and attempt services. Handlers map
// these onto the response error taxonomy.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrExamInactive     = errors.New("exam is not active")
	ErrInsufficientPool = errors.New("not enough questions in the filtered pool")
	ErrCourseNotFound   = errors.New("course not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAlreadyExists    = errors.New("identifier already exists")
	ErrInvalidAnswer    = errors.New("answer value does not match the question type")
	ErrQuestionIndex    = errors.New("question index out of range")
	ErrNotSubmitted     = errors.New("attempt has not been submitted")
)

// SubmitLockedError rejects a manual submission while the early-submission
// lock is still in force. UnlockInSeconds tells the client when to retry.
type SubmitLockedError struct {
	UnlockInSeconds int64
}

func (e *SubmitLockedError) Error() string {
	return fmt.Sprintf("submission locked for another %ds", e.UnlockInSeconds)
}
