package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "MCQ"
	QuestionTypeMSQ         QuestionType = "MSQ"
	QuestionTypeFillBlank   QuestionType = "FILL_BLANK"
	QuestionTypeDescriptive QuestionType = "DESCRIPTIVE"
)

// ValidQuestionType reports whether t is one of the supported kinds.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeMSQ, QuestionTypeFillBlank, QuestionTypeDescriptive:
		return true
	}
	return false
}

// Difficulty tiers. A question may carry no difficulty at all ("").
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Question is a pool item owned by a course.
//
// CorrectAnswer is the canonical answer used only for grading: a JSON array
// of option labels for MCQ/MSQ, a JSON string for FILL_BLANK, and null for
// DESCRIPTIVE (graded manually). A question with an empty canonical answer
// is never auto-gradable.
type Question struct {
	ID            uuid.UUID         `json:"id"`
	CourseID      string            `json:"course_id"`
	Chapter       string            `json:"chapter"`
	Difficulty    Difficulty        `json:"difficulty,omitempty"`
	QuestionType  QuestionType      `json:"question_type"`
	QuestionText  string            `json:"question_text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer json.RawMessage   `json:"correct_answer,omitempty"`
	Marks         int               `json:"marks"`
	CaseSensitive bool              `json:"case_sensitive"`
	Sanitized     bool              `json:"sanitized"`
	SanitizedAt   *time.Time        `json:"sanitized_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// HasCanonicalAnswer reports whether the question carries a usable answer key.
// Empty arrays and empty strings count as missing.
func (q *Question) HasCanonicalAnswer() bool {
	if len(q.CorrectAnswer) == 0 {
		return false
	}
	var labels []string
	if err := json.Unmarshal(q.CorrectAnswer, &labels); err == nil {
		return len(labels) > 0
	}
	var s string
	if err := json.Unmarshal(q.CorrectAnswer, &s); err == nil {
		return s != ""
	}
	return false
}

// UploadQuestion is a single entry in a bulk upload payload.
// Field validation mirrors the manual-entry form: chapter, type, text,
// marks and the canonical answer are all required.
type UploadQuestion struct {
	Chapter       string            `json:"chapter" binding:"required,min=1,max=120"`
	Difficulty    string            `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
	QuestionType  string            `json:"question_type" binding:"required"`
	QuestionText  string            `json:"question_text" binding:"required,min=1,max=4000"`
	Options       map[string]string `json:"options" binding:"omitempty"`
	CorrectAnswer json.RawMessage   `json:"correct_answer" binding:"required"`
	Marks         int               `json:"marks" binding:"required,min=1"`
	CaseSensitive bool              `json:"case_sensitive"`
}

// BulkUploadRequest is the payload for bulk question upload (file or paste).
type BulkUploadRequest struct {
	Questions []UploadQuestion `json:"questions" binding:"required,min=1,dive"`
}

// UpdateQuestionRequest is the payload for editing a single question.
type UpdateQuestionRequest struct {
	Chapter       *string           `json:"chapter" binding:"omitempty,min=1,max=120"`
	Difficulty    *string           `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
	QuestionText  *string           `json:"question_text" binding:"omitempty,min=1,max=4000"`
	Options       map[string]string `json:"options" binding:"omitempty"`
	CorrectAnswer json.RawMessage   `json:"correct_answer" binding:"omitempty"`
	Marks         *int              `json:"marks" binding:"omitempty,min=1"`
	CaseSensitive *bool             `json:"case_sensitive" binding:"omitempty"`
}
