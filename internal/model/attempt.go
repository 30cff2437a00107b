package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. The only legal transitions are
// IN_PROGRESS → SUBMITTED → EVALUATED; SUBMITTED → GRADING_FAILED records a
// grading abort explicitly instead of leaving the attempt stuck.
type AttemptStatus string

const (
	AttemptStatusInProgress    AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted     AttemptStatus = "SUBMITTED"
	AttemptStatusEvaluated     AttemptStatus = "EVALUATED"
	AttemptStatusGradingFailed AttemptStatus = "GRADING_FAILED"
)

// SubmissionType tags how an attempt was finalized.
type SubmissionType string

const (
	SubmissionManual SubmissionType = "manual"
	SubmissionAuto   SubmissionType = "auto"
)

// AttemptQuestion is the trimmed projection of a Question frozen into an
// attempt at assembly time. It deliberately excludes the canonical answer so
// the snapshot can be sent to the student client as-is.
type AttemptQuestion struct {
	ID           uuid.UUID         `json:"id"`
	QuestionText string            `json:"question_text"`
	Options      map[string]string `json:"options"`
	QuestionType QuestionType      `json:"question_type"`
	Marks        int               `json:"marks"`
	Difficulty   Difficulty        `json:"difficulty,omitempty"`
	Chapter      string            `json:"chapter"`
}

// AnswerMap maps question index (as a decimal string, matching the JSON
// document shape) to the submitted answer value: a one-element array for
// MCQ, an array of labels for MSQ, a string for FILL_BLANK/DESCRIPTIVE.
// Presence of a key always means "answered", even if the value is an empty
// MSQ set.
type AnswerMap map[string]json.RawMessage

// ResultSummary is the aggregate outcome of grading. Ungraded questions
// (missing canonical answer) are counted in none of the three tallies.
type ResultSummary struct {
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
	Unanswered int `json:"unanswered"`
}

// QuestionResult is the per-question grading outcome, parallel to the
// attempt's frozen question list.
type QuestionResult struct {
	QuestionID    uuid.UUID       `json:"question_id"`
	Evaluated     bool            `json:"evaluated"`
	IsCorrect     *bool           `json:"is_correct"`
	MarksAwarded  int             `json:"marks_awarded"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
}

// AttemptFeedback is optional post-submission feedback from the student.
type AttemptFeedback struct {
	Rating      *int    `json:"rating,omitempty"`
	Difficulty  *string `json:"difficulty,omitempty"`
	Clarity     *int    `json:"clarity,omitempty"`
	Comments    *string `json:"comments,omitempty"`
	SubmittedAt int64   `json:"submitted_at"`
}

// Attempt is one student's instance of one exam, keyed by
// (exam_id, student_id). Questions is a point-in-time copy: later edits to
// the pool never change an attempt's question text or options. Student name
// and email are snapshotted at join time on purpose (historical fidelity of
// who-took-what), not live-joined to a profile.
//
// StartedAt/EndAt/SubmittedAt/EvaluatedAt are epoch milliseconds, server-set.
type Attempt struct {
	ExamID         string            `json:"exam_id"`
	StudentID      string            `json:"student_id"`
	CourseID       string            `json:"course_id"`
	StudentName    string            `json:"student_name"`
	StudentEmail   string            `json:"student_email"`
	Questions      []AttemptQuestion `json:"questions"`
	Answers        AnswerMap         `json:"answers"`
	Status         AttemptStatus     `json:"status"`
	StartedAt      int64             `json:"started_at"`
	EndAt          int64             `json:"end_at"`
	AllowEarly     bool              `json:"allow_early_submit"`
	DeviceType     string            `json:"device_type,omitempty"`
	SubmittedAt    *int64            `json:"submitted_at,omitempty"`
	SubmissionType *SubmissionType   `json:"submission_type,omitempty"`
	Score          *int              `json:"score,omitempty"`
	MaxScore       *int              `json:"max_score,omitempty"`
	EvaluatedAt    *int64            `json:"evaluated_at,omitempty"`
	ResultSummary  *ResultSummary    `json:"result_summary,omitempty"`
	QuestionResults []QuestionResult `json:"question_results,omitempty"`
	GradingError   *string           `json:"grading_error,omitempty"`
	Feedback       *AttemptFeedback  `json:"feedback,omitempty"`
}

// Submitted reports whether answers are frozen (any state past IN_PROGRESS).
func (a *Attempt) Submitted() bool {
	return a.Status != AttemptStatusInProgress
}

// RecordAnswerRequest is the payload for saving one answer.
type RecordAnswerRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// SubmitRequest is the payload for manual submission.
type SubmitRequest struct{}

// FeedbackRequest is the payload for post-submission feedback.
type FeedbackRequest struct {
	Rating     *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Difficulty *string `json:"difficulty" binding:"omitempty,oneof=Easy Medium Hard"`
	Clarity    *int    `json:"clarity" binding:"omitempty,min=1,max=5"`
	Comments   *string `json:"comments" binding:"omitempty,max=2000"`
}
