package service

import (
	"context"
	"encoding/json"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/google/uuid"
)

// The services depend on narrow store interfaces rather than the concrete
// pgx repositories so the state-machine logic can be exercised against
// in-memory fakes. The repository types satisfy these.

// AttemptStore is the persistence surface of the attempt lifecycle.
type AttemptStore interface {
	CreateIfAbsent(ctx context.Context, a *model.Attempt) (bool, error)
	Get(ctx context.Context, examID, studentID string) (*model.Attempt, error)
	SetAnswer(ctx context.Context, examID, studentID string, index int, value json.RawMessage) (bool, error)
	MarkSubmitted(ctx context.Context, examID, studentID string, subType model.SubmissionType, atMs int64) (bool, error)
	BulkSubmit(ctx context.Context, examID string, atMs int64) ([]string, error)
	ListExpiredKeys(ctx context.Context, nowMs int64, limit int) ([]repository.AttemptKey, error)
	ListStuckSubmittedKeys(ctx context.Context, submittedBeforeMs int64, limit int) ([]repository.AttemptKey, error)
	SaveEvaluation(ctx context.Context, examID, studentID string, score, maxScore int, evaluatedAtMs int64,
		summary model.ResultSummary, results []model.QuestionResult) (bool, error)
	MarkGradingFailed(ctx context.Context, examID, studentID, reason string) (bool, error)
	SetFeedback(ctx context.Context, examID, studentID string, fb *model.AttemptFeedback) error
	ListByExam(ctx context.Context, examID string) ([]repository.AttemptSummary, error)
	Delete(ctx context.Context, examID, studentID string) (bool, error)
}

// QuestionStore is the read surface the assembly and grading engines need.
type QuestionStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error)
}

// ExamMetaStore resolves exam templates.
type ExamMetaStore interface {
	GetByExamID(ctx context.Context, examID string) (*model.ExamMeta, error)
}
