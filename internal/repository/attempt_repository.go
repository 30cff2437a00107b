package repository

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/examly/examly-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptKey identifies one attempt by its natural composite key.
type AttemptKey struct {
	ExamID    string `json:"exam_id"`
	StudentID string `json:"student_id"`
}

// AttemptSummary is the instructor-facing results row (no question snapshot,
// no answer map).
type AttemptSummary struct {
	ExamID         string                `json:"exam_id"`
	StudentID      string                `json:"student_id"`
	StudentName    string                `json:"student_name"`
	StudentEmail   string                `json:"student_email"`
	Status         model.AttemptStatus   `json:"status"`
	DeviceType     string                `json:"device_type,omitempty"`
	StartedAt      int64                 `json:"started_at"`
	SubmittedAt    *int64                `json:"submitted_at,omitempty"`
	SubmissionType *model.SubmissionType `json:"submission_type,omitempty"`
	Score          *int                  `json:"score,omitempty"`
	MaxScore       *int                  `json:"max_score,omitempty"`
	ResultSummary  *model.ResultSummary  `json:"result_summary,omitempty"`
}

// AttemptRepository handles attempt data access. All state transitions are
// single conditional UPDATEs so concurrent triggers cannot double-apply them.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// CreateIfAbsent inserts a new attempt keyed by (exam_id, student_id).
// Returns false without error when an attempt already exists: two concurrent
// joins race on the insert itself, and exactly one wins.
func (r *AttemptRepository) CreateIfAbsent(ctx context.Context, a *model.Attempt) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO attempts
		   (exam_id, student_id, course_id, student_name, student_email,
		    questions, answers, status, started_at, end_at, allow_early_submit, device_type)
		 VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb, $7, $8, $9, $10, $11)
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		a.ExamID, a.StudentID, a.CourseID, a.StudentName, a.StudentEmail,
		a.Questions, a.Status, a.StartedAt, a.EndAt, a.AllowEarly, a.DeviceType,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const attemptColumns = `exam_id, student_id, course_id, student_name, student_email,
	questions, answers, status, started_at, end_at, allow_early_submit, device_type,
	submitted_at, submission_type, score, max_score, evaluated_at,
	result_summary, question_results, grading_error, feedback`

// Get retrieves a full attempt. Returns pgx.ErrNoRows when absent.
func (r *AttemptRepository) Get(ctx context.Context, examID, studentID string) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&a.ExamID, &a.StudentID, &a.CourseID, &a.StudentName, &a.StudentEmail,
		&a.Questions, &a.Answers, &a.Status, &a.StartedAt, &a.EndAt, &a.AllowEarly, &a.DeviceType,
		&a.SubmittedAt, &a.SubmissionType, &a.Score, &a.MaxScore, &a.EvaluatedAt,
		&a.ResultSummary, &a.QuestionResults, &a.GradingError, &a.Feedback)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SetAnswer merges one answer value at the given question index. The write
// only applies while the attempt is IN_PROGRESS; afterwards it is a no-op
// (returns false), never an error — answers are frozen post-submission.
// Each index is written independently, so two tabs saving different
// questions cannot clobber each other.
func (r *AttemptRepository) SetAnswer(ctx context.Context, examID, studentID string, index int, value json.RawMessage) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET answers = jsonb_set(answers, ARRAY[$3], $4::jsonb, true)
		 WHERE exam_id = $1 AND student_id = $2 AND status = $5`,
		examID, studentID, strconv.Itoa(index), value, model.AttemptStatusInProgress,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSubmitted transitions IN_PROGRESS → SUBMITTED. The status predicate
// makes the transition a compare-and-swap: concurrent manual submit and
// deadline auto-submit race on it and exactly one applies.
func (r *AttemptRepository) MarkSubmitted(ctx context.Context, examID, studentID string, subType model.SubmissionType, atMs int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $3, submitted_at = $4, submission_type = $5
		 WHERE exam_id = $1 AND student_id = $2 AND status = $6`,
		examID, studentID, model.AttemptStatusSubmitted, atMs, subType, model.AttemptStatusInProgress,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// BulkSubmit forces every in-progress attempt of an exam to SUBMITTED and
// returns the affected student ids so grading can be enqueued for each.
func (r *AttemptRepository) BulkSubmit(ctx context.Context, examID string, atMs int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE attempts
		 SET status = $2, submitted_at = $3, submission_type = $4
		 WHERE exam_id = $1 AND status = $5
		 RETURNING student_id`,
		examID, model.AttemptStatusSubmitted, atMs, model.SubmissionAuto, model.AttemptStatusInProgress,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		students = append(students, sid)
	}
	return students, rows.Err()
}

// ListExpiredKeys returns attempts whose deadline has passed but are still
// in progress. Used by the deadline watchdog.
func (r *AttemptRepository) ListExpiredKeys(ctx context.Context, nowMs int64, limit int) ([]AttemptKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, student_id FROM attempts
		 WHERE status = $1 AND end_at <= $2
		 LIMIT $3`,
		model.AttemptStatusInProgress, nowMs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []AttemptKey
	for rows.Next() {
		var k AttemptKey
		if err := rows.Scan(&k.ExamID, &k.StudentID); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ListStuckSubmittedKeys returns attempts that were submitted before the
// given time but never reached a terminal grading state. The watchdog
// re-enqueues these so a lost queue message cannot strand an attempt.
func (r *AttemptRepository) ListStuckSubmittedKeys(ctx context.Context, submittedBeforeMs int64, limit int) ([]AttemptKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, student_id FROM attempts
		 WHERE status = $1 AND submitted_at <= $2
		 LIMIT $3`,
		model.AttemptStatusSubmitted, submittedBeforeMs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []AttemptKey
	for rows.Next() {
		var k AttemptKey
		if err := rows.Scan(&k.ExamID, &k.StudentID); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SaveEvaluation transitions SUBMITTED → EVALUATED with the grading output.
// The status predicate is the idempotency guard: a second evaluation of the
// same attempt matches zero rows and changes nothing.
func (r *AttemptRepository) SaveEvaluation(ctx context.Context, examID, studentID string,
	score, maxScore int, evaluatedAtMs int64, summary model.ResultSummary, results []model.QuestionResult) (bool, error) {

	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $3, score = $4, max_score = $5, evaluated_at = $6,
		     result_summary = $7, question_results = $8, grading_error = NULL
		 WHERE exam_id = $1 AND student_id = $2 AND status = $9`,
		examID, studentID, model.AttemptStatusEvaluated, score, maxScore, evaluatedAtMs,
		summary, results, model.AttemptStatusSubmitted,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkGradingFailed records an explicit grading abort instead of leaving the
// attempt silently stuck in SUBMITTED.
func (r *AttemptRepository) MarkGradingFailed(ctx context.Context, examID, studentID, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $3, grading_error = $4
		 WHERE exam_id = $1 AND student_id = $2 AND status = $5`,
		examID, studentID, model.AttemptStatusGradingFailed, reason, model.AttemptStatusSubmitted,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetFeedback stores post-submission feedback on the attempt.
func (r *AttemptRepository) SetFeedback(ctx context.Context, examID, studentID string, fb *model.AttemptFeedback) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET feedback = $3 WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID, fb,
	)
	return err
}

// ListByExam retrieves result rows for every attempt of an exam.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID string) ([]AttemptSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, student_id, student_name, student_email, status, device_type,
		        started_at, submitted_at, submission_type, score, max_score, result_summary
		 FROM attempts WHERE exam_id = $1
		 ORDER BY student_name, student_id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []AttemptSummary
	for rows.Next() {
		var s AttemptSummary
		if err := rows.Scan(&s.ExamID, &s.StudentID, &s.StudentName, &s.StudentEmail, &s.Status, &s.DeviceType,
			&s.StartedAt, &s.SubmittedAt, &s.SubmissionType, &s.Score, &s.MaxScore, &s.ResultSummary); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete hard-deletes an attempt. This is the only removal path and is
// instructor-triggered.
func (r *AttemptRepository) Delete(ctx context.Context, examID, studentID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM attempts WHERE exam_id = $1 AND student_id = $2`, examID, studentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
