package repository

import (
	"context"

	"github.com/examly/examly-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamMetaRepository handles exam template data access.
type ExamMetaRepository struct {
	pool *pgxpool.Pool
}

// NewExamMetaRepository creates a new ExamMetaRepository.
func NewExamMetaRepository(pool *pgxpool.Pool) *ExamMetaRepository {
	return &ExamMetaRepository{pool: pool}
}

// Create inserts an exam template if the exam id is free. Returns false when
// the id is already taken; the insert itself is the uniqueness check.
func (r *ExamMetaRepository) Create(ctx context.Context, m *model.ExamMeta) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO exams_meta
		   (exam_id, course_id, chapters, question_types, duration_minutes,
		    total_questions, active, allow_early_submit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (exam_id) DO NOTHING`,
		m.ExamID, m.CourseID, m.Chapters, m.QuestionTypes, m.DurationMinutes,
		m.TotalQuestions, m.Active, m.AllowEarlySubmit,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetByExamID retrieves an exam template.
func (r *ExamMetaRepository) GetByExamID(ctx context.Context, examID string) (*model.ExamMeta, error) {
	m := &model.ExamMeta{}
	err := r.pool.QueryRow(ctx,
		`SELECT exam_id, course_id, chapters, question_types, duration_minutes,
		        total_questions, active, allow_early_submit, created_at
		 FROM exams_meta WHERE exam_id = $1`, examID,
	).Scan(&m.ExamID, &m.CourseID, &m.Chapters, &m.QuestionTypes, &m.DurationMinutes,
		&m.TotalQuestions, &m.Active, &m.AllowEarlySubmit, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListByCourse retrieves all exam templates of a course, newest first.
func (r *ExamMetaRepository) ListByCourse(ctx context.Context, courseID string) ([]model.ExamMeta, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, course_id, chapters, question_types, duration_minutes,
		        total_questions, active, allow_early_submit, created_at
		 FROM exams_meta WHERE course_id = $1
		 ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.ExamMeta
	for rows.Next() {
		var m model.ExamMeta
		if err := rows.Scan(&m.ExamID, &m.CourseID, &m.Chapters, &m.QuestionTypes, &m.DurationMinutes,
			&m.TotalQuestions, &m.Active, &m.AllowEarlySubmit, &m.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, m)
	}
	return exams, rows.Err()
}

// SetActive toggles the only mutable field of an exam template.
func (r *ExamMetaRepository) SetActive(ctx context.Context, examID string, active bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams_meta SET active = $1 WHERE exam_id = $2`, active, examID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
