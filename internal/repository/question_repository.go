package repository

import (
	"context"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question pool data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, course_id, chapter, difficulty, question_type, question_text,
	options, correct_answer, marks, case_sensitive, sanitized, sanitized_at, created_at`

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	var difficulty *string
	err := row.Scan(
		&q.ID, &q.CourseID, &q.Chapter, &difficulty, &q.QuestionType, &q.QuestionText,
		&q.Options, &q.CorrectAnswer, &q.Marks, &q.CaseSensitive, &q.Sanitized, &q.SanitizedAt, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if difficulty != nil {
		q.Difficulty = model.Difficulty(*difficulty)
	}
	return q, nil
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// ListByCourse retrieves the full question pool of a course.
func (r *QuestionRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetByIDs retrieves questions by id, keyed by id string. Missing ids are
// simply absent from the map.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uuid.UUID]model.Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		result[q.ID] = *q
	}
	return result, rows.Err()
}

// Create inserts a single question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions
		   (id, course_id, chapter, difficulty, question_type, question_text,
		    options, correct_answer, marks, case_sensitive)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		q.ID, q.CourseID, q.Chapter, string(q.Difficulty), q.QuestionType, q.QuestionText,
		q.Options, q.CorrectAnswer, q.Marks, q.CaseSensitive,
	).Scan(&q.CreatedAt)
}

// CreateBatch inserts a batch of questions in one round trip.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	batch := &pgx.Batch{}
	for i := range questions {
		q := &questions[i]
		batch.Queue(
			`INSERT INTO questions
			   (id, course_id, chapter, difficulty, question_type, question_text,
			    options, correct_answer, marks, case_sensitive)
			 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`,
			q.ID, q.CourseID, q.Chapter, string(q.Difficulty), q.QuestionType, q.QuestionText,
			q.Options, q.CorrectAnswer, q.Marks, q.CaseSensitive,
		)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// Update overwrites a question's mutable fields.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET chapter = $1, difficulty = NULLIF($2, ''), question_text = $3,
		     options = $4, correct_answer = $5, marks = $6, case_sensitive = $7
		 WHERE id = $8`,
		q.Chapter, string(q.Difficulty), q.QuestionText,
		q.Options, q.CorrectAnswer, q.Marks, q.CaseSensitive, q.ID,
	)
	return err
}

// MarkSanitized records that a question's canonical answer was resolved
// through the AI cross-check review.
func (r *QuestionRepository) MarkSanitized(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions SET sanitized = TRUE, sanitized_at = $1 WHERE id = $2`, at, id)
	return err
}

// Delete removes a single question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// DeleteByCourse removes a course's entire pool and returns how many
// questions were deleted.
func (r *QuestionRepository) DeleteByCourse(ctx context.Context, courseID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DistinctChapters returns the sorted set of trimmed chapter labels present
// in a course's pool.
func (r *QuestionRepository) DistinctChapters(ctx context.Context, courseID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT TRIM(chapter) FROM questions
		 WHERE course_id = $1 AND TRIM(chapter) <> ''
		 ORDER BY 1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []string
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}
