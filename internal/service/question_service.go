package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UploadError pinpoints an invalid entry in a bulk upload: nothing from the
// batch is persisted when any entry fails.
type UploadError struct {
	Index  int
	Reason string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("question %d: %s", e.Index, e.Reason)
}

// QuestionService manages the per-course question pools.
type QuestionService struct {
	questions *repository.QuestionRepository
	courses   *repository.CourseRepository
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, courses *repository.CourseRepository) *QuestionService {
	return &QuestionService{
		questions: questions,
		courses:   courses,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// BulkUpload validates and inserts a batch of questions into a course's
// pool. Validation is all-or-nothing: the first bad entry rejects the whole
// batch so a partially imported file never goes unnoticed.
func (s *QuestionService) BulkUpload(ctx context.Context, courseID string, req *model.BulkUploadRequest) ([]model.Question, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}

	questions := make([]model.Question, len(req.Questions))
	for i, in := range req.Questions {
		q, err := buildQuestion(courseID, &in)
		if err != nil {
			return nil, &UploadError{Index: i, Reason: err.Error()}
		}
		questions[i] = *q
	}

	if err := s.questions.CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}
	s.log.Info().Str("course_id", courseID).Int("count", len(questions)).Msg("questions uploaded")
	return questions, nil
}

// buildQuestion converts one upload entry into a pool question, enforcing
// the per-type shape contract on options and the canonical answer.
func buildQuestion(courseID string, in *model.UploadQuestion) (*model.Question, error) {
	qType := model.QuestionType(in.QuestionType)
	if !model.ValidQuestionType(qType) {
		return nil, fmt.Errorf("unknown question type %q", in.QuestionType)
	}

	switch qType {
	case model.QuestionTypeMCQ, model.QuestionTypeMSQ:
		if len(in.Options) < 2 {
			return nil, errors.New("choice questions need at least two options")
		}
		labels, ok := decodeLabels(in.CorrectAnswer)
		if !ok || len(labels) == 0 {
			return nil, errors.New("correct_answer must be a non-empty label array")
		}
		if qType == model.QuestionTypeMCQ && len(labels) != 1 {
			return nil, errors.New("MCQ correct_answer must hold exactly one label")
		}
		for _, l := range labels {
			if _, exists := in.Options[l]; !exists {
				return nil, fmt.Errorf("correct_answer label %q is not an option", l)
			}
		}
	case model.QuestionTypeFillBlank:
		text, ok := decodeText(in.CorrectAnswer)
		if !ok || text == "" {
			return nil, errors.New("correct_answer must be a non-empty string")
		}
	}

	return &model.Question{
		ID:            uuid.New(),
		CourseID:      courseID,
		Chapter:       strings.TrimSpace(in.Chapter),
		Difficulty:    model.Difficulty(in.Difficulty),
		QuestionType:  qType,
		QuestionText:  in.QuestionText,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Marks:         in.Marks,
		CaseSensitive: in.CaseSensitive,
	}, nil
}

// Get retrieves one question, canonical answer included. Instructor-only.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

// ListByCourse returns a course's full pool.
func (s *QuestionService) ListByCourse(ctx context.Context, courseID string) ([]model.Question, error) {
	return s.questions.ListByCourse(ctx, courseID)
}

// Chapters returns the distinct chapter labels of a course's pool, for
// building exam templates.
func (s *QuestionService) Chapters(ctx context.Context, courseID string) ([]string, error) {
	return s.questions.DistinctChapters(ctx, courseID)
}

// Update edits a question in place. Attempts that already embed the question
// keep their frozen snapshot; only future assembly and grading see the edit.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Chapter != nil {
		q.Chapter = *req.Chapter
	}
	if req.Difficulty != nil {
		q.Difficulty = model.Difficulty(*req.Difficulty)
	}
	if req.QuestionText != nil {
		q.QuestionText = *req.QuestionText
	}
	if req.Options != nil {
		q.Options = req.Options
	}
	if len(req.CorrectAnswer) > 0 {
		q.CorrectAnswer = req.CorrectAnswer
	}
	if req.Marks != nil {
		q.Marks = *req.Marks
	}
	if req.CaseSensitive != nil {
		q.CaseSensitive = *req.CaseSensitive
	}
	if err := s.questions.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// MarkSanitized records that a question's canonical answer passed the
// answer cross-check review.
func (s *QuestionService) MarkSanitized(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.questions.MarkSanitized(ctx, id, time.Now())
}

// Delete removes one question from the pool.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}
