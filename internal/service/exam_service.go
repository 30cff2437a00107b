package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ExamService manages exam templates.
type ExamService struct {
	exams     *repository.ExamMetaRepository
	courses   *repository.CourseRepository
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams *repository.ExamMetaRepository, courses *repository.CourseRepository, questions *repository.QuestionRepository) *ExamService {
	return &ExamService{
		exams:     exams,
		courses:   courses,
		questions: questions,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// Create registers an exam template under a caller-chosen exam id. The id is
// handed to students out of band, so a duplicate is a hard error, enforced
// by the insert itself. Creation also verifies the filtered pool can satisfy
// the target count, so an instructor learns about an undersized pool at
// creation time rather than when the first student joins.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.ExamMeta, error) {
	if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}

	meta := &model.ExamMeta{
		ExamID:           req.ExamID,
		CourseID:         req.CourseID,
		Chapters:         req.Chapters,
		QuestionTypes:    req.QuestionTypes,
		DurationMinutes:  req.DurationMinutes,
		TotalQuestions:   req.TotalQuestions,
		Active:           true,
		AllowEarlySubmit: req.AllowEarlySubmit,
	}

	pool, err := s.questions.ListByCourse(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load question pool: %w", err)
	}
	if len(filterPool(pool, meta)) < meta.TotalQuestions {
		return nil, ErrInsufficientPool
	}

	created, err := s.exams.Create(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	if !created {
		return nil, ErrAlreadyExists
	}
	s.log.Info().Str("exam_id", meta.ExamID).Str("course_id", meta.CourseID).Msg("exam created")
	return meta, nil
}

// Get retrieves one exam template.
func (s *ExamService) Get(ctx context.Context, examID string) (*model.ExamMeta, error) {
	m, err := s.exams.GetByExamID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return m, nil
}

// ListByCourse returns a course's exam templates.
func (s *ExamService) ListByCourse(ctx context.Context, courseID string) ([]model.ExamMeta, error) {
	return s.exams.ListByCourse(ctx, courseID)
}

// SetActive toggles whether new students may join the exam. Existing
// attempts are unaffected either way.
func (s *ExamService) SetActive(ctx context.Context, examID string, active bool) error {
	ok, err := s.exams.SetActive(ctx, examID, active)
	if err != nil {
		return fmt.Errorf("set exam active: %w", err)
	}
	if !ok {
		return ErrExamNotFound
	}
	return nil
}
