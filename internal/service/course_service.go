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

// CourseService manages courses, the owning container of question pools.
type CourseService struct {
	courses   *repository.CourseRepository
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(courses *repository.CourseRepository, questions *repository.QuestionRepository) *CourseService {
	return &CourseService{
		courses:   courses,
		questions: questions,
		log:       log.With().Str("component", "course_service").Logger(),
	}
}

// Create registers a course under a caller-chosen id. The insert itself is
// the uniqueness check, so two concurrent creates of the same id cannot
// both succeed.
func (s *CourseService) Create(ctx context.Context, req *model.CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		ID:   req.ID,
		Name: req.Name,
	}
	created, err := s.courses.Create(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	if !created {
		return nil, ErrAlreadyExists
	}
	s.log.Info().Str("course_id", course.ID).Msg("course created")
	return course, nil
}

// Get retrieves one course.
func (s *CourseService) Get(ctx context.Context, id string) (*model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	return c, nil
}

// List returns all courses.
func (s *CourseService) List(ctx context.Context) ([]model.Course, error) {
	return s.courses.List(ctx)
}

// Delete removes a course and its entire question pool.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	removed, err := s.questions.DeleteByCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("delete course questions: %w", err)
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.log.Info().Str("course_id", id).Int64("questions_removed", removed).Msg("course deleted")
	return nil
}
