package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GradingService evaluates submitted attempts. Evaluation is idempotent: the
// SUBMITTED → EVALUATED transition is a compare-and-swap, so replayed queue
// messages and concurrent workers cannot double-grade.
type GradingService struct {
	attempts  AttemptStore
	questions QuestionStore
	events    Events
	log       zerolog.Logger
	now       func() time.Time
}

// NewGradingService creates a new GradingService.
func NewGradingService(attempts AttemptStore, questions QuestionStore, events Events) *GradingService {
	return &GradingService{
		attempts:  attempts,
		questions: questions,
		events:    events,
		log:       log.With().Str("component", "grading_service").Logger(),
		now:       time.Now,
	}
}

// Evaluate grades one attempt. Canonical answers are re-read from the
// current question pool, not from an assembly-time snapshot, so instructor
// corrections made before grading take effect. Missing prerequisite data
// moves the attempt to GRADING_FAILED with a recorded reason instead of
// leaving it silently stuck in SUBMITTED. Transient errors (store or pool
// reads) are returned to the caller for retry.
func (s *GradingService) Evaluate(ctx context.Context, examID, studentID string) error {
	a, err := s.attempts.Get(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("load attempt: %w", err)
	}

	switch a.Status {
	case model.AttemptStatusEvaluated, model.AttemptStatusGradingFailed:
		return nil
	case model.AttemptStatusInProgress:
		return ErrNotSubmitted
	}

	if reason := missingPrerequisite(a); reason != "" {
		if _, err := s.attempts.MarkGradingFailed(ctx, examID, studentID, reason); err != nil {
			return fmt.Errorf("mark grading failed: %w", err)
		}
		s.log.Warn().Str("exam_id", examID).Str("student_id", studentID).
			Str("reason", reason).Msg("grading aborted")
		s.publish(ctx, MonitorEvent{
			Type:      MonitorGradingFailed,
			ExamID:    examID,
			StudentID: studentID,
			At:        s.now().UnixMilli(),
		})
		return nil
	}

	ids := make([]uuid.UUID, len(a.Questions))
	for i, q := range a.Questions {
		ids[i] = q.ID
	}
	keys, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load canonical answers: %w", err)
	}

	var (
		score, maxScore int
		summary         model.ResultSummary
		results         = make([]model.QuestionResult, len(a.Questions))
	)
	for i, q := range a.Questions {
		marks := q.Marks
		if marks <= 0 {
			marks = 1
		}
		maxScore += marks

		answer, answered := a.Answers[strconv.Itoa(i)]
		current, found := keys[q.ID]

		var outcome scoreOutcome
		if found {
			outcome = scoreQuestion(q.QuestionType, current.CorrectAnswer, current.CaseSensitive, answer, answered)
		} else {
			// Question deleted from the pool since assembly; ungraded.
			outcome = scoreOutcome{answered: answered}
		}

		r := model.QuestionResult{
			QuestionID:    q.ID,
			Evaluated:     outcome.evaluated,
			CorrectAnswer: outcome.correctAnswer,
		}
		switch {
		case !outcome.evaluated:
			// Ungraded: is_correct stays null, no tally moves, but the
			// marks still count toward max_score.
		case !outcome.answered:
			summary.Unanswered++
			r.IsCorrect = boolPtr(false)
		case outcome.correct:
			summary.Correct++
			score += marks
			r.IsCorrect = boolPtr(true)
			r.MarksAwarded = marks
		default:
			summary.Wrong++
			r.IsCorrect = boolPtr(false)
		}
		results[i] = r
	}

	evaluatedAt := s.now().UnixMilli()
	ok, err := s.attempts.SaveEvaluation(ctx, examID, studentID, score, maxScore, evaluatedAt, summary, results)
	if err != nil {
		return fmt.Errorf("save evaluation: %w", err)
	}
	if !ok {
		// A concurrent worker finished first; its result stands.
		return nil
	}

	s.publish(ctx, MonitorEvent{
		Type:      MonitorEvaluated,
		ExamID:    examID,
		StudentID: studentID,
		At:        evaluatedAt,
		Score:     &score,
		MaxScore:  &maxScore,
	})
	s.log.Info().Str("exam_id", examID).Str("student_id", studentID).
		Int("score", score).Int("max_score", maxScore).Msg("attempt evaluated")
	return nil
}

func (s *GradingService) publish(ctx context.Context, ev MonitorEvent) {
	if err := s.events.PublishMonitor(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("exam_id", ev.ExamID).Msg("monitor publish failed")
	}
}

// missingPrerequisite returns a reason string when the attempt lacks the
// data grading depends on, or "" when it is gradable.
func missingPrerequisite(a *model.Attempt) string {
	switch {
	case a.CourseID == "":
		return "attempt has no course id"
	case len(a.Questions) == 0:
		return "attempt has no question snapshot"
	case a.Answers == nil:
		return "attempt has no answer map"
	}
	return ""
}

func boolPtr(b bool) *bool { return &b }
