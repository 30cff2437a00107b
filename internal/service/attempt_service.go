package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StudentProfile is the identity snapshot frozen onto an attempt at join
// time. Later profile changes never touch past attempts.
type StudentProfile struct {
	ID         string
	Name       string
	Email      string
	DeviceType string
}

// AttemptService owns the attempt lifecycle: assembly, answer capture,
// submission and the deadline sweep. Grading lives in GradingService.
type AttemptService struct {
	attempts  AttemptStore
	questions QuestionStore
	exams     ExamMetaStore
	events    Events
	log       zerolog.Logger
	now       func() time.Time
	newRand   func() *rand.Rand
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(attempts AttemptStore, questions QuestionStore, exams ExamMetaStore, events Events) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		questions: questions,
		exams:     exams,
		events:    events,
		log:       log.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// StartOrResume returns the student's attempt for the exam, assembling a new
// one on first join. Resume is a plain read: no re-sampling, no deadline
// reset, whatever state the attempt is in. The boolean reports whether a new
// attempt was created.
func (s *AttemptService) StartOrResume(ctx context.Context, examID string, student StudentProfile) (*model.Attempt, bool, error) {
	existing, err := s.attempts.Get(ctx, examID, student.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("load attempt: %w", err)
	}

	meta, err := s.exams.GetByExamID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrExamNotFound
		}
		return nil, false, fmt.Errorf("load exam meta: %w", err)
	}
	if !meta.Active {
		return nil, false, ErrExamInactive
	}

	pool, err := s.questions.ListByCourse(ctx, meta.CourseID)
	if err != nil {
		return nil, false, fmt.Errorf("load question pool: %w", err)
	}
	filtered := filterPool(pool, meta)
	if len(filtered) < meta.TotalQuestions {
		return nil, false, ErrInsufficientPool
	}

	selected := sampleBalanced(filtered, meta.TotalQuestions, s.newRand())

	snapshot := make([]model.AttemptQuestion, len(selected))
	for i, q := range selected {
		marks := q.Marks
		if marks <= 0 {
			marks = 1
		}
		// Canonical answers never enter the snapshot; the snapshot is
		// served to the student client verbatim.
		snapshot[i] = model.AttemptQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			QuestionType: q.QuestionType,
			Marks:        marks,
			Difficulty:   q.Difficulty,
			Chapter:      q.Chapter,
		}
	}

	now := s.now().UnixMilli()
	attempt := &model.Attempt{
		ExamID:       examID,
		StudentID:    student.ID,
		CourseID:     meta.CourseID,
		StudentName:  student.Name,
		StudentEmail: student.Email,
		Questions:    snapshot,
		Answers:      model.AnswerMap{},
		Status:       model.AttemptStatusInProgress,
		StartedAt:    now,
		EndAt:        now + int64(meta.DurationMinutes)*60_000,
		AllowEarly:   meta.AllowEarlySubmit,
		DeviceType:   student.DeviceType,
	}

	created, err := s.attempts.CreateIfAbsent(ctx, attempt)
	if err != nil {
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}
	if !created {
		// Lost the insert race to a concurrent join; the winner's attempt
		// is the attempt.
		winner, err := s.attempts.Get(ctx, examID, student.ID)
		if err != nil {
			return nil, false, fmt.Errorf("load attempt after join race: %w", err)
		}
		return winner, false, nil
	}

	if err := s.events.PublishMonitor(ctx, MonitorEvent{
		Type:        MonitorJoined,
		ExamID:      examID,
		StudentID:   student.ID,
		StudentName: student.Name,
		At:          now,
	}); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID).Msg("monitor publish failed")
	}

	s.log.Info().Str("exam_id", examID).Str("student_id", student.ID).
		Int("questions", len(snapshot)).Msg("attempt created")
	return attempt, true, nil
}

// Get returns the attempt for (examID, studentID).
func (s *AttemptService) Get(ctx context.Context, examID, studentID string) (*model.Attempt, error) {
	a, err := s.attempts.Get(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	return a, nil
}

// RecordAnswer validates and persists one answer value at the given question
// index. Writes after submission are silent no-ops: answers are frozen, and
// a late autosave from a stale tab is not an error.
func (s *AttemptService) RecordAnswer(ctx context.Context, examID, studentID string, index int, value json.RawMessage) error {
	a, err := s.Get(ctx, examID, studentID)
	if err != nil {
		return err
	}
	if a.Submitted() {
		return nil
	}
	if index < 0 || index >= len(a.Questions) {
		return ErrQuestionIndex
	}
	if err := validateAnswerValue(a.Questions[index].QuestionType, value); err != nil {
		return err
	}
	if _, err := s.attempts.SetAnswer(ctx, examID, studentID, index, value); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// earlySubmitLockShare is the fraction of exam duration that must elapse
// before a manual submit is accepted when early submission is disabled.
const earlySubmitLockShare = 0.75

// Finalize moves an attempt to SUBMITTED and enqueues grading. Manual
// submissions respect the early-submission lock; the deadline watchdog
// submits with reason auto and bypasses it. Finalizing an already-submitted
// attempt is idempotent and returns the attempt as-is.
func (s *AttemptService) Finalize(ctx context.Context, examID, studentID string, reason model.SubmissionType) (*model.Attempt, error) {
	a, err := s.Get(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if a.Submitted() {
		return a, nil
	}

	now := s.now().UnixMilli()
	if reason == model.SubmissionManual && !a.AllowEarly {
		elapsed := now - a.StartedAt
		lockMs := int64(float64(a.EndAt-a.StartedAt) * earlySubmitLockShare)
		if elapsed < lockMs {
			waitMs := lockMs - elapsed
			return nil, &SubmitLockedError{UnlockInSeconds: (waitMs + 999) / 1000}
		}
	}

	ok, err := s.attempts.MarkSubmitted(ctx, examID, studentID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	if !ok {
		// A concurrent submit (manual vs watchdog) won the CAS.
		return s.Get(ctx, examID, studentID)
	}

	a.Status = model.AttemptStatusSubmitted
	a.SubmittedAt = &now
	a.SubmissionType = &reason

	s.afterSubmit(ctx, examID, studentID, a.StudentName, now)
	s.log.Info().Str("exam_id", examID).Str("student_id", studentID).
		Str("reason", string(reason)).Msg("attempt submitted")
	return a, nil
}

// BulkClose forces every in-progress attempt of an exam to SUBMITTED and
// enqueues grading for each. Returns the number of attempts closed.
func (s *AttemptService) BulkClose(ctx context.Context, examID string) (int, error) {
	now := s.now().UnixMilli()
	students, err := s.attempts.BulkSubmit(ctx, examID, now)
	if err != nil {
		return 0, fmt.Errorf("bulk submit: %w", err)
	}
	for _, sid := range students {
		s.afterSubmit(ctx, examID, sid, "", now)
	}
	s.log.Info().Str("exam_id", examID).Int("closed", len(students)).Msg("exam closed")
	return len(students), nil
}

// afterSubmit enqueues grading and broadcasts the monitor event. Both are
// best-effort here: the watchdog re-enqueues attempts stuck in SUBMITTED,
// so a dropped queue push heals on the next sweep.
func (s *AttemptService) afterSubmit(ctx context.Context, examID, studentID, studentName string, atMs int64) {
	if err := s.events.EnqueueEvaluation(ctx, examID, studentID); err != nil {
		s.log.Error().Err(err).Str("exam_id", examID).Str("student_id", studentID).
			Msg("failed to enqueue grading")
	}
	if err := s.events.PublishMonitor(ctx, MonitorEvent{
		Type:        MonitorSubmitted,
		ExamID:      examID,
		StudentID:   studentID,
		StudentName: studentName,
		At:          atMs,
	}); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID).Msg("monitor publish failed")
	}
}

// SweepExpired finds attempts past their deadline and auto-submits each one.
// Called by the deadline watchdog. Returns the number of attempts closed.
func (s *AttemptService) SweepExpired(ctx context.Context, limit int) (int, error) {
	keys, err := s.attempts.ListExpiredKeys(ctx, s.now().UnixMilli(), limit)
	if err != nil {
		return 0, fmt.Errorf("list expired attempts: %w", err)
	}
	closed := 0
	for _, k := range keys {
		if _, err := s.Finalize(ctx, k.ExamID, k.StudentID, model.SubmissionAuto); err != nil {
			s.log.Error().Err(err).Str("exam_id", k.ExamID).Str("student_id", k.StudentID).
				Msg("auto submit failed")
			continue
		}
		closed++
	}
	return closed, nil
}

// RequeueStuck re-enqueues attempts that have sat in SUBMITTED longer than
// the grace period, covering grading jobs lost between submit and the queue.
func (s *AttemptService) RequeueStuck(ctx context.Context, grace time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-grace).UnixMilli()
	keys, err := s.attempts.ListStuckSubmittedKeys(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list stuck attempts: %w", err)
	}
	for _, k := range keys {
		if err := s.events.EnqueueEvaluation(ctx, k.ExamID, k.StudentID); err != nil {
			s.log.Error().Err(err).Str("exam_id", k.ExamID).Str("student_id", k.StudentID).
				Msg("requeue failed")
		}
	}
	return len(keys), nil
}

// SubmitFeedback stores post-exam feedback on a submitted attempt.
func (s *AttemptService) SubmitFeedback(ctx context.Context, examID, studentID string, req *model.FeedbackRequest) error {
	a, err := s.Get(ctx, examID, studentID)
	if err != nil {
		return err
	}
	if !a.Submitted() {
		return ErrNotSubmitted
	}
	fb := &model.AttemptFeedback{
		Rating:      req.Rating,
		Difficulty:  req.Difficulty,
		Clarity:     req.Clarity,
		Comments:    req.Comments,
		SubmittedAt: s.now().UnixMilli(),
	}
	if err := s.attempts.SetFeedback(ctx, examID, studentID, fb); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// ListByExam returns instructor-facing result rows for an exam.
func (s *AttemptService) ListByExam(ctx context.Context, examID string) ([]repository.AttemptSummary, error) {
	rows, err := s.attempts.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return rows, nil
}

// Delete removes a student's attempt, letting them rejoin fresh.
func (s *AttemptService) Delete(ctx context.Context, examID, studentID string) error {
	ok, err := s.attempts.Delete(ctx, examID, studentID)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if !ok {
		return ErrAttemptNotFound
	}
	return nil
}
