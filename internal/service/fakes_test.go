package service

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// In-memory store fakes so the lifecycle logic can run without Postgres.
// Conditional updates mirror the repository CAS semantics exactly.

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]*model.Attempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[string]*model.Attempt)}
}

func attemptKey(examID, studentID string) string {
	return examID + "/" + studentID
}

func (s *fakeAttemptStore) CreateIfAbsent(_ context.Context, a *model.Attempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := attemptKey(a.ExamID, a.StudentID)
	if _, exists := s.attempts[k]; exists {
		return false, nil
	}
	cp := *a
	s.attempts[k] = &cp
	return true, nil
}

func (s *fakeAttemptStore) Get(_ context.Context, examID, studentID string) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey(examID, studentID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAttemptStore) SetAnswer(_ context.Context, examID, studentID string, index int, value json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey(examID, studentID)]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return false, nil
	}
	if a.Answers == nil {
		a.Answers = model.AnswerMap{}
	}
	a.Answers[strconv.Itoa(index)] = value
	return true, nil
}

func (s *fakeAttemptStore) MarkSubmitted(_ context.Context, examID, studentID string, subType model.SubmissionType, atMs int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey(examID, studentID)]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return false, nil
	}
	a.Status = model.AttemptStatusSubmitted
	a.SubmittedAt = &atMs
	a.SubmissionType = &subType
	return true, nil
}

func (s *fakeAttemptStore) BulkSubmit(_ context.Context, examID string, atMs int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var students []string
	for _, a := range s.attempts {
		if a.ExamID == examID && a.Status == model.AttemptStatusInProgress {
			a.Status = model.AttemptStatusSubmitted
			at := atMs
			sub := model.SubmissionAuto
			a.SubmittedAt = &at
			a.SubmissionType = &sub
			students = append(students, a.StudentID)
		}
	}
	return students, nil
}

func (s *fakeAttemptStore) ListExpiredKeys(_ context.Context, nowMs int64, limit int) ([]repository.AttemptKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []repository.AttemptKey
	for _, a := range s.attempts {
		if a.Status == model.AttemptStatusInProgress && a.EndAt <= nowMs && len(keys) < limit {
			keys = append(keys, repository.AttemptKey{ExamID: a.ExamID, StudentID: a.StudentID})
		}
	}
	return keys, nil
}

func (s *fakeAttemptStore) ListStuckSubmittedKeys(_ context.Context, submittedBeforeMs int64, limit int) ([]repository.AttemptKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []repository.AttemptKey
	for _, a := range s.attempts {
		if a.Status == model.AttemptStatusSubmitted && a.SubmittedAt != nil && *a.SubmittedAt <= submittedBeforeMs && len(keys) < limit {
			keys = append(keys, repository.AttemptKey{ExamID: a.ExamID, StudentID: a.StudentID})
		}
	}
	return keys, nil
}

func (s *fakeAttemptStore) SaveEvaluation(_ context.Context, examID, studentID string, score, maxScore int, evaluatedAtMs int64,
	summary model.ResultSummary, results []model.QuestionResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey(examID, studentID)]
	if !ok || a.Status != model.AttemptStatusSubmitted {
		return false, nil
	}
	a.Status = model.AttemptStatusEvaluated
	a.Score = &score
	a.MaxScore = &maxScore
	a.EvaluatedAt = &evaluatedAtMs
	a.ResultSummary = &summary
	a.QuestionResults = results
	a.GradingError = nil
	return true, nil
}

func (s *fakeAttemptStore) MarkGradingFailed(_ context.Context, examID, studentID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey(examID, studentID)]
	if !ok || a.Status != model.AttemptStatusSubmitted {
		return false, nil
	}
	a.Status = model.AttemptStatusGradingFailed
	a.GradingError = &reason
	return true, nil
}

func (s *fakeAttemptStore) SetFeedback(_ context.Context, examID, studentID string, fb *model.AttemptFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attempts[attemptKey(examID, studentID)]; ok {
		a.Feedback = fb
	}
	return nil
}

func (s *fakeAttemptStore) ListByExam(_ context.Context, examID string) ([]repository.AttemptSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []repository.AttemptSummary
	for _, a := range s.attempts {
		if a.ExamID != examID {
			continue
		}
		rows = append(rows, repository.AttemptSummary{
			ExamID:         a.ExamID,
			StudentID:      a.StudentID,
			StudentName:    a.StudentName,
			StudentEmail:   a.StudentEmail,
			Status:         a.Status,
			StartedAt:      a.StartedAt,
			SubmittedAt:    a.SubmittedAt,
			SubmissionType: a.SubmissionType,
			Score:          a.Score,
			MaxScore:       a.MaxScore,
			ResultSummary:  a.ResultSummary,
		})
	}
	return rows, nil
}

func (s *fakeAttemptStore) Delete(_ context.Context, examID, studentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := attemptKey(examID, studentID)
	if _, ok := s.attempts[k]; !ok {
		return false, nil
	}
	delete(s.attempts, k)
	return true, nil
}

type fakeQuestionStore struct {
	pool []model.Question
}

func (s *fakeQuestionStore) ListByCourse(_ context.Context, courseID string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range s.pool {
		if q.CourseID == courseID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *fakeQuestionStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[uuid.UUID]model.Question)
	for _, q := range s.pool {
		if _, ok := want[q.ID]; ok {
			out[q.ID] = q
		}
	}
	return out, nil
}

type fakeExamStore struct {
	exams map[string]*model.ExamMeta
}

func (s *fakeExamStore) GetByExamID(_ context.Context, examID string) (*model.ExamMeta, error) {
	m, ok := s.exams[examID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

type fakeEvents struct {
	mu       sync.Mutex
	enqueued []EvaluationJob
	monitor  []MonitorEvent
}

func (e *fakeEvents) EnqueueEvaluation(_ context.Context, examID, studentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueued = append(e.enqueued, EvaluationJob{ExamID: examID, StudentID: studentID})
	return nil
}

func (e *fakeEvents) PublishMonitor(_ context.Context, ev MonitorEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.monitor = append(e.monitor, ev)
	return nil
}
