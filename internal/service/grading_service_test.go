package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
)

type gradingFixture struct {
	store     *fakeAttemptStore
	questions *fakeQuestionStore
	events    *fakeEvents
	svc       *GradingService
	clock     int64
}

func newGradingFixture(t *testing.T, pool []model.Question) *gradingFixture {
	t.Helper()
	f := &gradingFixture{
		store:     newFakeAttemptStore(),
		questions: &fakeQuestionStore{pool: pool},
		events:    &fakeEvents{},
		clock:     testStartMs + 30*60_000,
	}
	f.svc = NewGradingService(f.store, f.questions, f.events)
	f.svc.now = func() time.Time { return time.UnixMilli(f.clock) }
	return f
}

func snapshotOf(pool []model.Question) []model.AttemptQuestion {
	snap := make([]model.AttemptQuestion, len(pool))
	for i, q := range pool {
		marks := q.Marks
		if marks <= 0 {
			marks = 1
		}
		snap[i] = model.AttemptQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			QuestionType: q.QuestionType,
			Marks:        marks,
			Chapter:      q.Chapter,
		}
	}
	return snap
}

// seedSubmitted plants an already-submitted attempt directly in the store.
func (f *gradingFixture) seedSubmitted(questions []model.AttemptQuestion, answers model.AnswerMap) {
	submittedAt := testStartMs + 15*60_000
	sub := model.SubmissionManual
	f.store.attempts[attemptKey(testExamID, "s-100")] = &model.Attempt{
		ExamID:         testExamID,
		StudentID:      "s-100",
		CourseID:       testCourseID,
		StudentName:    "Ada",
		Questions:      questions,
		Answers:        answers,
		Status:         model.AttemptStatusSubmitted,
		StartedAt:      testStartMs,
		EndAt:          testStartMs + 20*60_000,
		SubmittedAt:    &submittedAt,
		SubmissionType: &sub,
	}
}

func (f *gradingFixture) evaluated(t *testing.T) *model.Attempt {
	t.Helper()
	a, err := f.store.Get(context.Background(), testExamID, "s-100")
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	return a
}

func TestEvaluate_FullMarks(t *testing.T) {
	pool := []model.Question{
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeMCQ,
			QuestionText: "2+2?", CorrectAnswer: raw(`["B"]`), Marks: 1},
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeFillBlank,
			QuestionText: "6*7?", CorrectAnswer: raw(`"42"`), Marks: 1},
	}
	f := newGradingFixture(t, pool)
	f.seedSubmitted(snapshotOf(pool), model.AnswerMap{"0": raw(`["B"]`), "1": raw(`"42"`)})

	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	a := f.evaluated(t)
	if a.Status != model.AttemptStatusEvaluated {
		t.Fatalf("status = %s, want EVALUATED", a.Status)
	}
	if *a.Score != 2 || *a.MaxScore != 2 {
		t.Errorf("score = %d/%d, want 2/2", *a.Score, *a.MaxScore)
	}
	if got := *a.ResultSummary; got != (model.ResultSummary{Correct: 2}) {
		t.Errorf("summary = %+v, want {2 0 0}", got)
	}
	for i, r := range a.QuestionResults {
		if !r.Evaluated || r.IsCorrect == nil || !*r.IsCorrect {
			t.Errorf("result %d = %+v, want evaluated correct", i, r)
		}
	}

	if len(f.events.monitor) != 1 || f.events.monitor[0].Type != MonitorEvaluated {
		t.Fatalf("monitor events = %+v, want one evaluated event", f.events.monitor)
	}
	if ev := f.events.monitor[0]; ev.Score == nil || *ev.Score != 2 {
		t.Errorf("monitor score = %v, want 2", ev.Score)
	}
}

func TestEvaluate_MixedOutcomes(t *testing.T) {
	pool := []model.Question{
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeMCQ,
			CorrectAnswer: raw(`["B"]`), Marks: 2},
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeMSQ,
			CorrectAnswer: raw(`["A","C"]`), Marks: 3},
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeFillBlank,
			CorrectAnswer: raw(`"Paris"`), Marks: 1},
	}
	f := newGradingFixture(t, pool)
	// Correct MCQ, wrong MSQ (subset), fill-blank left unanswered.
	f.seedSubmitted(snapshotOf(pool), model.AnswerMap{"0": raw(`["B"]`), "1": raw(`["A"]`)})

	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	a := f.evaluated(t)
	if *a.Score != 2 || *a.MaxScore != 6 {
		t.Errorf("score = %d/%d, want 2/6", *a.Score, *a.MaxScore)
	}
	if got := *a.ResultSummary; got != (model.ResultSummary{Correct: 1, Wrong: 1, Unanswered: 1}) {
		t.Errorf("summary = %+v, want {1 1 1}", got)
	}
	if r := a.QuestionResults[0]; r.MarksAwarded != 2 {
		t.Errorf("marks awarded = %d, want 2", r.MarksAwarded)
	}
	if r := a.QuestionResults[2]; r.IsCorrect == nil || *r.IsCorrect {
		t.Errorf("unanswered result = %+v, want is_correct false", r)
	}
}

func TestEvaluate_UngradedExcludedFromTallies(t *testing.T) {
	pool := []model.Question{
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeMCQ,
			CorrectAnswer: raw(`["A"]`), Marks: 1},
		// No canonical answer: auto-grading must skip it.
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeDescriptive, Marks: 5},
	}
	f := newGradingFixture(t, pool)
	f.seedSubmitted(snapshotOf(pool), model.AnswerMap{"0": raw(`["A"]`), "1": raw(`"an essay"`)})

	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	a := f.evaluated(t)
	// The descriptive marks still count toward the maximum.
	if *a.Score != 1 || *a.MaxScore != 6 {
		t.Errorf("score = %d/%d, want 1/6", *a.Score, *a.MaxScore)
	}
	if got := *a.ResultSummary; got != (model.ResultSummary{Correct: 1}) {
		t.Errorf("summary = %+v, want {1 0 0}", got)
	}
	if r := a.QuestionResults[1]; r.Evaluated || r.IsCorrect != nil {
		t.Errorf("ungraded result = %+v, want unevaluated with null is_correct", r)
	}
}

func TestEvaluate_DeletedQuestionUngraded(t *testing.T) {
	pool := []model.Question{
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeMCQ,
			CorrectAnswer: raw(`["A"]`), Marks: 1},
	}
	f := newGradingFixture(t, pool)
	snap := snapshotOf(pool)
	snap = append(snap, model.AttemptQuestion{
		ID: uuid.New(), QuestionType: model.QuestionTypeMCQ, Marks: 2,
	})
	f.seedSubmitted(snap, model.AnswerMap{"0": raw(`["A"]`), "1": raw(`["B"]`)})

	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	a := f.evaluated(t)
	if *a.Score != 1 || *a.MaxScore != 3 {
		t.Errorf("score = %d/%d, want 1/3", *a.Score, *a.MaxScore)
	}
	if r := a.QuestionResults[1]; r.Evaluated || r.IsCorrect != nil {
		t.Errorf("deleted-question result = %+v, want ungraded", r)
	}
}

func TestEvaluate_UsesCurrentCanonicalAnswer(t *testing.T) {
	q := model.Question{ID: uuid.New(), CourseID: testCourseID,
		QuestionType: model.QuestionTypeMCQ, CorrectAnswer: raw(`["A"]`), Marks: 1}
	f := newGradingFixture(t, []model.Question{q})
	f.seedSubmitted(snapshotOf([]model.Question{q}), model.AnswerMap{"0": raw(`["B"]`)})

	// Instructor corrects the answer key after submission, before grading.
	f.questions.pool[0].CorrectAnswer = raw(`["B"]`)

	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if a := f.evaluated(t); *a.Score != 1 {
		t.Errorf("score = %d, want 1 under the corrected key", *a.Score)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	pool := []model.Question{
		{ID: uuid.New(), CourseID: testCourseID, QuestionType: model.QuestionTypeMCQ,
			CorrectAnswer: raw(`["A"]`), Marks: 1},
	}
	f := newGradingFixture(t, pool)
	f.seedSubmitted(snapshotOf(pool), model.AnswerMap{"0": raw(`["A"]`)})
	ctx := context.Background()

	if err := f.svc.Evaluate(ctx, testExamID, "s-100"); err != nil {
		t.Fatalf("first Evaluate() error = %v", err)
	}
	first := f.evaluated(t)

	// A replayed queue message must not re-grade or move timestamps.
	f.clock += 60_000
	if err := f.svc.Evaluate(ctx, testExamID, "s-100"); err != nil {
		t.Fatalf("replay Evaluate() error = %v", err)
	}
	second := f.evaluated(t)
	if *second.EvaluatedAt != *first.EvaluatedAt {
		t.Errorf("replay moved evaluated_at: %d != %d", *second.EvaluatedAt, *first.EvaluatedAt)
	}
	if len(f.events.monitor) != 1 {
		t.Errorf("monitor events = %d, want 1", len(f.events.monitor))
	}
}

func TestEvaluate_MissingPrerequisiteFails(t *testing.T) {
	f := newGradingFixture(t, nil)
	f.seedSubmitted(nil, model.AnswerMap{})

	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	a := f.evaluated(t)
	if a.Status != model.AttemptStatusGradingFailed {
		t.Fatalf("status = %s, want GRADING_FAILED", a.Status)
	}
	if a.GradingError == nil || *a.GradingError == "" {
		t.Error("grading_error not recorded")
	}
	if len(f.events.monitor) != 1 || f.events.monitor[0].Type != MonitorGradingFailed {
		t.Errorf("monitor events = %+v, want one grading-failed event", f.events.monitor)
	}

	// Failed attempts are terminal for the worker: replays are no-ops.
	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); err != nil {
		t.Fatalf("replay Evaluate() error = %v", err)
	}
}

func TestEvaluate_StateErrors(t *testing.T) {
	f := newGradingFixture(t, nil)

	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("missing attempt error = %v, want ErrAttemptNotFound", err)
	}

	f.store.attempts[attemptKey(testExamID, "s-100")] = &model.Attempt{
		ExamID: testExamID, StudentID: "s-100", CourseID: testCourseID,
		Status: model.AttemptStatusInProgress,
	}
	if err := f.svc.Evaluate(context.Background(), testExamID, "s-100"); !errors.Is(err, ErrNotSubmitted) {
		t.Errorf("in-progress error = %v, want ErrNotSubmitted", err)
	}
}
