package service

import (
	"strings"
	"testing"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
)

func TestBuildQuestion(t *testing.T) {
	abOptions := map[string]string{"A": "first", "B": "second"}

	tests := []struct {
		name    string
		in      model.UploadQuestion
		wantErr string
	}{
		{
			name: "valid MCQ",
			in: model.UploadQuestion{Chapter: "algebra", QuestionType: "MCQ", QuestionText: "2+2?",
				Options: abOptions, CorrectAnswer: raw(`["B"]`), Marks: 1},
		},
		{
			name: "valid MSQ with two labels",
			in: model.UploadQuestion{Chapter: "algebra", QuestionType: "MSQ", QuestionText: "pick",
				Options: abOptions, CorrectAnswer: raw(`["A","B"]`), Marks: 2},
		},
		{
			name: "valid fill blank",
			in: model.UploadQuestion{Chapter: "algebra", QuestionType: "FILL_BLANK", QuestionText: "6*7?",
				CorrectAnswer: raw(`"42"`), Marks: 1},
		},
		{
			name: "descriptive needs no canonical shape",
			in: model.UploadQuestion{Chapter: "essay", QuestionType: "DESCRIPTIVE", QuestionText: "discuss",
				CorrectAnswer: raw(`"model answer"`), Marks: 5},
		},
		{
			name: "unknown type",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "TRUE_FALSE", QuestionText: "?",
				CorrectAnswer: raw(`"yes"`), Marks: 1},
			wantErr: "unknown question type",
		},
		{
			name: "MCQ with one option",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "MCQ", QuestionText: "?",
				Options: map[string]string{"A": "only"}, CorrectAnswer: raw(`["A"]`), Marks: 1},
			wantErr: "at least two options",
		},
		{
			name: "MCQ with two correct labels",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "MCQ", QuestionText: "?",
				Options: abOptions, CorrectAnswer: raw(`["A","B"]`), Marks: 1},
			wantErr: "exactly one label",
		},
		{
			name: "MCQ label not an option",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "MCQ", QuestionText: "?",
				Options: abOptions, CorrectAnswer: raw(`["C"]`), Marks: 1},
			wantErr: "not an option",
		},
		{
			name: "MSQ empty label array",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "MSQ", QuestionText: "?",
				Options: abOptions, CorrectAnswer: raw(`[]`), Marks: 1},
			wantErr: "non-empty label array",
		},
		{
			name: "choice answer not an array",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "MCQ", QuestionText: "?",
				Options: abOptions, CorrectAnswer: raw(`{"a":1}`), Marks: 1},
			wantErr: "label array",
		},
		{
			name: "fill blank empty string",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "FILL_BLANK", QuestionText: "?",
				CorrectAnswer: raw(`""`), Marks: 1},
			wantErr: "non-empty string",
		},
		{
			name: "fill blank numeric value",
			in: model.UploadQuestion{Chapter: "x", QuestionType: "FILL_BLANK", QuestionText: "?",
				CorrectAnswer: raw(`42`), Marks: 1},
			wantErr: "non-empty string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := buildQuestion(testCourseID, &tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("buildQuestion() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildQuestion() error = %v", err)
			}
			if q.ID == uuid.Nil {
				t.Error("question ID not assigned")
			}
			if q.CourseID != testCourseID {
				t.Errorf("course_id = %s, want %s", q.CourseID, testCourseID)
			}
			if q.QuestionType != model.QuestionType(tt.in.QuestionType) {
				t.Errorf("question_type = %s, want %s", q.QuestionType, tt.in.QuestionType)
			}
		})
	}
}
