package service

import (
	"encoding/json"
	"testing"

	"github.com/examly/examly-backend/internal/model"
)

func TestScoreQuestion_MCQ(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		answer    string
		answered  bool
		evaluated bool
		correct   bool
	}{
		{name: "correct single label", canonical: `["B"]`, answer: `["B"]`, answered: true, evaluated: true, correct: true},
		{name: "wrong label", canonical: `["B"]`, answer: `["A"]`, answered: true, evaluated: true, correct: false},
		{name: "member of multi-label key", canonical: `["B","C"]`, answer: `["C"]`, answered: true, evaluated: true, correct: true},
		{name: "two labels submitted is wrong", canonical: `["B"]`, answer: `["A","B"]`, answered: true, evaluated: true, correct: false},
		{name: "unanswered", canonical: `["B"]`, answered: false, evaluated: true, correct: false},
		{name: "missing canonical is ungraded", canonical: ``, answer: `["B"]`, answered: true, evaluated: false},
		{name: "empty canonical array is ungraded", canonical: `[]`, answer: `["B"]`, answered: true, evaluated: false},
		{name: "bare string canonical accepted", canonical: `"B"`, answer: `["B"]`, answered: true, evaluated: true, correct: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreQuestion(model.QuestionTypeMCQ, raw(tt.canonical), false, raw(tt.answer), tt.answered)
			assertOutcome(t, got, tt.evaluated, tt.answered, tt.correct)
		})
	}
}

func TestScoreQuestion_MSQ(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		answer    string
		answered  bool
		evaluated bool
		correct   bool
	}{
		{name: "exact set match", canonical: `["A","C"]`, answer: `["A","C"]`, answered: true, evaluated: true, correct: true},
		{name: "order does not matter", canonical: `["A","C"]`, answer: `["C","A"]`, answered: true, evaluated: true, correct: true},
		{name: "subset scores zero", canonical: `["A","C"]`, answer: `["A"]`, answered: true, evaluated: true, correct: false},
		{name: "superset scores zero", canonical: `["A","C"]`, answer: `["A","C","D"]`, answered: true, evaluated: true, correct: false},
		{name: "empty set answered is wrong", canonical: `["A","C"]`, answer: `[]`, answered: true, evaluated: true, correct: false},
		{name: "unanswered", canonical: `["A","C"]`, answered: false, evaluated: true, correct: false},
		{name: "missing canonical is ungraded", canonical: `[]`, answer: `["A"]`, answered: true, evaluated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreQuestion(model.QuestionTypeMSQ, raw(tt.canonical), false, raw(tt.answer), tt.answered)
			assertOutcome(t, got, tt.evaluated, tt.answered, tt.correct)
		})
	}
}

func TestScoreQuestion_FillBlank(t *testing.T) {
	tests := []struct {
		name          string
		canonical     string
		caseSensitive bool
		answer        string
		answered      bool
		evaluated     bool
		correct       bool
	}{
		{name: "exact match", canonical: `"Paris"`, answer: `"Paris"`, answered: true, evaluated: true, correct: true},
		{name: "case-insensitive by default", canonical: `"Paris"`, answer: `"paris"`, answered: true, evaluated: true, correct: true},
		{name: "case-sensitive rejects lowercase", canonical: `"Paris"`, caseSensitive: true, answer: `"paris"`, answered: true, evaluated: true, correct: false},
		{name: "case-sensitive accepts exact", canonical: `"Paris"`, caseSensitive: true, answer: `"Paris"`, answered: true, evaluated: true, correct: true},
		{name: "surrounding whitespace trimmed", canonical: `" 42 "`, answer: `"42"`, answered: true, evaluated: true, correct: true},
		{name: "empty submitted string is wrong", canonical: `"Paris"`, answer: `""`, answered: true, evaluated: true, correct: false},
		{name: "unanswered", canonical: `"Paris"`, answered: false, evaluated: true, correct: false},
		{name: "empty canonical is ungraded", canonical: `""`, answer: `"x"`, answered: true, evaluated: false},
		{name: "missing canonical is ungraded", canonical: ``, answer: `"x"`, answered: true, evaluated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreQuestion(model.QuestionTypeFillBlank, raw(tt.canonical), tt.caseSensitive, raw(tt.answer), tt.answered)
			assertOutcome(t, got, tt.evaluated, tt.answered, tt.correct)
		})
	}
}

func TestScoreQuestion_DescriptiveNeverEvaluated(t *testing.T) {
	got := scoreQuestion(model.QuestionTypeDescriptive, raw(`"model answer"`), false, raw(`"essay"`), true)
	if got.evaluated {
		t.Fatal("descriptive questions must not be auto-graded")
	}
}

func TestValidateAnswerValue(t *testing.T) {
	tests := []struct {
		name    string
		qType   model.QuestionType
		value   string
		wantErr bool
	}{
		{name: "MCQ one label", qType: model.QuestionTypeMCQ, value: `["B"]`},
		{name: "MCQ empty array rejected", qType: model.QuestionTypeMCQ, value: `[]`, wantErr: true},
		{name: "MCQ two labels rejected", qType: model.QuestionTypeMCQ, value: `["A","B"]`, wantErr: true},
		{name: "MSQ empty set allowed", qType: model.QuestionTypeMSQ, value: `[]`},
		{name: "MSQ labels allowed", qType: model.QuestionTypeMSQ, value: `["A","C"]`},
		{name: "MSQ object rejected", qType: model.QuestionTypeMSQ, value: `{"a":1}`, wantErr: true},
		{name: "fill blank string", qType: model.QuestionTypeFillBlank, value: `"42"`},
		{name: "fill blank empty string stored as-is", qType: model.QuestionTypeFillBlank, value: `""`},
		{name: "fill blank number rejected", qType: model.QuestionTypeFillBlank, value: `42`, wantErr: true},
		{name: "descriptive string", qType: model.QuestionTypeDescriptive, value: `"essay text"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAnswerValue(tt.qType, raw(tt.value))
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAnswerValue() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func assertOutcome(t *testing.T, got scoreOutcome, evaluated, answered, correct bool) {
	t.Helper()
	if got.evaluated != evaluated {
		t.Errorf("evaluated = %v, want %v", got.evaluated, evaluated)
	}
	if got.answered != answered {
		t.Errorf("answered = %v, want %v", got.answered, answered)
	}
	if got.correct != correct {
		t.Errorf("correct = %v, want %v", got.correct, correct)
	}
}

func raw(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
