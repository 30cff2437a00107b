package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/examly/examly-backend/internal/model"
)

// scoreOutcome is the grading result for a single question. evaluated is
// false when the canonical answer is missing or unusable; such questions are
// ungraded and must not be conflated with wrong.
type scoreOutcome struct {
	evaluated     bool
	answered      bool
	correct       bool
	correctAnswer json.RawMessage
}

// scoreQuestion grades one submitted answer against the canonical answer
// currently on record for the question. answered distinguishes "key absent
// from the answer map" from an empty-but-present value; an empty MSQ set
// counts as answered.
func scoreQuestion(qType model.QuestionType, canonical json.RawMessage, caseSensitive bool,
	answer json.RawMessage, answered bool) scoreOutcome {

	switch qType {
	case model.QuestionTypeMCQ, model.QuestionTypeMSQ:
		want, ok := decodeLabels(canonical)
		if !ok || len(want) == 0 {
			return scoreOutcome{answered: answered}
		}
		out := scoreOutcome{evaluated: true, answered: answered, correctAnswer: canonical}
		if !answered {
			return out
		}
		got, ok := decodeLabels(answer)
		if !ok {
			return out
		}
		if qType == model.QuestionTypeMCQ {
			// Correct iff the single submitted label is in the canonical set.
			out.correct = len(got) == 1 && containsLabel(want, got[0])
		} else {
			out.correct = exactSetMatch(want, got)
		}
		return out

	case model.QuestionTypeFillBlank:
		want, ok := decodeText(canonical)
		want = strings.TrimSpace(want)
		if !ok || want == "" {
			return scoreOutcome{answered: answered}
		}
		out := scoreOutcome{evaluated: true, answered: answered, correctAnswer: canonical}
		if !answered {
			return out
		}
		got, ok := decodeText(answer)
		if !ok {
			return out
		}
		got = strings.TrimSpace(got)
		if caseSensitive {
			out.correct = got == want
		} else {
			out.correct = strings.EqualFold(got, want)
		}
		return out

	default:
		// DESCRIPTIVE has no auto-gradable canonical form.
		return scoreOutcome{answered: answered}
	}
}

// validateAnswerValue checks a submitted value against the per-type shape
// contract before it is persisted: a one-element array for MCQ, an array
// (possibly empty) for MSQ, a string for FILL_BLANK and DESCRIPTIVE.
func validateAnswerValue(qType model.QuestionType, value json.RawMessage) error {
	switch qType {
	case model.QuestionTypeMCQ:
		labels, ok := decodeLabels(value)
		if !ok || len(labels) != 1 {
			return fmt.Errorf("%w: MCQ expects a one-element label array", ErrInvalidAnswer)
		}
	case model.QuestionTypeMSQ:
		if _, ok := decodeLabels(value); !ok {
			return fmt.Errorf("%w: MSQ expects a label array", ErrInvalidAnswer)
		}
	case model.QuestionTypeFillBlank, model.QuestionTypeDescriptive:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("%w: %s expects a string", ErrInvalidAnswer, qType)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidAnswer, qType)
	}
	return nil
}

// decodeLabels accepts a JSON array of strings, or a bare string as a
// single-element set (tolerating older single-value MCQ payloads).
func decodeLabels(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err == nil {
		return labels, true
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}
	return nil, false
}

// decodeText accepts a JSON string, or the first element of a one-element
// string array.
func decodeText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 {
		return arr[0], true
	}
	return "", false
}

func containsLabel(set []string, label string) bool {
	for _, s := range set {
		if s == label {
			return true
		}
	}
	return false
}

// exactSetMatch reports whether got and want contain the same labels,
// ignoring order and duplicates.
func exactSetMatch(want, got []string) bool {
	ws := make(map[string]struct{}, len(want))
	for _, w := range want {
		ws[w] = struct{}{}
	}
	gs := make(map[string]struct{}, len(got))
	for _, g := range got {
		gs[g] = struct{}{}
	}
	if len(ws) != len(gs) {
		return false
	}
	for g := range gs {
		if _, ok := ws[g]; !ok {
			return false
		}
	}
	return true
}
