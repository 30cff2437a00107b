package model

import "time"

// FilterAll is the sentinel allow-list entry that disables a filter.
const FilterAll = "ALL"

// ExamMeta is an exam template. The exam ID is shared with students out of
// band, so it must be globally unique; creation enforces that atomically.
// Immutable after creation except for the Active flag.
type ExamMeta struct {
	ExamID           string    `json:"exam_id"`
	CourseID         string    `json:"course_id"`
	Chapters         []string  `json:"chapters"`
	QuestionTypes    []string  `json:"question_types"`
	DurationMinutes  int       `json:"duration_minutes"`
	TotalQuestions   int       `json:"total_questions"`
	Active           bool      `json:"active"`
	AllowEarlySubmit bool      `json:"allow_early_submit"`
	CreatedAt        time.Time `json:"created_at"`
}

// AllowsType reports whether the exam's type allow-list admits t.
func (m *ExamMeta) AllowsType(t QuestionType) bool {
	return allows(m.QuestionTypes, string(t))
}

// AllowsChapter reports whether the exam's chapter allow-list admits ch.
func (m *ExamMeta) AllowsChapter(ch string) bool {
	return allows(m.Chapters, ch)
}

func allows(list []string, v string) bool {
	for _, item := range list {
		if item == FilterAll || item == v {
			return true
		}
	}
	return false
}

// CreateExamRequest is the payload for creating an exam template.
type CreateExamRequest struct {
	ExamID           string   `json:"exam_id" binding:"required,min=3,max=64"`
	CourseID         string   `json:"course_id" binding:"required"`
	Chapters         []string `json:"chapters" binding:"required,min=1"`
	QuestionTypes    []string `json:"question_types" binding:"required,min=1"`
	DurationMinutes  int      `json:"duration_minutes" binding:"required,min=1,max=480"`
	TotalQuestions   int      `json:"total_questions" binding:"required,min=1,max=200"`
	AllowEarlySubmit bool     `json:"allow_early_submit"`
}
