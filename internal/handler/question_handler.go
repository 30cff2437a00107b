package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/examly/examly-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// QuestionHandler handles instructor question pool management.
type QuestionHandler struct {
	questions *service.QuestionService
	log       zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		log:       log.With().Str("component", "question_handler").Logger(),
	}
}

// BulkUpload inserts a batch of questions into a course's pool.
// POST /api/v1/instructor/courses/:course_id/questions
func (h *QuestionHandler) BulkUpload(c *gin.Context) {
	courseID := c.Param("course_id")

	var req model.BulkUploadRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questions.BulkUpload(c.Request.Context(), courseID, &req)
	if err != nil {
		var uploadErr *service.UploadError
		switch {
		case errors.Is(err, service.ErrCourseNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.As(err, &uploadErr):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{fmt.Sprintf("questions[%d]", uploadErr.Index): uploadErr.Reason})
		default:
			h.log.Error().Err(err).Str("course_id", courseID).Msg("bulk upload failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"inserted": len(questions)})
}

// List returns a course's full pool, canonical answers included.
// GET /api/v1/instructor/courses/:course_id/questions
func (h *QuestionHandler) List(c *gin.Context) {
	questions, err := h.questions.ListByCourse(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("list questions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, questions)
}

// Chapters returns the distinct chapter labels of a course's pool.
// GET /api/v1/instructor/courses/:course_id/chapters
func (h *QuestionHandler) Chapters(c *gin.Context) {
	chapters, err := h.questions.Chapters(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("list chapters failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, chapters)
}

// ExportCSV streams a course's pool as a CSV download.
// GET /api/v1/instructor/courses/:course_id/questions/export
func (h *QuestionHandler) ExportCSV(c *gin.Context) {
	courseID := c.Param("course_id")
	questions, err := h.questions.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.log.Error().Err(err).Msg("export questions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-questions.csv", courseID))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "chapter", "difficulty", "type", "question", "options", "correct_answer", "marks", "case_sensitive"})
	for _, q := range questions {
		options, _ := json.Marshal(q.Options)
		_ = w.Write([]string{
			q.ID.String(),
			q.Chapter,
			string(q.Difficulty),
			string(q.QuestionType),
			q.QuestionText,
			string(options),
			string(q.CorrectAnswer),
			strconv.Itoa(q.Marks),
			strconv.FormatBool(q.CaseSensitive),
		})
	}
	w.Flush()
}

// Update edits one question.
// PATCH /api/v1/instructor/questions/:question_id
func (h *QuestionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("update question failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// MarkSanitized flags a question's answer key as reviewed.
// POST /api/v1/instructor/questions/:question_id/sanitize
func (h *QuestionHandler) MarkSanitized(c *gin.Context) {
	id, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	if err := h.questions.MarkSanitized(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("mark sanitized failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sanitized": true})
}

// Delete removes one question.
// DELETE /api/v1/instructor/questions/:question_id
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	if err := h.questions.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("delete question failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
