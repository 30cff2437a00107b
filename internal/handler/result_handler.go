package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/examly/examly-backend/internal/repository"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ResultHandler handles instructor result review and attempt administration.
type ResultHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(attempts *service.AttemptService) *ResultHandler {
	return &ResultHandler{
		attempts: attempts,
		log:      log.With().Str("component", "result_handler").Logger(),
	}
}

// List returns the result rows of every attempt under an exam.
// GET /api/v1/instructor/exams/:exam_id/attempts
func (h *ResultHandler) List(c *gin.Context) {
	rows, err := h.attempts.ListByExam(c.Request.Context(), c.Param("exam_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("list attempts failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// Detail returns one student's full attempt, answers and per-question
// results included.
// GET /api/v1/instructor/exams/:exam_id/attempts/:student_id
func (h *ResultHandler) Detail(c *gin.Context) {
	attempt, err := h.attempts.Get(c.Request.Context(), c.Param("exam_id"), c.Param("student_id"))
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("load attempt failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, attempt)
}

// ExportCSV streams an exam's results as a CSV download.
// GET /api/v1/instructor/exams/:exam_id/attempts/export
func (h *ResultHandler) ExportCSV(c *gin.Context) {
	examID := c.Param("exam_id")
	rows, err := h.attempts.ListByExam(c.Request.Context(), examID)
	if err != nil {
		h.log.Error().Err(err).Msg("export attempts failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-results.csv", examID))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"student_id", "name", "email", "status", "submission_type",
		"started_at", "submitted_at", "score", "max_score", "correct", "wrong", "unanswered"})
	for _, r := range rows {
		_ = w.Write(resultCSVRow(&r))
	}
	w.Flush()
}

func resultCSVRow(r *repository.AttemptSummary) []string {
	subType := ""
	if r.SubmissionType != nil {
		subType = string(*r.SubmissionType)
	}
	submittedAt := ""
	if r.SubmittedAt != nil {
		submittedAt = formatMs(*r.SubmittedAt)
	}
	score, maxScore := "", ""
	if r.Score != nil {
		score = strconv.Itoa(*r.Score)
	}
	if r.MaxScore != nil {
		maxScore = strconv.Itoa(*r.MaxScore)
	}
	correct, wrong, unanswered := "", "", ""
	if r.ResultSummary != nil {
		correct = strconv.Itoa(r.ResultSummary.Correct)
		wrong = strconv.Itoa(r.ResultSummary.Wrong)
		unanswered = strconv.Itoa(r.ResultSummary.Unanswered)
	}
	return []string{
		r.StudentID, r.StudentName, r.StudentEmail, string(r.Status), subType,
		formatMs(r.StartedAt), submittedAt, score, maxScore, correct, wrong, unanswered,
	}
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// Close force-submits every in-progress attempt under an exam.
// POST /api/v1/instructor/exams/:exam_id/close
func (h *ResultHandler) Close(c *gin.Context) {
	closed, err := h.attempts.BulkClose(c.Request.Context(), c.Param("exam_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("close exam failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"closed": closed})
}

// Delete removes one student's attempt so they can rejoin fresh.
// DELETE /api/v1/instructor/exams/:exam_id/attempts/:student_id
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.attempts.Delete(c.Request.Context(), c.Param("exam_id"), c.Param("student_id")); err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("delete attempt failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
