package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examly/examly-backend/internal/middleware"
	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/examly/examly-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StudentHandler handles the student-facing attempt endpoints. The student
// identity always comes from the token, never from the request body or URL,
// so a student can only ever touch their own attempt.
type StudentHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(attempts *service.AttemptService) *StudentHandler {
	return &StudentHandler{
		attempts: attempts,
		log:      log.With().Str("component", "student_handler").Logger(),
	}
}

func studentProfile(c *gin.Context) service.StudentProfile {
	claims := middleware.GetClaims(c)
	return service.StudentProfile{
		ID:         claims.Subject,
		Name:       claims.StudentName,
		Email:      claims.StudentEmail,
		DeviceType: c.GetHeader("X-Device-Type"),
	}
}

// JoinExam starts a new attempt or resumes the existing one.
// POST /api/v1/student/exams/:exam_id/join
func (h *StudentHandler) JoinExam(c *gin.Context) {
	examID := c.Param("exam_id")
	student := studentProfile(c)

	attempt, created, err := h.attempts.StartOrResume(c.Request.Context(), examID, student)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamInactive):
			response.Fail(c, http.StatusForbidden, response.ErrExamInactive)
		case errors.Is(err, service.ErrInsufficientPool):
			response.Fail(c, http.StatusConflict, response.ErrInsufficientPool)
		default:
			h.log.Error().Err(err).Str("exam_id", examID).Msg("join failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, attempt)
}

// GetAttempt returns the student's attempt for an exam, whatever its state.
// GET /api/v1/student/exams/:exam_id/attempt
func (h *StudentHandler) GetAttempt(c *gin.Context) {
	examID := c.Param("exam_id")
	student := studentProfile(c)

	attempt, err := h.attempts.Get(c.Request.Context(), examID, student.ID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("exam_id", examID).Msg("load attempt failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, attempt)
}

// RecordAnswer saves one answer at a question index.
// PUT /api/v1/student/exams/:exam_id/answers/:index
func (h *StudentHandler) RecordAnswer(c *gin.Context) {
	examID := c.Param("exam_id")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := studentProfile(c)
	if err := h.attempts.RecordAnswer(c.Request.Context(), examID, student.ID, index, req.Value); err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrQuestionIndex), errors.Is(err, service.ErrInvalidAnswer):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		default:
			h.log.Error().Err(err).Str("exam_id", examID).Msg("record answer failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// SubmitAttempt finalizes the attempt manually, subject to the
// early-submission lock.
// POST /api/v1/student/exams/:exam_id/submit
func (h *StudentHandler) SubmitAttempt(c *gin.Context) {
	examID := c.Param("exam_id")
	student := studentProfile(c)

	attempt, err := h.attempts.Finalize(c.Request.Context(), examID, student.ID, model.SubmissionManual)
	if err != nil {
		var locked *service.SubmitLockedError
		switch {
		case errors.As(err, &locked):
			response.FailWithFields(c, http.StatusForbidden, response.ErrSubmitLocked,
				map[string]string{"unlock_in_seconds": strconv.FormatInt(locked.UnlockInSeconds, 10)})
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			h.log.Error().Err(err).Str("exam_id", examID).Msg("submit failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, attempt)
}

// SubmitFeedback records post-exam feedback on a submitted attempt.
// POST /api/v1/student/exams/:exam_id/feedback
func (h *StudentHandler) SubmitFeedback(c *gin.Context) {
	examID := c.Param("exam_id")

	var req model.FeedbackRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := studentProfile(c)
	if err := h.attempts.SubmitFeedback(c.Request.Context(), examID, student.ID, &req); err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotSubmitted):
			response.Fail(c, http.StatusConflict, response.ErrInvalidPayload)
		default:
			h.log.Error().Err(err).Str("exam_id", examID).Msg("feedback failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}
