package handler

import (
	"errors"
	"net/http"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/examly/examly-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ExamHandler handles instructor exam template management.
type ExamHandler struct {
	exams *service.ExamService
	log   zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams *service.ExamService) *ExamHandler {
	return &ExamHandler{
		exams: exams,
		log:   log.With().Str("component", "exam_handler").Logger(),
	}
}

// Create registers an exam template.
// POST /api/v1/instructor/exams
func (h *ExamHandler) Create(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	meta, err := h.exams.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyExists):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyExists)
		case errors.Is(err, service.ErrCourseNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrInsufficientPool):
			response.Fail(c, http.StatusConflict, response.ErrInsufficientPool)
		default:
			h.log.Error().Err(err).Msg("create exam failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusCreated, meta)
}

// Get returns one exam template.
// GET /api/v1/instructor/exams/:exam_id
func (h *ExamHandler) Get(c *gin.Context) {
	meta, err := h.exams.Get(c.Request.Context(), c.Param("exam_id"))
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("get exam failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, meta)
}

// ListByCourse returns a course's exam templates.
// GET /api/v1/instructor/courses/:course_id/exams
func (h *ExamHandler) ListByCourse(c *gin.Context) {
	exams, err := h.exams.ListByCourse(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("list exams failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, exams)
}

// SetActiveRequest toggles whether students can join.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive activates or deactivates an exam.
// PATCH /api/v1/instructor/exams/:exam_id/active
func (h *ExamHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.exams.SetActive(c.Request.Context(), c.Param("exam_id"), *req.Active); err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("set exam active failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active": *req.Active})
}
