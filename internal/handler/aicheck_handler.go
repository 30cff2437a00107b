package handler

import (
	"net/http"

	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/examly/examly-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AICheckRequest is a batch of question/answer pairs to cross-check.
type AICheckRequest struct {
	Items []service.AICheckItem `json:"items" binding:"required,min=1,max=25,dive"`
}

// AICheckHandler exposes the answer cross-check oracle to instructors.
type AICheckHandler struct {
	checker *service.AICheckService
	log     zerolog.Logger
}

// NewAICheckHandler creates a new AICheckHandler.
func NewAICheckHandler(checker *service.AICheckService) *AICheckHandler {
	return &AICheckHandler{
		checker: checker,
		log:     log.With().Str("component", "aicheck_handler").Logger(),
	}
}

// CheckAnswers has the model independently solve each question and report
// agreement with the instructor's answer.
// POST /api/v1/instructor/ai/check-answers
func (h *AICheckHandler) CheckAnswers(c *gin.Context) {
	var req AICheckRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	results, err := h.checker.CheckAnswers(c.Request.Context(), req.Items)
	if err != nil {
		h.log.Error().Err(err).Int("items", len(req.Items)).Msg("answer check failed")
		response.Fail(c, http.StatusBadGateway, response.ErrAIUnavailable)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}
