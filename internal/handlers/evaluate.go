package handlers

import (
	"errors"

	"github.com/acme/supportlens/internal/services"
	"github.com/acme/supportlens/pkg/response"
	"github.com/gin-gonic/gin"
)

// EvaluateHandler exposes automated response evaluation.
type EvaluateHandler struct {
	evaluator *services.EvaluatorService
}

func NewEvaluateHandler(evaluator *services.EvaluatorService) *EvaluateHandler {
	return &EvaluateHandler{evaluator: evaluator}
}

type evaluateRequest struct {
	Response string `json:"response" binding:"required"`
	Context  string `json:"context" binding:"required"`
}

// Factuality scores whether a response is supported by its context.
func (h *EvaluateHandler) Factuality(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.evaluator.EvaluateFactuality(c.Request.Context(), req.Response, req.Context)
	if err != nil {
		if errors.Is(err, services.ErrPromptNotFound) {
			response.NotFound(c, "evaluator prompt not found")
			return
		}
		response.ServerError(c, "evaluation failed: "+err.Error())
		return
	}

	response.Success(c, result)
}
