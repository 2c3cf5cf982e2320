package handlers

import (
	"errors"
	"strconv"

	"github.com/acme/supportlens/internal/services"
	"github.com/acme/supportlens/pkg/response"
	"github.com/gin-gonic/gin"
)

// FeedbackHandler exposes feedback submission, manual flagging, and the
// metrics endpoint over the interaction ledger.
type FeedbackHandler struct {
	ledgerService *services.LedgerService
}

func NewFeedbackHandler(ledgerService *services.LedgerService) *FeedbackHandler {
	return &FeedbackHandler{ledgerService: ledgerService}
}

type feedbackRequest struct {
	InteractionID uint     `json:"interaction_id" binding:"required"`
	Rating        int      `json:"rating" binding:"required"`
	Comment       string   `json:"comment"`
	Categories    []string `json:"categories"`
}

// Submit records feedback for an interaction. Ratings at or below 2 also
// flag the interaction for review.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		response.BadRequest(c, "rating must be between 1 and 5")
		return
	}

	feedbackID, err := h.ledgerService.RecordFeedback(req.InteractionID, req.Rating, req.Comment, req.Categories)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			response.BadRequest(c, err.Error())
		case errors.Is(err, services.ErrInteractionNotFound):
			response.NotFound(c, "interaction not found")
		default:
			response.ServerError(c, "failed to record feedback: "+err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"feedback_id": feedbackID,
		"message":     "Feedback recorded successfully",
	})
}

type flagRequest struct {
	FlagType   string `json:"flag_type" binding:"required"`
	FlagReason string `json:"flag_reason"`
}

// Flag marks an interaction for human review.
func (h *FeedbackHandler) Flag(c *gin.Context) {
	interactionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid interaction id")
		return
	}

	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	flagID, err := h.ledgerService.FlagInteraction(uint(interactionID), req.FlagType, req.FlagReason)
	if err != nil {
		if errors.Is(err, services.ErrInteractionNotFound) {
			response.NotFound(c, "interaction not found")
			return
		}
		response.ServerError(c, "failed to flag interaction: "+err.Error())
		return
	}

	response.Success(c, gin.H{"flag_id": flagID})
}

// Metrics returns summary metrics for recent interactions. The window is
// 1 to 30 days, defaulting to 7.
func (h *FeedbackHandler) Metrics(c *gin.Context) {
	days := 7
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil {
			response.BadRequest(c, "days must be an integer")
			return
		}
		days = parsed
	}
	if days < 1 || days > 30 {
		response.BadRequest(c, "days must be between 1 and 30")
		return
	}

	metrics, err := h.ledgerService.GetMetrics(days)
	if err != nil {
		response.ServerError(c, "failed to compute metrics: "+err.Error())
		return
	}

	response.Success(c, metrics)
}
