package handlers

import (
	"errors"

	"github.com/acme/supportlens/internal/services"
	"github.com/acme/supportlens/pkg/response"
	"github.com/acme/supportlens/pkg/template"
	"github.com/gin-gonic/gin"
)

// ChatHandler exposes the chat completion endpoint.
type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat generates a response to a customer question.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req services.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.chatService.Generate(c.Request.Context(), &req)
	if err != nil {
		var missing *template.MissingParamError
		switch {
		case errors.Is(err, services.ErrPromptNotFound):
			response.NotFound(c, "prompt not found")
		case errors.As(err, &missing):
			response.BadRequest(c, err.Error())
		default:
			response.ServerError(c, "chat generation failed: "+err.Error())
		}
		return
	}

	response.Success(c, result)
}
