package handler

import (
	"net/http"

	"convolab/internal/services"
	"convolab/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service *services.ChatService
}

func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Ask relays the prompt. Relay failures still answer 200 with the fallback text.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req httpdto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c)
		return
	}

	answer := h.service.Ask(c.Request.Context(), *req.Prompt, req.Model)
	c.JSON(http.StatusOK, httpdto.AskResponse{Answer: answer})
}
