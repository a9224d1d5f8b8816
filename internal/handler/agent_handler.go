package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/pipeline"
	"regenai-go/internal/service"
)

// AgentHandler 提供不落库的线程对话接口。
type AgentHandler struct {
	chatService service.ChatService
}

// NewAgentHandler 创建一个新的 AgentHandler 实例。
func NewAgentHandler(chatService service.ChatService) *AgentHandler {
	return &AgentHandler{chatService: chatService}
}

// AgentChatRequest 是 /agent/chat 的请求体。thread_id 为空时服务端生成。
type AgentChatRequest struct {
	Message  string `json:"message" binding:"required"`
	ThreadID string `json:"thread_id"`
}

// Chat 运行一次回复流水线并返回回复与线程 ID。
func (h *AgentHandler) Chat(c *gin.Context) {
	var req AgentChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request payload: message is required")
		return
	}

	res, err := h.chatService.Chat(c.Request.Context(), currentUser(c).ID, req.ThreadID, req.Message)
	if errors.Is(err, pipeline.ErrEmptyMessage) {
		fail(c, http.StatusBadRequest, "message must not be empty")
		return
	}
	if err != nil {
		failWithError(c, "AgentChat", err)
		return
	}
	ok(c, gin.H{"reply": res.Reply, "thread_id": res.ThreadID})
}
