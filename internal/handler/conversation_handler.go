package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/service"
)

// ConversationHandler 处理对话的增删改查与导出。
type ConversationHandler struct {
	conversationService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// CreateConversationRequest 是创建对话的请求体。
type CreateConversationRequest struct {
	Title            string `json:"title"`
	ConversationType string `json:"conversation_type"`
}

// UpdateTitleRequest 是修改对话标题的请求体。
type UpdateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req CreateConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	conv, err := h.conversationService.Create(currentUser(c).ID, req.Title, req.ConversationType)
	if err != nil {
		failWithError(c, "CreateConversation", err)
		return
	}
	respond(c, http.StatusCreated, "success", conv)
}

// List 返回当前用户的对话列表。
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversationService.List(currentUser(c).ID)
	if err != nil {
		failWithError(c, "ListConversations", err)
		return
	}
	ok(c, convs)
}

// Get 返回对话及其全部消息。
func (h *ConversationHandler) Get(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	conv, err := h.conversationService.Get(currentUser(c).ID, id)
	if err != nil {
		failWithError(c, "GetConversation", err)
		return
	}
	ok(c, conv)
}

func (h *ConversationHandler) UpdateTitle(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request payload: title is required")
		return
	}
	conv, err := h.conversationService.UpdateTitle(currentUser(c).ID, id, req.Title)
	if err != nil {
		failWithError(c, "UpdateConversationTitle", err)
		return
	}
	ok(c, conv)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.conversationService.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		failWithError(c, "DeleteConversation", err)
		return
	}
	respond(c, http.StatusOK, "Conversation deleted", nil)
}

// Export 导出对话并返回临时下载地址。
func (h *ConversationHandler) Export(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	url, err := h.conversationService.Export(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		failWithError(c, "ExportConversation", err)
		return
	}
	ok(c, gin.H{"url": url, "expires_in": int(service.ExportURLExpiry.Seconds())})
}
