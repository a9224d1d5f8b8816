package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/service"
	"regenai-go/pkg/log"
)

// MessageHandler 处理对话内发送消息，包括 SSE 流式版本。
type MessageHandler struct {
	chatService service.ChatService
	chunkSize   int
	chunkDelay  time.Duration
}

// NewMessageHandler 创建一个新的 MessageHandler。chunkSize 按字符计。
func NewMessageHandler(chatService service.ChatService, chunkSize int, chunkDelay time.Duration) *MessageHandler {
	if chunkSize <= 0 {
		chunkSize = 80
	}
	return &MessageHandler{chatService: chatService, chunkSize: chunkSize, chunkDelay: chunkDelay}
}

// SendMessageRequest 是发送消息的请求体。
type SendMessageRequest struct {
	ConversationID uint   `json:"conversation_id" binding:"required"`
	Content        string `json:"content" binding:"required"`
}

func bindMessage(c *gin.Context) (SendMessageRequest, bool) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request payload: conversation_id and content are required")
		return req, false
	}
	if strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, "content must not be empty")
		return req, false
	}
	return req, true
}

// Send 保存用户消息，生成回复并保存，返回 [用户消息, 回复消息]。
func (h *MessageHandler) Send(c *gin.Context) {
	req, valid := bindMessage(c)
	if !valid {
		return
	}
	userMsg, agentMsg, err := h.chatService.Send(c.Request.Context(), currentUser(c).ID, req.ConversationID, req.Content)
	if err != nil {
		failWithError(c, "SendMessage", err)
		return
	}
	ok(c, []interface{}{userMsg, agentMsg})
}

// Stream 以 SSE 返回回复：start、若干 delta、end。
// 回复在流水线中已完整生成，这里只是分块下发。
func (h *MessageHandler) Stream(c *gin.Context) {
	req, valid := bindMessage(c)
	if !valid {
		return
	}
	user := currentUser(c)
	ctx := c.Request.Context()

	userMsg, err := h.chatService.SaveUserMessage(ctx, user.ID, req.ConversationID, req.Content)
	if err != nil {
		failWithError(c, "StreamMessage", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("start", gin.H{"user_message_id": userMsg.ID, "conversation_id": req.ConversationID})
	c.Writer.Flush()

	reply := h.chatService.GenerateReply(ctx, user.ID, req.ConversationID, req.Content)

	disconnected := false
	for _, chunk := range SplitRunes(reply, h.chunkSize) {
		if ctx.Err() != nil {
			disconnected = true
			break
		}
		c.SSEvent("delta", gin.H{"text": chunk})
		c.Writer.Flush()
		if h.chunkDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(h.chunkDelay):
			}
		}
	}

	// 客户端断开后仍保存完整回复
	agentMsg, err := h.chatService.SaveAgentMessage(context.WithoutCancel(ctx), user.ID, req.ConversationID, reply)
	if err != nil {
		log.Errorf("StreamMessage: 保存回复失败, conversationID: %d, error: %v", req.ConversationID, err)
		if !disconnected {
			c.SSEvent("error", gin.H{"message": "failed to save reply"})
			c.Writer.Flush()
		}
		return
	}
	if disconnected {
		log.Infof("StreamMessage: 客户端已断开, conversationID: %d, 回复已保存, messageID: %d", req.ConversationID, agentMsg.ID)
		return
	}
	c.SSEvent("end", gin.H{"ai_message_id": agentMsg.ID, "conversation_id": req.ConversationID})
	c.Writer.Flush()
}

// SplitRunes 把文本按字符数切块，不会切断多字节字符。
func SplitRunes(s string, size int) []string {
	r := []rune(s)
	if len(r) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(r)+size-1)/size)
	for start := 0; start < len(r); start += size {
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		chunks = append(chunks, string(r[start:end]))
	}
	return chunks
}
