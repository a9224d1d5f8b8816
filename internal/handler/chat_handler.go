package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"regenai-go/internal/service"
	"regenai-go/pkg/log"
	"regenai-go/pkg/token"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理 WebSocket 聊天连接。
type ChatHandler struct {
	chatService service.ChatService
	userService service.UserService
	jwtManager  *token.JWTManager
	chunkSize   int
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, userService service.UserService, jwtManager *token.JWTManager, chunkSize int) *ChatHandler {
	if chunkSize <= 0 {
		chunkSize = 80
	}
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
		jwtManager:  jwtManager,
		chunkSize:   chunkSize,
	}
}

// wsRequest 是客户端发送的 JSON 帧；非 JSON 的文本帧整体视为 message。
type wsRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

func parseWSFrame(frame []byte) wsRequest {
	var req wsRequest
	trimmed := strings.TrimSpace(string(frame))
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &req) == nil {
		return req
	}
	return wsRequest{Message: trimmed}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// Handle 处理一个传入的 WebSocket 连接。每个文本帧运行一次流水线，
// 回复以 {"chunk": ...} 分块下发，最后发送 completion 帧。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyTokenOfType(tokenString, token.TypeAccess)
	if err != nil || h.userService.IsTokenRevoked(c.Request.Context(), tokenString) {
		fail(c, http.StatusUnauthorized, "无效的 token")
		return
	}

	user, err := h.userService.GetProfile(claims.UserID)
	if err != nil || !user.IsActive {
		fail(c, http.StatusUnauthorized, "用户不存在或已停用")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，userID: %d", user.ID)

	// 同一连接上未指定 thread_id 时沿用上一轮的线程
	threadID := ""
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		req := parseWSFrame(frame)
		if strings.TrimSpace(req.Message) == "" {
			_ = writeJSON(conn, gin.H{"error": "message must not be empty"})
			continue
		}
		if req.ThreadID != "" {
			threadID = req.ThreadID
		}

		res, err := h.chatService.Chat(c.Request.Context(), user.ID, threadID, req.Message)
		if err != nil {
			log.Errorf("处理 WebSocket 对话失败: %v", err)
			_ = writeJSON(conn, gin.H{"error": "AI服务暂时不可用，请稍后重试"})
			continue
		}
		threadID = res.ThreadID

		for _, chunk := range SplitRunes(res.Reply, h.chunkSize) {
			if err := writeJSON(conn, gin.H{"chunk": chunk}); err != nil {
				log.Warnf("写入 WebSocket 失败: %v", err)
				return
			}
		}
		if err := writeJSON(conn, gin.H{
			"type":      "completion",
			"status":    "finished",
			"thread_id": threadID,
			"timestamp": time.Now().UnixMilli(),
		}); err != nil {
			return
		}
	}
}
