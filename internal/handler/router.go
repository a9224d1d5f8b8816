package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"regenai-go/internal/middleware"
	"regenai-go/internal/service"
	"regenai-go/pkg/token"
)

// RouterDeps 汇总了注册路由所需的服务。
type RouterDeps struct {
	DB                  *gorm.DB
	JWT                 *token.JWTManager
	UserService         service.UserService
	FormService         service.FormService
	ConversationService service.ConversationService
	ChatService         service.ChatService
	SearchService       service.SearchService
	CORSOrigins         []string
	StreamChunkSize     int
	StreamChunkDelay    time.Duration
}

// NewRouter 创建路由引擎并注册全部路由。
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(d.CORSOrigins))

	health := NewHealthHandler(d.DB)
	users := NewUserHandler(d.UserService)
	forms := NewFormHandler(d.FormService)
	agent := NewAgentHandler(d.ChatService)
	chat := NewChatHandler(d.ChatService, d.UserService, d.JWT, d.StreamChunkSize)
	convs := NewConversationHandler(d.ConversationService)
	msgs := NewMessageHandler(d.ChatService, d.StreamChunkSize, d.StreamChunkDelay)
	search := NewSearchHandler(d.SearchService)

	authRequired := middleware.AuthMiddleware(d.JWT, d.UserService)

	r.GET("/", health.Root)
	r.GET("/health", health.Health)

	auth := r.Group("/auth")
	{
		// 无需认证的路由
		auth.POST("/register", users.Register)
		auth.POST("/login", users.Login)
		auth.POST("/refresh", users.RefreshToken)

		// 需要认证的路由
		auth.POST("/logout", authRequired, users.Logout)
		auth.GET("/me", authRequired, users.Me)
	}

	formGroup := r.Group("/forms", authRequired)
	{
		formGroup.POST("/", forms.Create)
		formGroup.GET("/", forms.List)
		formGroup.GET("/:id", forms.Get)
		formGroup.PUT("/:id", forms.Update)
		formGroup.DELETE("/:id", forms.Delete)
	}

	agentGroup := r.Group("/agent")
	{
		agentGroup.POST("/chat", authRequired, agent.Chat)
		// WebSocket 无法携带 Authorization 头，token 放在路径中
		agentGroup.GET("/ws/:token", chat.Handle)
	}

	convGroup := r.Group("/conversations", authRequired)
	{
		convGroup.POST("", convs.Create)
		convGroup.GET("", convs.List)
		convGroup.GET("/:id", convs.Get)
		convGroup.PUT("/:id/title", convs.UpdateTitle)
		convGroup.DELETE("/:id", convs.Delete)
		convGroup.GET("/:id/export", convs.Export)
	}

	msgGroup := r.Group("/messages", authRequired)
	{
		msgGroup.POST("", msgs.Send)
		msgGroup.POST("/stream", msgs.Stream)
		msgGroup.GET("/search", search.SearchMessages)
	}

	return r
}
