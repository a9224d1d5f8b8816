package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/middleware"
	"regenai-go/internal/service"
	"regenai-go/pkg/log"
)

// UserHandler 负责处理注册、登录与当前用户相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest 定义了用户注册 API 的请求体结构。
type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,max=50"`
	LastName  string `json:"last_name" binding:"required,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}

// Register 处理用户注册请求。
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.userService.Register(req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		failWithError(c, "Register", err)
		return
	}

	respond(c, http.StatusCreated, "User registered successfully", user)
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request payload: email and password are required")
		return
	}

	accessToken, refreshToken, err := h.userService.Login(req.Email, req.Password)
	if err != nil {
		log.Warnf("Login: failed for '%s', error: %v", req.Email, err)
		failWithError(c, "Login", err)
		return
	}

	ok(c, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
	})
}

// RefreshTokenRequest 定义了刷新 token API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 处理刷新 token 的请求。
func (h *UserHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request payload: refresh_token is required")
		return
	}

	access, refresh, err := h.userService.RefreshToken(req.RefreshToken)
	if err != nil {
		failWithError(c, "RefreshToken", err)
		return
	}
	ok(c, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	})
}

// Me 返回当前登录用户。
func (h *UserHandler) Me(c *gin.Context) {
	ok(c, currentUser(c))
}

// Logout 处理用户登出请求。
func (h *UserHandler) Logout(c *gin.Context) {
	tokenString := c.GetString(middleware.ContextTokenKey)
	if err := h.userService.Logout(c.Request.Context(), tokenString); err != nil {
		failWithError(c, "Logout", err)
		return
	}
	respond(c, http.StatusOK, "Logged out successfully", nil)
}
