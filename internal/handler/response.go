// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/middleware"
	"regenai-go/internal/model"
	"regenai-go/internal/service"
	"regenai-go/pkg/log"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": data})
}

func ok(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "success", data)
}

func fail(c *gin.Context, status int, message string) {
	respond(c, status, message, nil)
}

// failWithError 把业务层错误映射为 HTTP 状态码。
func failWithError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrUserExists):
		fail(c, http.StatusConflict, "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, service.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, service.ErrInactiveUser):
		fail(c, http.StatusForbidden, "Inactive user")
	case errors.Is(err, service.ErrFeatureDisabled):
		fail(c, http.StatusServiceUnavailable, "This feature is not configured on the server")
	default:
		log.Errorf("%s: %v", op, err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// paramID 解析路径中的数字 ID；非法 ID 按不存在处理。
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusNotFound, "Not found")
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) *model.User {
	return middleware.CurrentUser(c)
}
