// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/model"
	"regenai-go/internal/service"
	"regenai-go/pkg/token"
)

// ContextUserKey 是 gin 上下文中保存当前用户的 key。
const ContextUserKey = "user"

// ContextTokenKey 是 gin 上下文中保存原始 access token 的 key。
const ContextTokenKey = "token"

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": message, "data": nil})
}

// BearerToken 从 Authorization 请求头中提取 token。
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	return tok, tok != ""
}

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并将完整的 User 对象存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			unauthorized(c, "请求未包含授权头")
			return
		}
		tokenString, ok := BearerToken(c)
		if !ok {
			unauthorized(c, "无效的授权头格式")
			return
		}

		claims, err := jwtManager.VerifyTokenOfType(tokenString, token.TypeAccess)
		if err != nil {
			unauthorized(c, "无效或已过期的 token")
			return
		}
		if userService.IsTokenRevoked(c.Request.Context(), tokenString) {
			unauthorized(c, "token 已注销")
			return
		}

		// 使用 claims 中的用户 ID 从数据库获取完整的用户信息
		user, err := userService.GetProfile(claims.UserID)
		if err != nil {
			unauthorized(c, "用户不存在")
			return
		}
		if !user.IsActive {
			unauthorized(c, "用户已停用")
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, tokenString)
		c.Next()
	}
}

// CurrentUser 返回 AuthMiddleware 写入的用户。
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
