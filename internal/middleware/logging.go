package middleware

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"regenai-go/pkg/log"
)

// 请求/响应体在日志中保留的最大长度。
const maxLoggedBody = 2048

var sensitiveField = regexp.MustCompile(`("(?:password|access_token|accessToken|refresh_token|refreshToken|token)"\s*:\s*)"(?:[^"\\]|\\.)*"`)

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if w.body.Len() < maxLoggedBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// RedactBody 隐去请求/响应体中的密码与各类 token，并截断过长的内容。
func RedactBody(body string) string {
	body = sensitiveField.ReplaceAllString(body, `$1"***"`)
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody] + "...(truncated)"
	}
	return body
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。事件流响应不记录响应体。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// 读取并重新缓存请求体
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		responseBody := blw.body.String()
		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			responseBody = "(event stream)"
		}

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", RedactBody(string(requestBody)),
			"responseBody", RedactBody(responseBody),
		)
	}
}
