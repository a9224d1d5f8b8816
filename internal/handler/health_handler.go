package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler 提供存活与就绪检查。
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler 创建一个新的 HealthHandler。
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Root 返回服务说明。
func (h *HealthHandler) Root(c *gin.Context) {
	ok(c, gin.H{"service": "ReGenAI farm advisory API"})
}

// Health 检查数据库连接。
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	respond(c, code, status, gin.H{"status": status})
}
