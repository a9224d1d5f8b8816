package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/service"
)

// SearchHandler 处理历史消息全文检索。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchMessages 处理 GET /messages/search?query=&size=。
func (h *SearchHandler) SearchMessages(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		fail(c, http.StatusBadRequest, "query is required")
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(service.DefaultSearchSize)))

	hits, err := h.searchService.SearchMessages(c.Request.Context(), currentUser(c).ID, query, size)
	if err != nil {
		failWithError(c, "SearchMessages", err)
		return
	}
	ok(c, hits)
}
