// Package websearch 封装带 API Key 的联网搜索服务（Tavily 兼容接口）。
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"regenai-go/internal/model"
)

// SnippetLimit 是单条结果摘要保留的最大字符数。
const SnippetLimit = 300

// ErrMsgNotConfigured 是未配置 API Key 时返回的失败原因。
const ErrMsgNotConfigured = "search API key not configured"

// Searcher 执行一次联网搜索。实现不返回 error：任何失败都体现在 Success=false 的结果里。
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) model.SearchOutcome
}

// Client 调用 Tavily 的 POST /search。
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient 创建搜索客户端。apiKey 为空时仍可使用，每次调用返回失败结果。
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
	SearchDepth   string `json:"search_depth"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search 实现 Searcher。
func (c *Client) Search(ctx context.Context, query string, maxResults int) model.SearchOutcome {
	out := model.SearchOutcome{Query: query, Results: []model.SearchHit{}}
	if c == nil || c.apiKey == "" {
		out.Error = ErrMsgNotConfigured
		return out
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	body, err := json.Marshal(searchRequest{
		APIKey:        c.apiKey,
		Query:         query,
		MaxResults:    maxResults,
		IncludeAnswer: true,
		SearchDepth:   "basic",
	})
	if err != nil {
		out.Error = fmt.Sprintf("marshal search request: %v", err)
		return out
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		out.Error = fmt.Sprintf("create search request: %v", err)
		return out
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		out.Error = fmt.Sprintf("call search api: %v", err)
		return out
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		out.Error = fmt.Sprintf("search api returned status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		return out
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		out.Error = fmt.Sprintf("decode search response: %v", err)
		return out
	}

	out.Success = true
	out.Answer = parsed.Answer
	for _, r := range parsed.Results {
		if len(out.Results) >= maxResults {
			break
		}
		out.Results = append(out.Results, model.SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: Truncate(r.Content, SnippetLimit),
		})
	}
	return out
}

// Truncate 按字符（rune）截断字符串。
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
