package pipeline

import "strings"

// SearchPolicy 决定一条消息是否需要联网搜索，以及搜索用的查询串。
type SearchPolicy interface {
	ShouldSearch(message string) bool
	Query(message string) string
}

// DefaultKeywords 命中任一关键词（不区分大小写）即触发搜索。
var DefaultKeywords = []string{
	"current", "latest", "today", "price", "prices", "rate", "news",
	"2025", "2026", "weather forecast", "forecast",
}

// DefaultQuerySuffix 追加在用户消息之后，把搜索引导到农业资讯。
const DefaultQuerySuffix = " agriculture farming update"

// KeywordPolicy 是基于关键词子串匹配的 SearchPolicy。
type KeywordPolicy struct {
	Keywords []string
	Suffix   string
}

// NewKeywordPolicy 返回使用默认关键词和后缀的策略。
func NewKeywordPolicy() *KeywordPolicy {
	return &KeywordPolicy{Keywords: DefaultKeywords, Suffix: DefaultQuerySuffix}
}

// ShouldSearch 实现 SearchPolicy。
func (p *KeywordPolicy) ShouldSearch(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range p.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Query 实现 SearchPolicy。
func (p *KeywordPolicy) Query(message string) string {
	return message + p.Suffix
}

// NeverSearch 从不触发搜索。
type NeverSearch struct{}

func (NeverSearch) ShouldSearch(string) bool { return false }
func (NeverSearch) Query(m string) string    { return m }
