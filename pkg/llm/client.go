// Package llm provides clients for the hosted large language models used to write advisory replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyResponse 表示模型调用成功但没有返回任何文本。
var ErrEmptyResponse = errors.New("llm returned empty response")

// Client defines the interface for an LLM client.
// 一次请求只调用一次模型，返回完整文本，不做 provider 侧流式输出。
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config 描述创建客户端所需的参数，由 internal/config 的 LLMConfig 映射而来。
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required for provider %q", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return newGeminiClient(ctx, cfg)
	case "openai":
		return newOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
