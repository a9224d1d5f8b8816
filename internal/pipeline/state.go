// Package pipeline 实现回复流水线：联网搜索判定、上下文补全、生成回复三个阶段顺序执行。
package pipeline

import (
	"regenai-go/internal/model"
)

// Request 是一次对话请求。ThreadID 为空时由流水线生成。
type Request struct {
	UserID   uint
	ThreadID string
	Message  string
}

// Result 是流水线的输出。
type Result struct {
	Reply    string
	ThreadID string
	// History 是本轮结束后保存的线程记忆。
	History []model.ChatTurn
	Context model.AdvisoryContext
}

// State 是单次请求内在各阶段之间传递的状态，不落库。
type State struct {
	UserID   uint
	ThreadID string
	Form     *model.FormResponse
	Message  string
	Context  model.AdvisoryContext
	History  []model.ChatTurn
	Prompt   string
	Reply    string
}
