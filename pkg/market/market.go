// Package market 提供与种植目标相关的市场需求趋势。
package market

import (
	"context"
	"strings"

	"regenai-go/internal/model"
)

// DefaultGoal 是档案未填写目标时使用的值。
const DefaultGoal = "Profit"

// Provider 根据档案返回市场概况。
type Provider interface {
	Fetch(ctx context.Context, form *model.FormResponse) (model.MarketContext, error)
}

// Stub 返回固定的区域需求趋势。
type Stub struct {
	Trends []string
}

// DefaultTrends 是 Stub 未指定 Trends 时使用的趋势列表。
var DefaultTrends = []string{
	"Wheat demand steady in regional mills",
	"Pulses prices rising in nearby wholesale markets",
}

// NewStub 创建使用默认趋势的 Stub。
func NewStub() *Stub {
	return &Stub{Trends: DefaultTrends}
}

// Fetch 实现 Provider。
func (s *Stub) Fetch(_ context.Context, form *model.FormResponse) (model.MarketContext, error) {
	goal := DefaultGoal
	if form != nil && strings.TrimSpace(form.Goal) != "" {
		goal = strings.TrimSpace(form.Goal)
	}
	trends := s.Trends
	if trends == nil {
		trends = DefaultTrends
	}
	out := make([]string, len(trends))
	copy(out, trends)
	return model.MarketContext{Goal: goal, DemandTrends: out}, nil
}
