package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"regenai-go/internal/model"
	"regenai-go/internal/repository"
	"regenai-go/pkg/llm"
	"regenai-go/pkg/log"
	"regenai-go/pkg/market"
	"regenai-go/pkg/weather"
	"regenai-go/pkg/websearch"
)

const (
	// MaxSearchResults 是单次搜索保留的结果数。
	MaxSearchResults = 3
	// MaxHistoryTurns 是线程记忆保留的消息数（3 轮问答）。
	MaxHistoryTurns = 6
	// PromptExchanges 是写入提示词的最近问答轮数。
	PromptExchanges = 3
	// errorDetailLimit 是致歉回复中附带的错误信息长度上限。
	errorDetailLimit = 100
)

// 模型调用失败时的回复。
const (
	ApologyPrefix = "I apologize, but I'm having trouble processing your request. Error: "
	EmptyReply    = "I'm here to help, but I couldn't generate a response."
)

// ErrEmptyMessage 表示请求中没有可处理的消息。
var ErrEmptyMessage = errors.New("message must not be empty")

// FormReader 提供用户最新的土地档案，没有档案时返回 nil, nil。
type FormReader interface {
	GetLatestForUser(userID uint) (*model.FormResponse, error)
}

// Deps 是构造 Pipeline 所需的依赖。Policy、Threads 为空时使用默认实现。
type Deps struct {
	Forms    FormReader
	Weather  weather.Provider
	Market   market.Provider
	Searcher websearch.Searcher
	Policy   SearchPolicy
	LLM      llm.Client
	Threads  repository.ThreadRepository
}

// Pipeline 顺序执行三个阶段并维护线程记忆。可被多个请求并发使用。
type Pipeline struct {
	forms    FormReader
	weather  weather.Provider
	market   market.Provider
	searcher websearch.Searcher
	policy   SearchPolicy
	llm      llm.Client
	threads  repository.ThreadRepository
	now      func() time.Time
}

// New 创建一个 Pipeline。
func New(d Deps) *Pipeline {
	p := &Pipeline{
		forms:    d.Forms,
		weather:  d.Weather,
		market:   d.Market,
		searcher: d.Searcher,
		policy:   d.Policy,
		llm:      d.LLM,
		threads:  d.Threads,
		now:      time.Now,
	}
	if p.policy == nil {
		p.policy = NewKeywordPolicy()
	}
	if p.threads == nil {
		p.threads = repository.NewMemoryThreadRepository()
	}
	if p.weather == nil {
		p.weather = weather.Stub{}
	}
	if p.market == nil {
		p.market = market.NewStub()
	}
	return p
}

// Run 执行一次完整的流水线。除空消息外，任何阶段的失败都降级为安全默认值，不返回 error。
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return Result{}, ErrEmptyMessage
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = uuid.NewString()
	}

	st := &State{UserID: req.UserID, ThreadID: threadID, Message: msg}

	history, err := p.threads.GetHistory(ctx, threadID)
	if err != nil {
		log.Warnf("[Pipeline] 读取线程记忆失败, thread: %s, error: %v", threadID, err)
		history = nil
	}
	st.History = history

	p.decideSearch(ctx, st)
	p.enrich(ctx, st)
	p.generate(ctx, st)

	if err := p.threads.SaveHistory(ctx, threadID, st.History); err != nil {
		log.Warnf("[Pipeline] 保存线程记忆失败, thread: %s, error: %v", threadID, err)
	}

	return Result{
		Reply:    st.Reply,
		ThreadID: threadID,
		History:  st.History,
		Context:  st.Context,
	}, nil
}

// decideSearch 是第一阶段：命中策略时恰好调用一次搜索，否则结果为空。
func (p *Pipeline) decideSearch(ctx context.Context, st *State) {
	st.Context.Search = model.SearchOutcome{Results: []model.SearchHit{}}
	if p.searcher == nil || !p.policy.ShouldSearch(st.Message) {
		return
	}

	query := p.policy.Query(st.Message)
	out := p.searcher.Search(ctx, query, MaxSearchResults)
	if out.Results == nil {
		out.Results = []model.SearchHit{}
	}
	if len(out.Results) > MaxSearchResults {
		out.Results = out.Results[:MaxSearchResults]
	}
	if !out.Success {
		log.Warnf("[Pipeline] 联网搜索失败, query: %s, error: %s", query, out.Error)
	}
	st.Context.Search = out
}

// enrich 是第二阶段：读取最新档案并查询天气与市场，失败时对应部分留空。
func (p *Pipeline) enrich(ctx context.Context, st *State) {
	if p.forms != nil {
		form, err := p.forms.GetLatestForUser(st.UserID)
		if err != nil {
			log.Warnf("[Pipeline] 读取最新档案失败, userID: %d, error: %v", st.UserID, err)
		} else {
			st.Form = form
		}
	}

	wc, err := p.weather.Fetch(ctx, st.Form)
	if err != nil {
		log.Warnf("[Pipeline] 获取天气上下文失败, userID: %d, error: %v", st.UserID, err)
		wc = model.WeatherContext{}
	}
	st.Context.Weather = wc

	mc, err := p.market.Fetch(ctx, st.Form)
	if err != nil {
		log.Warnf("[Pipeline] 获取市场上下文失败, userID: %d, error: %v", st.UserID, err)
		mc = model.MarketContext{}
	}
	st.Context.Market = mc
}

// generate 是第三阶段：拼装提示词，调用一次模型，并更新线程记忆。
func (p *Pipeline) generate(ctx context.Context, st *State) {
	st.Prompt = BuildPrompt(st.Form, st.Context, st.History, st.Message, PromptExchanges)

	reply, err := p.callLLM(ctx, st.Prompt)
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		log.Warnf("[Pipeline] 模型返回空内容, thread: %s", st.ThreadID)
		reply = EmptyReply
	case err != nil:
		log.Errorf("[Pipeline] 调用模型失败, thread: %s, error: %v", st.ThreadID, err)
		reply = ApologyPrefix + truncate(err.Error(), errorDetailLimit)
	}
	st.Reply = reply

	now := p.now()
	st.History = append(st.History,
		model.ChatTurn{Role: model.RoleUser, Content: st.Message, Timestamp: now},
		model.ChatTurn{Role: model.RoleAssistant, Content: reply, Timestamp: now},
	)
	st.History = tail(st.History, MaxHistoryTurns)
}

func (p *Pipeline) callLLM(ctx context.Context, prompt string) (string, error) {
	if p.llm == nil {
		return "", errors.New("llm client not configured")
	}
	return p.llm.Generate(ctx, prompt)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
