package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regenai-go/internal/model"
	"regenai-go/pkg/llm"
	"regenai-go/pkg/market"
	"regenai-go/pkg/weather"
)

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return fmt.Sprintf("reply #%d", len(f.prompts)), nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

type fakeSearcher struct {
	queries []string
	out     model.SearchOutcome
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) model.SearchOutcome {
	f.queries = append(f.queries, query)
	out := f.out
	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}
	return out
}

type fakeForms struct {
	form *model.FormResponse
	err  error
}

func (f fakeForms) GetLatestForUser(uint) (*model.FormResponse, error) { return f.form, f.err }

type failingWeather struct{}

func (failingWeather) Fetch(context.Context, *model.FormResponse) (model.WeatherContext, error) {
	return model.WeatherContext{}, errors.New("weather api down")
}

type failingMarket struct{}

func (failingMarket) Fetch(context.Context, *model.FormResponse) (model.MarketContext, error) {
	return model.MarketContext{}, errors.New("market api down")
}

func lahoreForm() *model.FormResponse {
	crop := "Wheat"
	return &model.FormResponse{
		ID: 1, UserID: 1, Location: "Lahore", SoilType: "Loamy", Goal: "Profit",
		WaterSource: "Canal", CropDuration: "6-12 months", SpecificCrop: &crop,
	}
}

func TestKeywordPolicy(t *testing.T) {
	p := NewKeywordPolicy()
	tests := []struct {
		msg  string
		want bool
	}{
		{"What is the current wheat price?", true},
		{"Any NEWS about cotton?", true},
		{"Plans for 2025", true},
		{"Weather Forecast for Lahore", true},
		{"What crops should I plant?", false},
		{"How do I improve loamy soil?", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldSearch(tt.msg))
		})
	}
	assert.Equal(t, "rice prices agriculture farming update", p.Query("rice prices"))
}

func TestDecideSearch(t *testing.T) {
	t.Run("no keyword issues no search", func(t *testing.T) {
		s := &fakeSearcher{}
		p := New(Deps{Searcher: s, LLM: &fakeLLM{}})
		res, err := p.Run(context.Background(), Request{UserID: 1, Message: "What crops should I plant?"})
		require.NoError(t, err)
		assert.Empty(t, s.queries)
		assert.NotNil(t, res.Context.Search.Results)
		assert.Empty(t, res.Context.Search.Results)
	})

	t.Run("keyword issues exactly one search with suffix", func(t *testing.T) {
		hits := make([]model.SearchHit, 5)
		for i := range hits {
			hits[i] = model.SearchHit{Title: fmt.Sprintf("t%d", i), URL: fmt.Sprintf("https://news.example/%d", i), Snippet: "wheat up"}
		}
		s := &fakeSearcher{out: model.SearchOutcome{Success: true, Answer: "Wheat is 4000/maund", Results: hits}}
		l := &fakeLLM{}
		p := New(Deps{Searcher: s, LLM: l})

		res, err := p.Run(context.Background(), Request{UserID: 1, Message: "latest wheat price"})
		require.NoError(t, err)
		require.Len(t, s.queries, 1)
		assert.Equal(t, "latest wheat price"+DefaultQuerySuffix, s.queries[0])
		assert.Len(t, res.Context.Search.Results, MaxSearchResults)

		prompt := l.lastPrompt()
		assert.Contains(t, prompt, "Web search results:")
		assert.Contains(t, prompt, "https://news.example/2")
		assert.NotContains(t, prompt, "https://news.example/3")
		assert.Contains(t, prompt, "IMPORTANT:")
	})

	t.Run("failed search leaves prompt without search block", func(t *testing.T) {
		s := &fakeSearcher{out: model.SearchOutcome{Success: false, Error: "boom"}}
		l := &fakeLLM{}
		p := New(Deps{Searcher: s, LLM: l})
		_, err := p.Run(context.Background(), Request{UserID: 1, Message: "today's news"})
		require.NoError(t, err)
		assert.Len(t, s.queries, 1)
		assert.NotContains(t, l.lastPrompt(), "Web search results:")
	})
}

func TestEnrichFallback(t *testing.T) {
	t.Run("provider failures give empty context", func(t *testing.T) {
		p := New(Deps{Forms: fakeForms{form: lahoreForm()}, Weather: failingWeather{}, Market: failingMarket{}, LLM: &fakeLLM{}})
		res, err := p.Run(context.Background(), Request{UserID: 1, Message: "hello"})
		require.NoError(t, err)
		assert.True(t, res.Context.Weather.IsEmpty())
		assert.True(t, res.Context.Market.IsEmpty())
		assert.NotEmpty(t, res.Reply)
	})

	t.Run("form read failure is tolerated", func(t *testing.T) {
		l := &fakeLLM{}
		p := New(Deps{Forms: fakeForms{err: errors.New("db gone")}, LLM: l})
		_, err := p.Run(context.Background(), Request{UserID: 1, Message: "hello"})
		require.NoError(t, err)
		assert.Contains(t, l.lastPrompt(), "Farm profile: not provided yet")
	})

	t.Run("stub providers fill both keys", func(t *testing.T) {
		p := New(Deps{Forms: fakeForms{form: lahoreForm()}, Weather: weather.Stub{}, Market: market.NewStub(), LLM: &fakeLLM{}})
		res, err := p.Run(context.Background(), Request{UserID: 1, Message: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "Lahore", res.Context.Weather.Location)
		assert.Equal(t, weather.SeasonalOutlook, res.Context.Weather.Summary)
		assert.Equal(t, "Profit", res.Context.Market.Goal)
		assert.NotEmpty(t, res.Context.Market.DemandTrends)
	})
}

func TestPromptContents(t *testing.T) {
	l := &fakeLLM{}
	p := New(Deps{Forms: fakeForms{form: lahoreForm()}, LLM: l})
	_, err := p.Run(context.Background(), Request{UserID: 1, Message: "What crops should I plant?"})
	require.NoError(t, err)

	prompt := l.lastPrompt()
	assert.True(t, strings.HasPrefix(prompt, Persona))
	assert.Contains(t, prompt, "- Location: Lahore")
	assert.Contains(t, prompt, "- Soil type: Loamy")
	assert.Contains(t, prompt, "- Specific crop: Wheat")
	assert.NotContains(t, prompt, "Area type", "empty fields are skipped")
	assert.NotContains(t, prompt, "Fertilizer preference")
	assert.Contains(t, prompt, "Seasonal outlook")
	assert.Contains(t, prompt, "Wheat demand steady")
	assert.True(t, strings.HasSuffix(prompt, "User: What crops should I plant?\nAssistant:"))
}

func TestPromptWeatherWithoutSummary(t *testing.T) {
	ac := model.AdvisoryContext{Weather: model.WeatherContext{Location: "Lahore"}}
	prompt := BuildPrompt(nil, ac, nil, "hi", 3)
	assert.NotContains(t, prompt, "- Weather (Lahore):")
	assert.NotContains(t, prompt, "Context:")

	ac.Weather.AirQuality = "AQI 160"
	prompt = BuildPrompt(nil, ac, nil, "hi", 3)
	assert.NotContains(t, prompt, "- Weather")
	assert.Contains(t, prompt, "- Air quality: AQI 160")

	ac.Weather.Summary = "Clear, 21C"
	prompt = BuildPrompt(nil, ac, nil, "hi", 3)
	assert.Contains(t, prompt, "- Weather (Lahore): Clear, 21C\n")
}

func TestRollingHistory(t *testing.T) {
	l := &fakeLLM{}
	p := New(Deps{LLM: l})
	ctx := context.Background()

	for n := 1; n <= 5; n++ {
		res, err := p.Run(ctx, Request{UserID: 1, ThreadID: "thread-1", Message: fmt.Sprintf("question %d", n)})
		require.NoError(t, err)

		want := 2 * n
		if want > MaxHistoryTurns {
			want = MaxHistoryTurns
		}
		require.Len(t, res.History, want, "after %d turns", n)
		for i := 0; i < len(res.History); i += 2 {
			assert.Equal(t, model.RoleUser, res.History[i].Role)
			assert.Equal(t, model.RoleAssistant, res.History[i+1].Role)
		}
		assert.Equal(t, fmt.Sprintf("question %d", n), res.History[len(res.History)-2].Content)
	}

	prompt := l.lastPrompt()
	assert.NotContains(t, prompt, "question 1\n")
	assert.Contains(t, prompt, "User: question 2\n")
	assert.Contains(t, prompt, "User: question 4\nAssistant: reply #4\n")
}

func TestThreadIsolationAndGeneration(t *testing.T) {
	l := &fakeLLM{}
	p := New(Deps{LLM: l})
	ctx := context.Background()

	res, err := p.Run(ctx, Request{UserID: 1, Message: "What crops should I plant?"})
	require.NoError(t, err)
	require.NotEmpty(t, res.ThreadID)

	_, err = p.Run(ctx, Request{UserID: 1, ThreadID: res.ThreadID, Message: "What about irrigation?"})
	require.NoError(t, err)
	assert.Contains(t, l.lastPrompt(), "User: What crops should I plant?")

	_, err = p.Run(ctx, Request{UserID: 1, ThreadID: "another", Message: "Hi"})
	require.NoError(t, err)
	assert.NotContains(t, l.lastPrompt(), "What crops should I plant?")
}

func TestGenerateFailure(t *testing.T) {
	t.Run("provider error becomes apology", func(t *testing.T) {
		long := strings.Repeat("x", 250)
		p := New(Deps{LLM: &fakeLLM{err: errors.New(long)}})
		res, err := p.Run(context.Background(), Request{UserID: 1, Message: "hello"})
		require.NoError(t, err)
		assert.Equal(t, ApologyPrefix+strings.Repeat("x", 100), res.Reply)
		require.Len(t, res.History, 2)
		assert.Equal(t, res.Reply, res.History[1].Content)
	})

	t.Run("empty response", func(t *testing.T) {
		p := New(Deps{LLM: &fakeLLM{err: llm.ErrEmptyResponse}})
		res, err := p.Run(context.Background(), Request{UserID: 1, Message: "hello"})
		require.NoError(t, err)
		assert.Equal(t, EmptyReply, res.Reply)
	})

	t.Run("empty message", func(t *testing.T) {
		p := New(Deps{LLM: &fakeLLM{}})
		_, err := p.Run(context.Background(), Request{UserID: 1, Message: "   "})
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})
}
