package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchNotConfigured(t *testing.T) {
	out := NewClient("", "http://unused", time.Second).Search(context.Background(), "wheat price", 3)
	assert.False(t, out.Success)
	assert.Equal(t, ErrMsgNotConfigured, out.Error)
	assert.Empty(t, out.Results)
}

func TestSearchSuccess(t *testing.T) {
	long := strings.Repeat("é", 400)
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		results := make([]string, 0, 5)
		for i := 0; i < 5; i++ {
			results = append(results, fmt.Sprintf(`{"title":"t%d","url":"https://example.com/%d","content":"%s"}`, i, i, long))
		}
		_, _ = fmt.Fprintf(w, `{"answer":"Wheat is up 3%%.","results":[%s]}`, strings.Join(results, ","))
	}))
	defer srv.Close()

	out := NewClient("tv-key", srv.URL, 5*time.Second).Search(context.Background(), "wheat price agriculture farming update", 3)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, "tv-key", got.APIKey)
	assert.Equal(t, 3, got.MaxResults)
	assert.True(t, got.IncludeAnswer)

	assert.Equal(t, "Wheat is up 3%.", out.Answer)
	require.Len(t, out.Results, 3)
	assert.Equal(t, "https://example.com/0", out.Results[0].URL)
	assert.Len(t, []rune(out.Results[0].Snippet), SnippetLimit)
	assert.True(t, out.HasResults())
}

func TestSearchHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	out := NewClient("bad", srv.URL, time.Second).Search(context.Background(), "q", 3)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "401")
	assert.False(t, out.HasResults())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}
