package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQuery(t *testing.T) {
	q := BuildSearchQuery(9, "irrigation", 5)
	raw, err := json.Marshal(q)
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, `"size":5`)
	assert.Contains(t, s, `"user_id":9`)
	assert.Contains(t, s, `"query":"irrigation"`)
}

// fakeES 模拟最小的 Elasticsearch 接口。
func fakeES(t *testing.T, indexExists bool) (*httptest.Server, *[]string) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead:
			if indexExists {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPut && r.URL.Path == "/farm_messages":
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		case strings.HasPrefix(r.URL.Path, "/farm_messages/_doc/"):
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"content":"wheat needs water"`)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case r.URL.Path == "/farm_messages/_search":
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_score":1.5,"_source":{"message_id":3,"conversation_id":2,"user_id":9,"sender":"user","content":"wheat needs water"},"highlight":{"content":["<em>wheat</em> needs water"]}}]}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	return srv, &calls
}

func TestClientIndexAndSearch(t *testing.T) {
	srv, calls := fakeES(t, false)
	defer srv.Close()

	c, err := NewClient(Options{Addresses: srv.URL, IndexName: "farm_messages"})
	require.NoError(t, err)
	assert.Contains(t, *calls, "PUT /farm_messages")

	require.NoError(t, c.IndexMessage(context.Background(), MessageDocument{MessageID: 3, ConversationID: 2, UserID: 9, Sender: "user", Content: "wheat needs water"}))

	hits, err := c.SearchMessages(context.Background(), 9, "wheat", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(3), hits[0].MessageID)
	assert.InDelta(t, 1.5, hits[0].Score, 1e-9)
	assert.Equal(t, []string{"<em>wheat</em> needs water"}, hits[0].Highlight)
}
