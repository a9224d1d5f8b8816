package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"regenai-go/internal/model"
	"regenai-go/internal/pipeline"
	"regenai-go/internal/repository"
	"regenai-go/internal/service"
	"regenai-go/pkg/database"
	"regenai-go/pkg/token"
)

// captureLLM 记录每次收到的 prompt。
type captureLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (f *captureLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return fmt.Sprintf("Plant wheat in November. (answer %d)", len(f.prompts)), nil
}

func (f *captureLLM) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type testServer struct {
	router *gin.Engine
	llm    *captureLLM
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open("sqlite://file::memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.FormResponse{}, &model.Conversation{}, &model.Message{}))
	t.Cleanup(func() { database.Close(db) })

	return buildServer(db)
}

func buildServer(db *gorm.DB) *testServer {
	jwtManager := token.NewJWTManager("test-secret", 30, 7)
	userRepo := repository.NewUserRepository(db)
	formRepo := repository.NewFormRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	llm := &captureLLM{}
	replies := pipeline.New(pipeline.Deps{
		Forms:  formRepo,
		Policy: pipeline.NeverSearch{},
		LLM:    llm,
	})

	router := NewRouter(RouterDeps{
		DB:                  db,
		JWT:                 jwtManager,
		UserService:         service.NewUserService(userRepo, repository.NewMemoryTokenBlacklist(), jwtManager),
		FormService:         service.NewFormService(formRepo),
		ConversationService: service.NewConversationService(convRepo, msgRepo, nil, nil),
		ChatService:         service.NewChatService(replies, convRepo, msgRepo, nil),
		SearchService:       service.NewSearchService(nil),
		StreamChunkSize:     8,
	})
	return &testServer{router: router, llm: llm}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// signup 注册并登录，返回 access token。
func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"first_name": "Ali", "last_name": "Khan", "email": email, "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	require.Equal(t, "bearer", tokens.TokenType)
	return tokens.AccessToken
}

func sampleForm() gin.H {
	return gin.H{
		"location": "Lahore", "area_type": "Plain", "soil_type": "Loamy", "water_source": "Canal",
		"irrigation": "Yes", "temperature": "Hot", "rainfall": "Low", "sunlight": "Long hours",
		"land_size": "5 acres", "goal": "Profit", "crop_duration": "6-12 months",
	}
}

func TestAdvisoryFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.signup(t, "ali@example.com")

	w, _ := s.do(t, http.MethodPost, "/forms/", tok, sampleForm())
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodPost, "/agent/chat", tok, gin.H{"message": "What crops should I plant?", "thread_id": "t1"})
	require.Equal(t, http.StatusOK, w.Code)
	var first struct {
		Reply    string `json:"reply"`
		ThreadID string `json:"thread_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, "t1", first.ThreadID)
	assert.NotEmpty(t, first.Reply)

	prompt := s.llm.last()
	assert.Contains(t, prompt, "Lahore")
	assert.Contains(t, prompt, "Loamy")
	assert.Contains(t, prompt, "Profit")

	w, _ = s.do(t, http.MethodPost, "/agent/chat", tok, gin.H{"message": "And how much water?", "thread_id": "t1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, s.llm.last(), "What crops should I plant?")
	assert.Contains(t, s.llm.last(), first.Reply)

	t.Run("generated thread id", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/agent/chat", tok, gin.H{"message": "Hello"})
		require.Equal(t, http.StatusOK, w.Code)
		var res struct {
			ThreadID string `json:"thread_id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.NotEmpty(t, res.ThreadID)
	})

	t.Run("blank message", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/agent/chat", tok, gin.H{"message": "   "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/auth/me", "/forms/", "/conversations"} {
		w, env := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, http.StatusUnauthorized, env.Code, path)
	}

	w, _ := s.do(t, http.MethodGet, "/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "ali@example.com")

	w, _ := s.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"first_name": "A", "last_name": "K", "email": "ALI@example.com", "password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"first_name": "A", "last_name": "K", "email": "short@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ali@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	tok := s.signup(t, "ali@example.com")

	w, env := s.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ali@example.com", me.Email)

	w, _ = s.do(t, http.MethodPost, "/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFormOwnershipAndUpdate(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "alice@example.com")
	bob := s.signup(t, "bob@example.com")

	w, env := s.do(t, http.MethodPost, "/forms/", alice, sampleForm())
	require.Equal(t, http.StatusCreated, w.Code)
	var form model.FormResponse
	require.NoError(t, json.Unmarshal(env.Data, &form))
	path := fmt.Sprintf("/forms/%d", form.ID)

	t.Run("missing required field", func(t *testing.T) {
		body := sampleForm()
		delete(body, "soil_type")
		w, _ := s.do(t, http.MethodPost, "/forms/", alice, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other user gets 404", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, path, bob, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w, _ = s.do(t, http.MethodPut, path, bob, gin.H{"location": "Multan"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		w, _ = s.do(t, http.MethodDelete, path, bob, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w, env := s.do(t, http.MethodGet, path, alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got model.FormResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "Lahore", got.Location)
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		w1, first := s.do(t, http.MethodGet, path, alice, nil)
		require.Equal(t, http.StatusOK, w1.Code)
		w2, second := s.do(t, http.MethodGet, path, alice, nil)
		require.Equal(t, http.StatusOK, w2.Code)
		assert.JSONEq(t, string(first.Data), string(second.Data))
		assert.Equal(t, w1.Body.String(), w2.Body.String())
	})

	t.Run("empty update keeps the form", func(t *testing.T) {
		_, before := s.do(t, http.MethodGet, path, alice, nil)

		w, updated := s.do(t, http.MethodPut, path, alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, string(before.Data), string(updated.Data))

		_, after := s.do(t, http.MethodGet, path, alice, nil)
		assert.Equal(t, string(before.Data), string(after.Data))

		w, _ = s.do(t, http.MethodPut, path, alice, gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		_, again := s.do(t, http.MethodGet, path, alice, nil)
		assert.Equal(t, string(before.Data), string(again.Data))
	})

	t.Run("partial update", func(t *testing.T) {
		w, env := s.do(t, http.MethodPut, path, alice, gin.H{"soil_type": "Clay"})
		require.Equal(t, http.StatusOK, w.Code)
		var got model.FormResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "Clay", got.SoilType)
		assert.Equal(t, "Lahore", got.Location)
	})

	t.Run("delete", func(t *testing.T) {
		w, _ := s.do(t, http.MethodDelete, path, alice, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		w, _ = s.do(t, http.MethodGet, path, alice, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/forms/abc", alice, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func createConversation(t *testing.T, s *testServer, tok string) model.Conversation {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/conversations", tok, gin.H{"title": "Wheat season"})
	require.Equal(t, http.StatusCreated, w.Code)
	var conv model.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	return conv
}

func TestConversationMessages(t *testing.T) {
	s := newTestServer(t)
	tok := s.signup(t, "ali@example.com")
	conv := createConversation(t, s, tok)

	w, env := s.do(t, http.MethodPost, "/messages", tok, gin.H{"conversation_id": conv.ID, "content": "Is it time to irrigate?"})
	require.Equal(t, http.StatusOK, w.Code)
	var pair []model.Message
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	require.Len(t, pair, 2)
	assert.Equal(t, model.SenderUser, pair[0].Sender)
	assert.Equal(t, model.SenderAgent, pair[1].Sender)

	w, env = s.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d", conv.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var full model.ConversationWithMessages
	require.NoError(t, json.Unmarshal(env.Data, &full))
	assert.Len(t, full.Messages, 2)

	t.Run("other user cannot post", func(t *testing.T) {
		other := s.signup(t, "bob@example.com")
		w, _ := s.do(t, http.MethodPost, "/messages", other, gin.H{"conversation_id": conv.ID, "content": "hi"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("search and export are disabled", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/messages/search?query=irrigate", tok, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d/export", conv.ID), tok, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("rename and delete", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPut, fmt.Sprintf("/conversations/%d/title", conv.ID), tok, gin.H{"title": "Irrigation"})
		require.Equal(t, http.StatusOK, w.Code)

		w, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/conversations/%d", conv.ID), tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d", conv.ID), tok, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStreamMessage(t *testing.T) {
	s := newTestServer(t)
	tok := s.signup(t, "ali@example.com")
	conv := createConversation(t, s, tok)

	w, _ := s.do(t, http.MethodPost, "/messages/stream", tok, gin.H{"conversation_id": conv.ID, "content": "Best fertilizer?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"))

	body := w.Body.String()
	start := strings.Index(body, "event:start")
	delta := strings.Index(body, "event:delta")
	end := strings.Index(body, "event:end")
	require.NotEqual(t, -1, start)
	require.NotEqual(t, -1, delta)
	require.NotEqual(t, -1, end)
	assert.Less(t, start, delta)
	assert.Less(t, delta, end)
	assert.Contains(t, body, "ai_message_id")

	w, env := s.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d", conv.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var full model.ConversationWithMessages
	require.NoError(t, json.Unmarshal(env.Data, &full))
	require.Len(t, full.Messages, 2)
	assert.Equal(t, "Plant wheat in November. (answer 1)", full.Messages[1].Content)
}

func TestStreamMessageAfterDisconnect(t *testing.T) {
	s := newTestServer(t)
	tok := s.signup(t, "ali@example.com")
	conv := createConversation(t, s, tok)

	raw, err := json.Marshal(gin.H{"conversation_id": conv.ID, "content": "Best fertilizer?"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/messages/stream", bytes.NewReader(raw)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.NotContains(t, w.Body.String(), "event:end")

	w, env := s.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d", conv.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var full model.ConversationWithMessages
	require.NoError(t, json.Unmarshal(env.Data, &full))
	require.Len(t, full.Messages, 2)
	assert.Equal(t, "Plant wheat in November. (answer 1)", full.Messages[1].Content)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", env.Message)

	w, _ = s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSplitRunes(t *testing.T) {
	assert.Nil(t, SplitRunes("", 4))
	assert.Equal(t, []string{"abcd", "ef"}, SplitRunes("abcdef", 4))
	assert.Equal(t, []string{"农场", "建议"}, SplitRunes("农场建议", 2))
}
