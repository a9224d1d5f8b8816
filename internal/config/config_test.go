package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
}

func TestLoad_FromEnvironment(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite://file::memory:", cfg.Database.URL)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 80, cfg.Server.StreamChunkSize)
	assert.Equal(t, 50, cfg.Server.StreamChunkDelayMs)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_NeonURLPreferred(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NEON_DATABASE_URL", "postgres://neon/db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://neon/db", cfg.Database.URL)
}

func TestLoad_OpenAIProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "openai-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, DefaultOpenAIModel, cfg.LLM.Model)

	t.Run("explicit model kept", func(t *testing.T) {
		t.Setenv("LLM_MODEL", "gpt-4.1")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	})
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "Database.URL")
	assert.Contains(t, cfgErr.Error(), "LLM.APIKey")
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("server:\n  port: \"9090\"\n  stream_chunk_size: 40\nredis:\n  addr: \"localhost:6379\"\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 40, cfg.Server.StreamChunkSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_DebugSwitchesLogging(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}
