package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"regenai-go/internal/config"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "<unset>", mask(""))
	assert.Equal(t, "****", mask("abc"))
	assert.Equal(t, "sk-1****", mask("sk-1234567"))
}

func TestPrintConfigReport(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = "8000"
	cfg.LLM.Provider = "gemini"
	cfg.LLM.APIKey = "gemini-secret"
	cfg.Redis.Addr = "localhost:6379"

	var buf bytes.Buffer
	printConfigReport(&buf, cfg)
	out := buf.String()

	assert.Contains(t, out, "key=gemi****")
	assert.NotContains(t, out, "gemini-secret")
	assert.Contains(t, out, "redis:         enabled (localhost:6379)")
	assert.Contains(t, out, "kafka:         disabled")
}
