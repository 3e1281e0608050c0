package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGINS", "AI_PROVIDER", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_MAX_OUTPUT_TOKENS",
		"ASSISTANT_TRIGGER_LATENCY", "ASSISTANT_COOLDOWN", "ASSISTANT_PROMPT_TIMEOUT",
		"ASSISTANT_REPLY_TIMEOUT", "ASSISTANT_SESSION_TTL", "REDIS_URL", "REDIS_EVENTS_CHANNEL",
		"LOG_LEVEL", "LOG_FORMAT", "WS_MESSAGES_PER_SECOND", "WS_BURST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderOffline, cfg.AI.Provider)
	assert.Equal(t, AssistantConfig{
		TriggerLatency: time.Second,
		Cooldown:       15 * time.Second,
		PromptTimeout:  10 * time.Second,
		ReplyTimeout:   60 * time.Second,
		SessionTTL:     30 * time.Minute,
	}, cfg.Assistant)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "emolearn:assistant:events", cfg.Redis.Channel)
	assert.Equal(t, LogConfig{Level: "info", Format: "text"}, cfg.Log)
	assert.Equal(t, WebSocketConfig{MessagesPerSecond: 20, Burst: 40}, cfg.WebSocket)
}

func TestProviderSelection(t *testing.T) {
	t.Run("ark credentials win", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARK_API_KEY", "ark-key")
		t.Setenv("Model", "doubao")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ProviderArk, cfg.AI.Provider)
	})

	t.Run("openai when only openai key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("OPENAI_BASE_URL", "https://api.groq.com/openai/v1")
		t.Setenv("OPENAI_MAX_OUTPUT_TOKENS", "300")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
		assert.Equal(t, "https://api.groq.com/openai/v1", cfg.AI.OpenAI.BaseURL)
		assert.Equal(t, int64(300), cfg.AI.OpenAI.MaxOutputTokens)
	})

	t.Run("explicit provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AI_PROVIDER", " Offline ")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ProviderOffline, cfg.AI.Provider)
	})

	t.Run("unknown provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AI_PROVIDER", "bard")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestAssistantDurations(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_TRIGGER_LATENCY", "1500ms")
	t.Setenv("ASSISTANT_COOLDOWN", "20")
	t.Setenv("ASSISTANT_REPLY_TIMEOUT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Assistant.TriggerLatency)
	assert.Equal(t, 20*time.Second, cfg.Assistant.Cooldown)
	assert.Equal(t, time.Duration(0), cfg.Assistant.ReplyTimeout)
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                     "80 80",
		"ASSISTANT_COOLDOWN":       "soon",
		"ASSISTANT_PROMPT_TIMEOUT": "-1s",
		"WS_BURST":                 "0",
		"WS_MESSAGES_PER_SECOND":   "fast",
		"OPENAI_MAX_OUTPUT_TOKENS": "many",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestServerAddrPassthrough(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.dev, ,https://b.dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.Server.AllowedOrigins)
}
