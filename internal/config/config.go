package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Assistant AssistantConfig
	Redis     RedisConfig
	Log       LogConfig
	WebSocket WebSocketConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	ws, err := loadWebSocketConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Assistant: assistant,
		Redis:     loadRedisConfig(),
		Log:       loadLogConfig(),
		WebSocket: ws,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string // 为空表示允许任意来源
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := parseListEnv("ALLOWED_ORIGINS")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// Provider 选择回复获取的后端。
type Provider string

const (
	ProviderArk     Provider = "ark"
	ProviderOpenAI  Provider = "openai"
	ProviderOffline Provider = "offline"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider Provider

	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int

	OpenAI OpenAIConfig
}

// OpenAIConfig 描述 OpenAI 兼容接口（OpenAI、Groq 等）。
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int64
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// Enabled 表示 OpenAI 兼容接口是否可用。
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	maxOutput := int64(1024)
	if override, err := parseOptionalIntEnv("OPENAI_MAX_OUTPUT_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		maxOutput = int64(*override)
	}

	cfg := AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		OpenAI: OpenAIConfig{
			APIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:         strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
			Model:           getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			MaxOutputTokens: maxOutput,
		},
	}

	provider, err := parseProvider(os.Getenv("AI_PROVIDER"), cfg)
	if err != nil {
		return AIConfig{}, err
	}
	cfg.Provider = provider
	return cfg, nil
}

// parseProvider 未显式指定时按可用凭证选择：Ark 优先，其次 OpenAI，最后离线。
func parseProvider(raw string, cfg AIConfig) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderArk:
		return ProviderArk, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderOffline:
		return ProviderOffline, nil
	case "":
		switch {
		case cfg.Enabled():
			return ProviderArk, nil
		case cfg.OpenAI.Enabled():
			return ProviderOpenAI, nil
		default:
			return ProviderOffline, nil
		}
	default:
		return "", fmt.Errorf("invalid AI_PROVIDER value %q", raw)
	}
}

// AssistantConfig 描述编排器的时间窗口与会话回收。
type AssistantConfig struct {
	TriggerLatency time.Duration
	Cooldown       time.Duration
	PromptTimeout  time.Duration
	ReplyTimeout   time.Duration
	SessionTTL     time.Duration
}

func loadAssistantConfig() (AssistantConfig, error) {
	latency, err := parseDurationEnv("ASSISTANT_TRIGGER_LATENCY", time.Second)
	if err != nil {
		return AssistantConfig{}, err
	}

	cooldown, err := parseDurationEnv("ASSISTANT_COOLDOWN", 15*time.Second)
	if err != nil {
		return AssistantConfig{}, err
	}

	promptTimeout, err := parseDurationEnv("ASSISTANT_PROMPT_TIMEOUT", 10*time.Second)
	if err != nil {
		return AssistantConfig{}, err
	}

	replyTimeout, err := parseDurationEnv("ASSISTANT_REPLY_TIMEOUT", 60*time.Second)
	if err != nil {
		return AssistantConfig{}, err
	}

	ttl, err := parseDurationEnv("ASSISTANT_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return AssistantConfig{}, err
	}

	for key, value := range map[string]time.Duration{
		"ASSISTANT_TRIGGER_LATENCY": latency,
		"ASSISTANT_COOLDOWN":        cooldown,
		"ASSISTANT_PROMPT_TIMEOUT":  promptTimeout,
		"ASSISTANT_SESSION_TTL":     ttl,
	} {
		if value <= 0 {
			return AssistantConfig{}, fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}
	if replyTimeout < 0 {
		return AssistantConfig{}, fmt.Errorf("ASSISTANT_REPLY_TIMEOUT must not be negative, got %s", replyTimeout)
	}

	return AssistantConfig{
		TriggerLatency: latency,
		Cooldown:       cooldown,
		PromptTimeout:  promptTimeout,
		ReplyTimeout:   replyTimeout,
		SessionTTL:     ttl,
	}, nil
}

// RedisConfig 描述事件发布所用的 Redis。URL 为空时不发布。
type RedisConfig struct {
	URL     string
	Channel string
}

// Enabled 表示是否配置了 Redis。
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		Channel: getEnvOrDefault("REDIS_EVENTS_CHANNEL", "emolearn:assistant:events"),
	}
}

// LogConfig 描述日志级别与格式。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
	}
}

// WebSocketConfig 描述入站帧限流。
type WebSocketConfig struct {
	MessagesPerSecond float64
	Burst             int
}

func loadWebSocketConfig() (WebSocketConfig, error) {
	cfg := WebSocketConfig{MessagesPerSecond: 20, Burst: 40}

	rate, err := parseOptionalFloatEnv("WS_MESSAGES_PER_SECOND")
	if err != nil {
		return WebSocketConfig{}, err
	}
	if rate != nil {
		if *rate <= 0 {
			return WebSocketConfig{}, fmt.Errorf("WS_MESSAGES_PER_SECOND must be positive, got %v", *rate)
		}
		cfg.MessagesPerSecond = *rate
	}

	burst, err := parseOptionalIntEnv("WS_BURST")
	if err != nil {
		return WebSocketConfig{}, err
	}
	if burst != nil {
		if *burst < 1 {
			return WebSocketConfig{}, fmt.Errorf("WS_BURST must be at least 1, got %d", *burst)
		}
		cfg.Burst = *burst
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string) []string {
	var values []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	return values
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDurationEnv 接受 Go 时长字符串（"1500ms"、"15s"），纯数字按秒处理。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
