package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Translator providers.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Translator TranslatorConfig
	Chat       ChatConfig
	Auth       AuthConfig
	Telemetry  TelemetryConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	translator, err := loadTranslatorConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	telemetry, err := loadTelemetryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Translator: translator, Chat: chat, Auth: auth, Telemetry: telemetry}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// TranslatorConfig 选择翻译后端。
type TranslatorConfig struct {
	Provider string
	Ark      ArkConfig
	OpenAI   OpenAIConfig
}

// Enabled 表示所选后端是否提供了必需的密钥。
func (c TranslatorConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.Enabled()
	default:
		return c.Ark.Enabled()
	}
}

// ArkConfig 描述方舟大模型相关配置。
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
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

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// OpenAIConfig 描述 OpenAI 兼容接口配置。
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
}

// Enabled 表示是否提供了 API Key。
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// ChatConfig 控制新会话的默认值。
type ChatConfig struct {
	SourceLang    string
	TargetLang    string
	BotReplyDelay time.Duration
	NodeID        int64
}

// AuthConfig 描述本地账号服务配置。
type AuthConfig struct {
	DBPath                 string
	LoginAttemptsPerMinute int
	SessionTTL             time.Duration
}

// TelemetryConfig 描述日志与 OpenTelemetry 配置。
type TelemetryConfig struct {
	Enabled  bool
	LogDir   string
	LogLevel slog.Level
}

func loadTranslatorConfig() (TranslatorConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("TRANSLATOR_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderOpenAI {
		return TranslatorConfig{}, fmt.Errorf("invalid TRANSLATOR_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return TranslatorConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return TranslatorConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return TranslatorConfig{}, err
	}

	openaiTemperature, err := parseOptionalFloatEnv("OPENAI_TEMPERATURE")
	if err != nil {
		return TranslatorConfig{}, err
	}

	return TranslatorConfig{
		Provider: provider,
		Ark: ArkConfig{
			APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:       strings.TrimSpace(os.Getenv("Model")),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
		},
		OpenAI: OpenAIConfig{
			APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:     strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
			Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: openaiTemperature,
		},
	}, nil
}

func loadChatConfig() (ChatConfig, error) {
	delay, err := parseDurationEnv("CHAT_BOT_REPLY_DELAY", time.Second)
	if err != nil {
		return ChatConfig{}, err
	}
	if delay < 0 {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_BOT_REPLY_DELAY value %q: must not be negative", delay)
	}

	nodeID := int64(1)
	if override, err := parseOptionalIntEnv("SNOWFLAKE_NODE_ID"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		nodeID = int64(*override)
	}

	return ChatConfig{
		SourceLang:    getEnvOrDefault("CHAT_SOURCE_LANG", "English"),
		TargetLang:    getEnvOrDefault("CHAT_TARGET_LANG", "Hindi"),
		BotReplyDelay: delay,
		NodeID:        nodeID,
	}, nil
}

func loadAuthConfig() (AuthConfig, error) {
	attempts := 10
	if override, err := parseOptionalIntEnv("AUTH_LOGIN_RATE"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < 1 {
			attempts = 1
		} else {
			attempts = *override
		}
	}

	ttl, err := parseDurationEnv("AUTH_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}
	if ttl <= 0 {
		return AuthConfig{}, fmt.Errorf("invalid AUTH_SESSION_TTL value %q: must be positive", ttl)
	}

	return AuthConfig{
		DBPath:                 getEnvOrDefault("AUTH_DB_PATH", "lingualink.db"),
		LoginAttemptsPerMinute: attempts,
		SessionTTL:             ttl,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	enabled, err := parseBoolEnv("TELEMETRY_ENABLED", false)
	if err != nil {
		return TelemetryConfig{}, err
	}

	var level slog.Level
	raw := getEnvOrDefault("LOG_LEVEL", "info")
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return TelemetryConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
	}

	return TelemetryConfig{
		Enabled:  enabled,
		LogDir:   getEnvOrDefault("LOG_DIR", "logs"),
		LogLevel: level,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
