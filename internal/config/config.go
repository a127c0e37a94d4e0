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
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"

	DefaultDirectLineEndpoint = "https://directline.botframework.com/v3/directline"
	DefaultGeminiModel        = "gemini-2.5-flash-preview-09-2025"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig `validate:"required"`
	Log    LogConfig
	Relay  RelayConfig
	AI     AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: server,
		Log: LogConfig{
			Level: strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
			File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
		},
		Relay: relay,
		AI:    ai,
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, oops.In("config").Wrapf(err, "failed to validate config")
	}

	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr         string `validate:"required"`
	StaticDir    string `validate:"required"`
	ReplyCatalog string
	// DebugRoutes 打开 /debug/transcript，会暴露用户消息，仅用于排查问题。
	DebugRoutes bool
}

// LogConfig controls the slog handlers installed at startup.
type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	File  string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	debugRoutes, err := parseBoolEnv("DEBUG_ROUTES", false)
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		StaticDir:    getEnvOrDefault("STATIC_DIR", "public"),
		ReplyCatalog: strings.TrimSpace(os.Getenv("REPLY_CATALOG")),
		DebugRoutes:  debugRoutes,
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3000" 或 "127.0.0.1:3000"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// RelayConfig describes the Direct Line relay service.
type RelayConfig struct {
	Secret       string
	Endpoint     string        `validate:"required,url"`
	UserID       string        `validate:"required"`
	InitialDelay time.Duration `validate:"gte=0"`
	PollInterval time.Duration `validate:"gt=0"`
	PollAttempts int           `validate:"min=1"`
	Stream       bool
	HTTPTimeout  time.Duration `validate:"gt=0"`
	// RepliesAfterPost 为 true 时只取本次发送之后的机器人消息。
	RepliesAfterPost bool
}

// Enabled 表示是否提供了 Direct Line 密钥。
func (c RelayConfig) Enabled() bool {
	return c.Secret != ""
}

func loadRelayConfig() (RelayConfig, error) {
	initialDelay, err := parseDurationEnv("RELAY_INITIAL_DELAY", 500*time.Millisecond)
	if err != nil {
		return RelayConfig{}, err
	}

	interval, err := parseDurationEnv("RELAY_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return RelayConfig{}, err
	}

	attempts := 6
	if override, err := parseOptionalIntEnv("RELAY_POLL_ATTEMPTS"); err != nil {
		return RelayConfig{}, err
	} else if override != nil {
		attempts = *override
	}

	stream, err := parseBoolEnv("RELAY_STREAM", false)
	if err != nil {
		return RelayConfig{}, err
	}

	timeout, err := parseDurationEnv("RELAY_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return RelayConfig{}, err
	}

	afterPost, err := parseBoolEnv("RELAY_REPLIES_AFTER_POST", false)
	if err != nil {
		return RelayConfig{}, err
	}

	return RelayConfig{
		Secret:       strings.TrimSpace(os.Getenv("DIRECT_LINE_SECRET")),
		Endpoint:     strings.TrimRight(getEnvOrDefault("DIRECT_LINE_ENDPOINT", DefaultDirectLineEndpoint), "/"),
		UserID:       getEnvOrDefault("DIRECT_LINE_USER_ID", "user"),
		InitialDelay: initialDelay,
		PollInterval: interval,
		PollAttempts: attempts,
		Stream:       stream,
		HTTPTimeout:  timeout,

		RepliesAfterPost: afterPost,
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider     string `validate:"oneof=gemini ark"`
	GeminiAPIKey string
	GeminiModel  string `validate:"required"`
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
}

// Enabled 表示当前 provider 所需的密钥是否齐全。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return c.GeminiAPIKey != ""
	}
}

// ModelName returns the model selector used by the active provider.
func (c AIConfig) ModelName() string {
	if c.Provider == ProviderArk {
		return c.Model
	}
	return c.GeminiModel
}

// NewArkChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	return AIConfig{
		Provider:     strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini)),
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", DefaultGeminiModel),
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
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

// parseDurationEnv 接受 "1500ms"、"2s" 等格式，纯数字按毫秒处理。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
