package conf

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration
type Config struct {
	// Model configuration (optional; without a key every classification fails)
	LLM LLMConfig

	// Dashboard configuration
	Dashboard DashboardConfig

	// HTTP configuration
	Server ServerConfig

	// Relay file configuration (loaded from YAML)
	Relay *RelayConfig

	// Log configuration
	Log LogConfig

	// Debug mode
	Debug bool
}

// LLMConfig contains the OpenAI-compatible endpoint configuration
type LLMConfig struct {
	APIKey     string
	BaseURL    string // empty means the OpenAI default
	Model      string
	TimeoutSec int
}

// DashboardConfig contains controller timing and defaults
type DashboardConfig struct {
	TickInterval time.Duration
	ConnectDelay time.Duration
	DefaultTopic string
	OperatorName string
	FeedLimit    int
}

// ServerConfig contains HTTP configuration
type ServerConfig struct {
	Addr   string
	APIURL string // used by `relay mcp` to reach a running dashboard
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

const (
	defaultModel        = "gpt-4o-mini"
	defaultAddr         = "127.0.0.1:9876"
	defaultTickMs       = 4000
	defaultConnectMs    = 1500
	defaultTimeoutSec   = 30
	defaultFeedLimit    = 200
	defaultOperatorName = "Operator"
)

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load relay file configuration from YAML
	relayConfigPath := os.Getenv("RELAY_CONFIG_PATH")
	relayConfig, err := LoadRelayConfig(relayConfigPath)
	if err != nil {
		slog.Warn("Invalid relay config, using defaults", "error", err)
		relayConfig = DefaultRelayConfig()
	}

	// Env overrides the YAML default topic
	defaultTopic := getEnv("DEFAULT_TOPIC", relayConfig.DefaultTopic)

	addr := getEnv("RELAY_ADDR", defaultAddr)

	return &Config{
		LLM: LLMConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
			Model:      getEnv("OPENAI_MODEL", defaultModel),
			TimeoutSec: getEnvInt("CLASSIFY_TIMEOUT_SEC", defaultTimeoutSec),
		},
		Dashboard: DashboardConfig{
			TickInterval: time.Duration(getEnvInt("TICK_INTERVAL_MS", defaultTickMs)) * time.Millisecond,
			ConnectDelay: time.Duration(getEnvInt("CONNECT_DELAY_MS", defaultConnectMs)) * time.Millisecond,
			DefaultTopic: defaultTopic,
			OperatorName: getEnv("OPERATOR_NAME", defaultOperatorName),
			FeedLimit:    getEnvInt("FEED_LIMIT", defaultFeedLimit),
		},
		Server: ServerConfig{
			Addr:   addr,
			APIURL: getEnv("RELAY_API_URL", "http://"+addr),
		},
		Relay: relayConfig,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Debug: getEnvBool("DEBUG", false),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &ConfigError{Field: "RELAY_ADDR", Message: "required"}
	}
	if c.Dashboard.TickInterval <= 0 {
		return &ConfigError{Field: "TICK_INTERVAL_MS", Message: "must be > 0"}
	}
	if c.Dashboard.ConnectDelay < 0 {
		return &ConfigError{Field: "CONNECT_DELAY_MS", Message: "must be >= 0"}
	}
	if c.LLM.TimeoutSec <= 0 {
		return &ConfigError{Field: "CLASSIFY_TIMEOUT_SEC", Message: "must be > 0"}
	}
	if c.Dashboard.FeedLimit <= 0 {
		return &ConfigError{Field: "FEED_LIMIT", Message: "must be > 0"}
	}
	if strings.TrimSpace(c.Dashboard.DefaultTopic) == "" {
		return &ConfigError{Field: "DEFAULT_TOPIC", Message: "required"}
	}
	return nil
}

// ClassifierEnabled returns whether model credentials are present
func (c *Config) ClassifierEnabled() bool {
	return c.LLM.APIKey != ""
}

// ClassifyTimeout returns the per-call model timeout
func (c *LLMConfig) ClassifyTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SlogLevel maps the configured level name to a slog level
func (c *Config) SlogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the log configuration
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
