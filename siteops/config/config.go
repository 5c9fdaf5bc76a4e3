package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/siteops/siteops"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Inference InferenceConfig `mapstructure:"inference"`
	Harness   HarnessConfig   `mapstructure:"harness"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	DSN  string `mapstructure:"dsn"`
	Type string `mapstructure:"type"`
	// Remote-only configuration
	AuthToken string `mapstructure:"auth_token"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

// InferenceConfig stores the model runtime endpoint and sampling defaults.
type InferenceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`      // Ollama-compatible endpoint
	Timeout      time.Duration `mapstructure:"timeout"`       // Per-request timeout
	DefaultModel string        `mapstructure:"default_model"` // Used when a caller omits the model
	Temperature  float64       `mapstructure:"temperature"`
	TopP         float64       `mapstructure:"top_p"`
	TopK         int           `mapstructure:"top_k"`
	NumPredict   int           `mapstructure:"num_predict"` // -1 is unbounded
}

// HarnessConfig stores tool dispatch and chat orchestration settings.
type HarnessConfig struct {
	// Cache settings
	CacheEnabled    bool `mapstructure:"cache_enabled"`     // Cache model metadata lookups
	CacheCapacity   int  `mapstructure:"cache_capacity"`    // LRU cache capacity
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"` // Cache entry TTL

	// Rate limiting
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`     // Per-owner chat rate limiting
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`    // Token bucket capacity
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"` // Refill rate

	// Safety and validation
	EnableGuardrails bool     `mapstructure:"enable_guardrails"` // Validate tool parameters against their schema
	AllowedTools     []string `mapstructure:"allowed_tools"`     // Whitelist of allowed tool names

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing"` // Enable structured logging/tracing

	// Performance
	ToolConcurrency int `mapstructure:"tool_concurrency"` // Max concurrent tool executions

	// Conversations
	TitleLength   int   `mapstructure:"title_length"`    // Runes kept from the first message
	MediaMaxBytes int64 `mapstructure:"media_max_bytes"` // Largest image fetched for a chat turn
	// Hosts images may be fetched from; empty allows any public host
	MediaAllowedHosts []string `mapstructure:"media_allowed_hosts"`
	NativeTools   bool  `mapstructure:"native_tools"`    // Send function definitions with chat requests
}

// ServerConfig stores the HTTP listener settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"` // gin mode: debug, release, test
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. inference.base_url becomes SITEOPS_INFERENCE_BASE_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment are used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	AppConfig = cfg
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", internal.DefaultDatabaseDSN)
	v.SetDefault("database.type", internal.DefaultDatabaseType)
	v.SetDefault("database.auth_token", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)

	v.SetDefault("inference.base_url", internal.DefaultInferenceURL)
	v.SetDefault("inference.timeout", "5m")
	v.SetDefault("inference.default_model", internal.DefaultModel)
	v.SetDefault("inference.temperature", 0.7)
	v.SetDefault("inference.top_p", 0.9)
	v.SetDefault("inference.top_k", 40)
	v.SetDefault("inference.num_predict", -1)

	v.SetDefault("harness.cache_enabled", true)
	v.SetDefault("harness.cache_capacity", 256)
	v.SetDefault("harness.cache_ttl_seconds", 600) // 10 minutes
	v.SetDefault("harness.rate_limit_enabled", true)
	v.SetDefault("harness.rate_limit_capacity", 10)
	v.SetDefault("harness.rate_limit_refill_rate", "1s")
	v.SetDefault("harness.enable_guardrails", true)
	v.SetDefault("harness.allowed_tools", []string{}) // Empty means allow all by default
	v.SetDefault("harness.enable_tracing", true)
	v.SetDefault("harness.tool_concurrency", 5)
	v.SetDefault("harness.title_length", internal.DefaultConversationTitleLength)
	v.SetDefault("harness.media_max_bytes", 10<<20)
	v.SetDefault("harness.media_allowed_hosts", []string{})
	v.SetDefault("harness.native_tools", false) // Not every model accepts tools

	v.SetDefault("server.address", internal.DefaultServerAddress)
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
}
