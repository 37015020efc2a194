package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Generation GenerationConfig `mapstructure:"generation"`
	History    HistoryConfig    `mapstructure:"history"`
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Mode               string        `mapstructure:"mode"` // debug or release
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	MaxRequestBodySize int           `mapstructure:"max_request_body_size"` // MB
}

// LogConfig is the logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	AddSource bool   `mapstructure:"add_source"`
}

// AssistantConfig holds the pipeline knobs. Defaults match the product
// behavior: 10 req/60s per client, 5-minute cache, 30-minute sessions.
type AssistantConfig struct {
	RateLimitCeiling int           `mapstructure:"rate_limit_ceiling"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity    int           `mapstructure:"cache_capacity"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	ChatTimeout      time.Duration `mapstructure:"chat_timeout"`
	ConciergeTimeout time.Duration `mapstructure:"concierge_timeout"`
}

// GenerationConfig points at the upstream generative-text service.
type GenerationConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"` // transport-level cap
}

// HistoryConfig configures the durable conversation log.
type HistoryConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Load reads and validates the configuration file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VNOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.max_request_body_size", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("assistant.rate_limit_ceiling", 10)
	v.SetDefault("assistant.rate_limit_window", "60s")
	v.SetDefault("assistant.cache_ttl", "5m")
	v.SetDefault("assistant.cache_capacity", 100)
	v.SetDefault("assistant.session_ttl", "30m")
	v.SetDefault("assistant.chat_timeout", "30s")
	v.SetDefault("assistant.concierge_timeout", "15s")

	v.SetDefault("generation.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("generation.model", "gemini-2.0-flash")
	v.SetDefault("generation.timeout", "60s")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.db", 0)
	v.SetDefault("history.ttl", "168h")
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server mode: %s, must be 'debug' or 'release'", c.Server.Mode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s, must be 'json' or 'text'", c.Log.Format)
	}

	if c.Assistant.RateLimitCeiling <= 0 {
		return fmt.Errorf("assistant.rate_limit_ceiling must be positive")
	}
	if c.Assistant.CacheCapacity <= 0 {
		return fmt.Errorf("assistant.cache_capacity must be positive")
	}
	if c.Assistant.ChatTimeout <= 0 || c.Assistant.ConciergeTimeout <= 0 {
		return fmt.Errorf("assistant generation timeouts must be positive")
	}

	if c.Generation.BaseURL == "" {
		return fmt.Errorf("generation.base_url is required")
	}

	if c.History.Enabled && c.History.Addr == "" {
		return fmt.Errorf("history.addr is required when history is enabled")
	}

	return nil
}

// GetServerAddr returns the host:port listen address.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetReadTimeout returns the server read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return c.Server.ReadTimeout
}

// GetWriteTimeout returns the server write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return c.Server.WriteTimeout
}
