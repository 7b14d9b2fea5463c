// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Insight provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	RabbitMQ RabbitMQConfig
	Logging  LoggingConfig
	Server   ServerConfig
	Import   ImportConfig
	Insights InsightsConfig
	Cache    CacheConfig
}

// ServerConfig contains HTTP server configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ServerConfig struct {
	Port            int
	Mode            string
	APIKeys         []string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// ImportConfig controls how history documents are read and interpreted.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ImportConfig struct {
	Path            string
	MaxDocumentSize int64
	Timezone        string
	DayFirst        bool
	ValidateUploads bool
}

// Location resolves the configured timezone. "Local" and "" mean the host zone.
func (c ImportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid import timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// InsightsConfig contains the language-model collaborator settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type InsightsConfig struct {
	Enabled               bool
	Provider              string
	BaseURL               string
	Model                 string
	APIKey                string
	Timeout               time.Duration
	MaxRetries            int
	SampleSize            int
	DefaultAverageMinutes float64
	MaxConcurrent         int64
	RatePerSecond         float64
	Burst                 int
}

// CacheConfig contains insight response cache settings.
type CacheConfig struct {
	RedisURL   string
	TTL        time.Duration
	MaxEntries int
}

// RabbitMQConfig contains RabbitMQ connection and queue configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Import.MaxDocumentSize <= 0 {
		return fmt.Errorf("import.maxdocumentsize must be positive")
	}
	if _, err := c.Import.Location(); err != nil {
		return err
	}
	if c.Insights.Enabled {
		switch c.Insights.Provider {
		case ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("unknown insights provider: %q", c.Insights.Provider)
		}
		if c.Insights.BaseURL == "" {
			return fmt.Errorf("insights.baseurl is required when insights are enabled")
		}
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.apikeys", []string{})
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.readtimeout", 30*time.Second)
	viper.SetDefault("server.writetimeout", 60*time.Second)

	// Import
	viper.SetDefault("import.path", "")
	viper.SetDefault("import.maxdocumentsize", 256<<20) // 256MB
	viper.SetDefault("import.timezone", "Local")
	viper.SetDefault("import.dayfirst", false)
	viper.SetDefault("import.validateuploads", true)

	// Insights
	viper.SetDefault("insights.enabled", false)
	viper.SetDefault("insights.provider", ProviderOpenAI)
	viper.SetDefault("insights.baseurl", "https://generativelanguage.googleapis.com/v1beta/openai")
	viper.SetDefault("insights.model", "gemini-2.5-flash")
	viper.SetDefault("insights.apikey", "")
	viper.SetDefault("insights.timeout", 60*time.Second)
	viper.SetDefault("insights.maxretries", 3)
	viper.SetDefault("insights.samplesize", 30)
	viper.SetDefault("insights.defaultaverageminutes", 10.0)
	viper.SetDefault("insights.maxconcurrent", 2)
	viper.SetDefault("insights.ratepersecond", 1.0)
	viper.SetDefault("insights.burst", 2)

	// Cache
	viper.SetDefault("cache.redisurl", "")
	viper.SetDefault("cache.ttl", 24*time.Hour)
	viper.SetDefault("cache.maxentries", 1000)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "watch.history")
	viper.SetDefault("rabbitmq.queue", "watch.history.snapshots")
	viper.SetDefault("rabbitmq.routingkey", "snapshot.published")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
