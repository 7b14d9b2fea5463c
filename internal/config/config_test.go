package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "load with defaults (no config file)",
			setup: func() {
				// Reset viper
				viper.Reset()
			},
			cleanup: func() {},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Import.MaxDocumentSize != 256<<20 {
					t.Errorf("Import.MaxDocumentSize = %d, want %d", cfg.Import.MaxDocumentSize, 256<<20)
				}
				if !cfg.Import.ValidateUploads {
					t.Error("Import.ValidateUploads = false, want true")
				}
				if cfg.Import.Timezone != "Local" {
					t.Errorf("Import.Timezone = %s, want Local", cfg.Import.Timezone)
				}
				if cfg.Insights.Enabled {
					t.Error("Insights.Enabled = true, want false")
				}
				if cfg.Insights.SampleSize != 30 {
					t.Errorf("Insights.SampleSize = %d, want 30", cfg.Insights.SampleSize)
				}
				if cfg.Insights.DefaultAverageMinutes != 10 {
					t.Errorf("Insights.DefaultAverageMinutes = %v, want 10", cfg.Insights.DefaultAverageMinutes)
				}
				if cfg.Insights.Model != "gemini-2.5-flash" {
					t.Errorf("Insights.Model = %s, want gemini-2.5-flash", cfg.Insights.Model)
				}
				if cfg.RabbitMQ.Host != "localhost" {
					t.Errorf("RabbitMQ.Host = %s, want localhost", cfg.RabbitMQ.Host)
				}
				if cfg.Cache.TTL != 24*time.Hour {
					t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
				}
			},
		},
		{
			name: "load with environment variables",
			setup: func() {
				viper.Reset()
				viper.SetEnvPrefix("APP")
				viper.AutomaticEnv()
				os.Setenv("APP_SERVER_PORT", "9090")
				os.Setenv("APP_IMPORT_TIMEZONE", "UTC")
				os.Setenv("APP_INSIGHTS_PROVIDER", "ollama")
				os.Setenv("APP_RABBITMQ_HOST", "testrabbitmq")
				// Manually bind env vars since AutomaticEnv doesn't work with nested keys
				viper.BindEnv("server.port", "APP_SERVER_PORT")
				viper.BindEnv("import.timezone", "APP_IMPORT_TIMEZONE")
				viper.BindEnv("insights.provider", "APP_INSIGHTS_PROVIDER")
				viper.BindEnv("rabbitmq.host", "APP_RABBITMQ_HOST")
			},
			cleanup: func() {
				os.Unsetenv("APP_SERVER_PORT")
				os.Unsetenv("APP_IMPORT_TIMEZONE")
				os.Unsetenv("APP_INSIGHTS_PROVIDER")
				os.Unsetenv("APP_RABBITMQ_HOST")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Import.Timezone != "UTC" {
					t.Errorf("Import.Timezone = %s, want UTC", cfg.Import.Timezone)
				}
				if cfg.Insights.Provider != ProviderOllama {
					t.Errorf("Insights.Provider = %s, want ollama", cfg.Insights.Provider)
				}
				if cfg.RabbitMQ.Host != "testrabbitmq" {
					t.Errorf("RabbitMQ.Host = %s, want testrabbitmq", cfg.RabbitMQ.Host)
				}
			},
		},
		{
			name: "invalid timezone is rejected",
			setup: func() {
				viper.Reset()
				os.Setenv("APP_IMPORT_TIMEZONE", "Mars/Olympus_Mons")
				viper.BindEnv("import.timezone", "APP_IMPORT_TIMEZONE")
			},
			cleanup: func() {
				os.Unsetenv("APP_IMPORT_TIMEZONE")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			defer func() {
				if tt.cleanup != nil {
					tt.cleanup()
				}
			}()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	tests := []struct {
		name string
		key  string
		want interface{}
	}{
		{"server port", "server.port", 8080},
		{"server mode", "server.mode", "release"},
		{"import path", "import.path", ""},
		{"import timezone", "import.timezone", "Local"},
		{"import dayfirst", "import.dayfirst", false},
		{"insights provider", "insights.provider", "openai"},
		{"insights samplesize", "insights.samplesize", 30},
		{"insights maxretries", "insights.maxretries", 3},
		{"rabbitmq enabled", "rabbitmq.enabled", false},
		{"rabbitmq exchange", "rabbitmq.exchange", "watch.history"},
		{"rabbitmq routingkey", "rabbitmq.routingkey", "snapshot.published"},
		{"logging level", "logging.level", "info"},
		{"logging file", "logging.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.want {
				t.Errorf("viper.Get(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	// Test time.Duration defaults
	if viper.GetDuration("server.shutdowntimeout") != 30*time.Second {
		t.Errorf("server.shutdowntimeout = %v, want 30s", viper.GetDuration("server.shutdowntimeout"))
	}
	if viper.GetDuration("insights.timeout") != 60*time.Second {
		t.Errorf("insights.timeout = %v, want 60s", viper.GetDuration("insights.timeout"))
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Import: ImportConfig{MaxDocumentSize: 1024, Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "zero document size", mutate: func(c *Config) { c.Import.MaxDocumentSize = 0 }, wantErr: true},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.Insights = InsightsConfig{Enabled: true, Provider: "carrier-pigeon", BaseURL: "http://x"}
			},
			wantErr: true,
		},
		{
			name: "missing base url",
			mutate: func(c *Config) {
				c.Insights = InsightsConfig{Enabled: true, Provider: ProviderOllama}
			},
			wantErr: true,
		},
		{
			name: "disabled insights skip provider check",
			mutate: func(c *Config) {
				c.Insights = InsightsConfig{Provider: "anything"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestImportConfig_Location(t *testing.T) {
	loc, err := ImportConfig{Timezone: "Local"}.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Location() = %v, %v; want time.Local", loc, err)
	}

	loc, err = ImportConfig{Timezone: "UTC"}.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("Location() = %v, %v; want UTC", loc, err)
	}
}
