package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed once at
// startup and passed into each component's constructor.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Interpreter InterpreterConfig `yaml:"interpreter" mapstructure:"interpreter"`
	Gemini      GeminiConfig      `yaml:"gemini" mapstructure:"gemini"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Places      PlacesConfig      `yaml:"places" mapstructure:"places"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Enrich      EnrichConfig      `yaml:"enrich" mapstructure:"enrich"`
	Twilio      TwilioConfig      `yaml:"twilio" mapstructure:"twilio"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// InterpreterConfig configures the free-text query interpreter.
type InterpreterConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // "gemini" or "anthropic"
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffSecs int    `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds settings for the Gemini text-generation endpoint.
type GeminiConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PlacesConfig holds places-search provider settings.
type PlacesConfig struct {
	Key                string  `yaml:"key" mapstructure:"key"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	RadiusMeters       int     `yaml:"radius_meters" mapstructure:"radius_meters"`
	PageTokenDelaySecs int     `yaml:"page_token_delay_secs" mapstructure:"page_token_delay_secs"`
	RateLimit          float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	GeocodeCacheSize   int     `yaml:"geocode_cache_size" mapstructure:"geocode_cache_size"`
}

// SearchConfig holds the generic web-search provider settings.
type SearchConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EnrichConfig configures the per-place enrichment fan-out.
type EnrichConfig struct {
	Concurrency        int    `yaml:"concurrency" mapstructure:"concurrency"`
	SiteTimeoutSecs    int    `yaml:"site_timeout_secs" mapstructure:"site_timeout_secs"`
	RulesPath          string `yaml:"rules_path" mapstructure:"rules_path"`
	MaxPlaces          int    `yaml:"max_places" mapstructure:"max_places"`
	MaxFallbackQueries int    `yaml:"max_fallback_queries" mapstructure:"max_fallback_queries"`
	RunTimeoutSecs     int    `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
}

// TwilioConfig holds the outbound messaging credentials.
type TwilioConfig struct {
	SID         string `yaml:"sid" mapstructure:"sid"`
	AuthToken   string `yaml:"auth_token" mapstructure:"auth_token"`
	FromNumber  string `yaml:"from_number" mapstructure:"from_number"`
	MessageBody string `yaml:"message_body" mapstructure:"message_body"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("interpreter.provider", "gemini")
	v.SetDefault("interpreter.max_attempts", 3)
	v.SetDefault("interpreter.backoff_secs", 5)
	v.SetDefault("interpreter.max_tokens", 150)
	v.SetDefault("gemini.endpoint", "https://api.gemini.example.com/v1/generate")
	v.SetDefault("gemini.model", "gemini-1.5-pro")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("places.radius_meters", 5000)
	v.SetDefault("places.page_token_delay_secs", 2)
	v.SetDefault("places.rate_limit", 10)
	v.SetDefault("places.geocode_cache_size", 100)
	v.SetDefault("search.base_url", "https://s.jina.ai")
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.site_timeout_secs", 10)
	v.SetDefault("enrich.max_places", 200)
	v.SetDefault("enrich.max_fallback_queries", 500)
	v.SetDefault("enrich.run_timeout_secs", 900)
	v.SetDefault("twilio.message_body", "Hallo, wij bieden IT-diensten aan die uw bedrijf kunnen helpen...")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
