package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the project hub API.
type Config struct {
	AppName                 string
	AppEnv                  string
	AppPort                 string
	DatabaseURL             string
	RedisURL                string
	NATSURL                 string
	EventChannel            string
	JWTSecret               string
	DashboardCacheTTL       time.Duration
	EvaluatorBaseURL        string
	EvaluatorConnectTimeout time.Duration
	EvaluatorTimeout        time.Duration
	TextEvaluatorProvider   string
	OpenAIAPIKey            string
	OpenAIModel             string
	SuggestionRateLimit     int
	MaxDocumentSizeMB       int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "AI Project Hub")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "hub")
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("evaluator.base_url", "http://localhost:8001")
	v.SetDefault("evaluator.connect_timeout", "5s")
	v.SetDefault("evaluator.timeout", "120s")
	v.SetDefault("evaluator.text_provider", "backend")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("suggestion.rate_limit", 6)
	v.SetDefault("documents.max_size_mb", 10)

	ttl, err := parseDuration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	connectTimeout, err := parseDuration(v, "evaluator.connect_timeout")
	if err != nil {
		return Config{}, err
	}

	timeout, err := parseDuration(v, "evaluator.timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		RedisURL:                v.GetString("redis.url"),
		NATSURL:                 v.GetString("nats.url"),
		EventChannel:            v.GetString("events.channel"),
		JWTSecret:               v.GetString("jwt.secret"),
		DashboardCacheTTL:       ttl,
		EvaluatorBaseURL:        strings.TrimRight(v.GetString("evaluator.base_url"), "/"),
		EvaluatorConnectTimeout: connectTimeout,
		EvaluatorTimeout:        timeout,
		TextEvaluatorProvider:   strings.ToLower(v.GetString("evaluator.text_provider")),
		OpenAIAPIKey:            v.GetString("openai.api_key"),
		OpenAIModel:             v.GetString("openai.model"),
		SuggestionRateLimit:     v.GetInt("suggestion.rate_limit"),
		MaxDocumentSizeMB:       v.GetInt("documents.max_size_mb"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.EvaluatorTimeout < cfg.EvaluatorConnectTimeout {
		return Config{}, fmt.Errorf("evaluator timeout %s shorter than connect timeout %s", cfg.EvaluatorTimeout, cfg.EvaluatorConnectTimeout)
	}

	if cfg.TextEvaluatorProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("openai api key required for openai text evaluator")
	}

	if cfg.MaxDocumentSizeMB <= 0 {
		cfg.MaxDocumentSizeMB = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}
