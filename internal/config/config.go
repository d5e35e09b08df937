package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	FlowConfigPath    string
	DefaultScenarioID string
	RedisURL          string
	SessionTTL        time.Duration
	AIProvider        string
	OpenAIAPIKey      string
	OpenAIModel       string
	AITimeout         time.Duration
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
	v.SetEnvPrefix("CALLDOJO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CallDojo API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("flow.path", "config/flow.json")
	v.SetDefault("scenario.default", "mortgage-cold-call")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout", "20s")
	v.SetDefault("openai.model", "gpt-4o-mini")

	ttl, err := time.ParseDuration(v.GetString("session.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}

	aiTimeout, err := time.ParseDuration(v.GetString("ai.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ai timeout: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		FlowConfigPath:    v.GetString("flow.path"),
		DefaultScenarioID: v.GetString("scenario.default"),
		RedisURL:          v.GetString("redis.url"),
		SessionTTL:        ttl,
		AIProvider:        strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OpenAIModel:       v.GetString("openai.model"),
		AITimeout:         aiTimeout,
	}

	if cfg.FlowConfigPath == "" {
		return Config{}, fmt.Errorf("flow config path must be provided")
	}

	return cfg, nil
}
