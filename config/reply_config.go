// Package config loads settings from the environment and, when CONFIG_PATH
// is set, from a YAML file. Environment variables win over YAML values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reply_server/pkg/apperr"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Generative backend (OpenAI-compatible, e.g. Ollama)
	LLMBaseURL            string
	LLMAPIKey             string
	LLMModel              string
	LLMTemperature        float64
	LLMMaxTokens          int
	LLMTimeoutSec         int
	LLMBreakerFailures    int
	LLMBreakerCooldownSec int

	// HTTP
	AllowedOrigins []string
	BodyLimitMB    int
}

// fileConfig mirrors the YAML layout.
type fileConfig struct {
	Server struct {
		Port           string   `yaml:"port"`
		Env            string   `yaml:"env"`
		LogLevel       string   `yaml:"log_level"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		BodyLimitMB    int      `yaml:"body_limit_mb"`
	} `yaml:"server"`
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		TimeoutSec  int     `yaml:"timeout_sec"`
		Breaker     struct {
			Failures    int `yaml:"failures"`
			CooldownSec int `yaml:"cooldown_sec"`
		} `yaml:"breaker"`
	} `yaml:"llm"`
}

func Load() (*Config, error) {
	var file fileConfig
	if path := getEnv("CONFIG_PATH", ""); path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	cfg := &Config{
		Port:        getEnv("PORT", firstNonEmpty(file.Server.Port, "8000")),
		Environment: getEnv("ENV", firstNonEmpty(file.Server.Env, "development")),
		LogLevel:    getEnv("LOG_LEVEL", firstNonEmpty(file.Server.LogLevel, "info")),

		LLMBaseURL:            getEnv("LLM_BASE_URL", firstNonEmpty(file.LLM.BaseURL, "http://localhost:11434/v1")),
		LLMAPIKey:             getEnv("LLM_API_KEY", firstNonEmpty(file.LLM.APIKey, "ollama")),
		LLMModel:              getEnv("LLM_MODEL", firstNonEmpty(file.LLM.Model, "llama3.1:latest")),
		LLMTemperature:        getEnvFloat("LLM_TEMPERATURE", orFloat(file.LLM.Temperature, 0.3)),
		LLMMaxTokens:          getEnvInt("LLM_MAX_TOKENS", file.LLM.MaxTokens),
		LLMTimeoutSec:         getEnvInt("LLM_TIMEOUT_SEC", file.LLM.TimeoutSec),
		LLMBreakerFailures:    getEnvInt("LLM_BREAKER_FAILURES", orInt(file.LLM.Breaker.Failures, 5)),
		LLMBreakerCooldownSec: getEnvInt("LLM_BREAKER_COOLDOWN_SEC", orInt(file.LLM.Breaker.CooldownSec, 30)),

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", orSlice(file.Server.AllowedOrigins, []string{"*"})),
		BodyLimitMB:    getEnvInt("BODY_LIMIT_MB", orInt(file.Server.BodyLimitMB, 10)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var file fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	return &file, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return apperr.ConfigError(fmt.Sprintf("invalid PORT %q", c.Port))
	}
	if c.LLMBaseURL == "" {
		return apperr.ConfigError("LLM_BASE_URL is required")
	}
	if c.LLMModel == "" {
		return apperr.ConfigError("LLM_MODEL is required")
	}
	// go-openai drops a zero temperature from the request, so the backend
	// would silently use its own default.
	if c.LLMTemperature <= 0 || c.LLMTemperature > 2 {
		return apperr.ConfigError(fmt.Sprintf("LLM_TEMPERATURE must be greater than 0 and at most 2, got %v", c.LLMTemperature))
	}
	if c.LLMMaxTokens < 0 || c.LLMTimeoutSec < 0 {
		return apperr.ConfigError("LLM_MAX_TOKENS and LLM_TIMEOUT_SEC must not be negative")
	}
	if c.LLMBreakerFailures < 1 {
		return apperr.ConfigError("LLM_BREAKER_FAILURES must be at least 1")
	}
	if c.BodyLimitMB < 1 {
		return apperr.ConfigError("BODY_LIMIT_MB must be at least 1")
	}
	return nil
}

// LLMTimeout is zero when calls have no deadline.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func (c *Config) LLMBreakerCooldown() time.Duration {
	return time.Duration(c.LLMBreakerCooldownSec) * time.Second
}

// BodyLimit returns the request body limit in bytes.
func (c *Config) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func orFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func orSlice(v, fallback []string) []string {
	if len(v) > 0 {
		return v
	}
	return fallback
}
