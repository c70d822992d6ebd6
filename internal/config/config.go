// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	DefaultModel    string        `yaml:"default_model"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent model calls
	PromptBudget    int           `yaml:"prompt_budget"`    // max prompt tokens per grading call
}

type EvaluationConfig struct {
	Workers          int           `yaml:"workers"`
	QueueSize        int           `yaml:"queue_size"`
	MaxAttempts      int           `yaml:"max_attempts"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	FallbackFraction float64       `yaml:"fallback_fraction"` // points awarded when grading is exhausted
}

type SessionConfig struct {
	TokenSecret    string        `yaml:"token_secret"`
	InactivityIdle time.Duration `yaml:"inactivity_idle"` // in_progress sessions idle this long are abandoned
	AbandonSweep   time.Duration `yaml:"abandon_sweep"`   // abandonment worker interval
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Session    SessionConfig    `yaml:"session"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Session.TokenSecret == "" && !dev {
		return nil, errors.New("session.token_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.CallTimeout <= 0 {
		cfg.AI.CallTimeout = 30 * time.Second
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}
	if cfg.AI.PromptBudget <= 0 {
		cfg.AI.PromptBudget = 6000
	}
	if cfg.Evaluation.Workers <= 0 {
		cfg.Evaluation.Workers = 2
	}
	if cfg.Evaluation.QueueSize <= 0 {
		cfg.Evaluation.QueueSize = 256
	}
	if cfg.Evaluation.MaxAttempts <= 0 {
		cfg.Evaluation.MaxAttempts = 3
	}
	if cfg.Evaluation.RetryBackoff <= 0 {
		cfg.Evaluation.RetryBackoff = 5 * time.Second
	}
	if cfg.Evaluation.FallbackFraction <= 0 || cfg.Evaluation.FallbackFraction > 1 {
		cfg.Evaluation.FallbackFraction = 0.3
	}
	if cfg.Session.InactivityIdle <= 0 {
		cfg.Session.InactivityIdle = 2 * time.Hour
	}
	if cfg.Session.AbandonSweep <= 0 {
		cfg.Session.AbandonSweep = 15 * time.Minute
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
