package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"routegen/internal/model"
)

// Config holds process settings. Values come from an optional YAML file
// (CONFIG_PATH) with environment variables taking precedence.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	RateRPS   float64 `yaml:"rateRps"`
	RateBurst int     `yaml:"rateBurst"`

	WebhookMaxAttempts int `yaml:"webhookMaxAttempts"`

	SolverDefaults model.GAParams `yaml:"solverDefaults"`
}

func defaults() Config {
	return Config{
		Addr:               ":8080",
		RateRPS:            5,
		RateBurst:          10,
		WebhookMaxAttempts: 6,
		SolverDefaults: model.GAParams{
			PopulationSize: 100,
			Generations:    100,
			MutationRate:   0.1,
			CrossoverRate:  0.9,
			EliteSize:      10,
			TournamentSize: 5,
		},
	}
}

// Load reads CONFIG_PATH (if set) and applies env overrides.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateRPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateBurst = n
		}
	}
	if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WebhookMaxAttempts = n
		}
	}
}
