package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LogLevel string         `yaml:"log_level"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

type DatabaseConfig struct {
	ConnString string `yaml:"conn_string"`
}

type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	RunsTopic string   `yaml:"runs_topic"`
}

type PipelineConfig struct {
	VariantCount    int      `yaml:"variant_count"`
	ExemplarLimit   int      `yaml:"exemplar_limit"`
	HighThreshold   float64  `yaml:"high_threshold"`
	MediumThreshold float64  `yaml:"medium_threshold"`
	NegativeStreak  int      `yaml:"negative_streak"`
	SevereKeywords  []string `yaml:"severe_keywords"`
	// Recommendations the composer may suggest on the recommend route.
	// Empty keeps the guidance generic.
	Recommendations []string `yaml:"recommendations"`
}

func Load() (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.7,
		},
		Kafka: KafkaConfig{
			RunsTopic: "triage-runs",
		},
		Pipeline: PipelineConfig{
			VariantCount:    3,
			ExemplarLimit:   3,
			HighThreshold:   0.7,
			MediumThreshold: 0.4,
			NegativeStreak:  3,
			SevereKeywords:  []string{"refund", "lawyer", "chargeback", "cancel my account", "unacceptable"},
		},
		LogLevel: "info",
	}

	// Load from YAML if exists
	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = t
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.ConnString = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants that must hold before any run starts.
// The store connection must use encrypted transport; a plaintext conn
// string is a startup error, not a per-run one.
func (c *Config) Validate() error {
	if c.Database.ConnString != "" {
		if err := RequireTLS(c.Database.ConnString); err != nil {
			return err
		}
	}
	if c.LLM.Temperature < 0 {
		c.LLM.Temperature = 0
	}
	if c.LLM.Temperature > 1.5 {
		c.LLM.Temperature = 1.5
	}
	if c.Pipeline.VariantCount < 1 {
		return fmt.Errorf("pipeline.variant_count must be >= 1, got %d", c.Pipeline.VariantCount)
	}
	if c.Pipeline.ExemplarLimit < 0 {
		return fmt.Errorf("pipeline.exemplar_limit must be >= 0, got %d", c.Pipeline.ExemplarLimit)
	}
	if c.Pipeline.MediumThreshold > c.Pipeline.HighThreshold {
		return fmt.Errorf("pipeline.medium_threshold (%.2f) must not exceed high_threshold (%.2f)",
			c.Pipeline.MediumThreshold, c.Pipeline.HighThreshold)
	}
	if c.Pipeline.NegativeStreak < 1 {
		return fmt.Errorf("pipeline.negative_streak must be >= 1, got %d", c.Pipeline.NegativeStreak)
	}
	return nil
}

// RequireTLS rejects Postgres connection strings that disable or skip TLS.
// Accepted sslmode values: require, verify-ca, verify-full.
func RequireTLS(connString string) error {
	mode := ""
	if i := strings.Index(connString, "sslmode="); i >= 0 {
		rest := connString[i+len("sslmode="):]
		if j := strings.IndexAny(rest, "& "); j >= 0 {
			rest = rest[:j]
		}
		mode = rest
	}
	switch mode {
	case "require", "verify-ca", "verify-full":
		return nil
	case "":
		return fmt.Errorf("database conn string must set sslmode=require (or stronger)")
	default:
		return fmt.Errorf("database conn string has sslmode=%s; encrypted transport is required", mode)
	}
}
