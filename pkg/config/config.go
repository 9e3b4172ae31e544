package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the prompt engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (passwords) must
// only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Engine store (PostgreSQL): templates, feedback, prompt generation log
	Database DatabaseConfig `yaml:"database"`

	// Customer datasource used for live value sampling and schema discovery
	Datasource DatasourceConfig `yaml:"datasource"`

	// Relevance scoring weights and thresholds
	Scoring ScoringConfig `yaml:"scoring"`

	// Live value sampling limits
	Sampler SamplerConfig `yaml:"sampler"`

	// Optional YAML rule pack overriding the built-in business rules and
	// worked examples. Empty means built-ins only.
	RulePackPath string `yaml:"rule_pack_path" env:"RULE_PACK_PATH" env-default:""`

	// MigrationsPath is the directory holding engine store migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL configuration for the engine's own store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"prompt_engine"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"prompt_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatasourceConfig holds connection settings for the customer datasource
// that value sampling and schema discovery run against.
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"postgres"` // postgres or mssql
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:""`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"DATASOURCE_SSLMODE" env-default:"disable"`
}

// ScoringConfig holds the relevance scoring weights and thresholds. The
// defaults are the values the engine shipped with; they are exposed here so
// deployments can tune them without a rebuild.
type ScoringConfig struct {
	// InclusionThreshold is the minimum score for a table to be selected.
	InclusionThreshold float64 `yaml:"inclusion_threshold" env:"SCORING_INCLUSION_THRESHOLD" env-default:"0.4"`
	// FallbackThreshold is the lower bar used by the keyword-containment
	// scan when no table clears InclusionThreshold.
	FallbackThreshold float64 `yaml:"fallback_threshold" env:"SCORING_FALLBACK_THRESHOLD" env-default:"0.2"`
	// TopicBoost is the maximum boost a query-topic match adds to a table.
	TopicBoost float64 `yaml:"topic_boost" env:"SCORING_TOPIC_BOOST" env-default:"0.9"`
	// CrossTopicPenalty is subtracted from a topic table when the query is
	// clearly about a different topic.
	CrossTopicPenalty float64 `yaml:"cross_topic_penalty" env:"SCORING_CROSS_TOPIC_PENALTY" env-default:"0.8"`
	// MaxTables caps the selected set. Must not exceed models.MaxRelevantTables.
	MaxTables int `yaml:"max_tables" env:"SCORING_MAX_TABLES" env-default:"7"`
}

// SamplerConfig bounds the live distinct-value sampling probe.
type SamplerConfig struct {
	// TimeoutSeconds bounds each sampling query. Seconds, not minutes.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"SAMPLER_TIMEOUT_SECONDS" env-default:"3"`
	// ValueLimit is the maximum distinct values fetched per column.
	ValueLimit int `yaml:"value_limit" env:"SAMPLER_VALUE_LIMIT" env-default:"10"`
	// MaxValueLength filters out long values; only short literals are
	// useful as enum hints in a prompt.
	MaxValueLength int `yaml:"max_value_length" env:"SAMPLER_MAX_VALUE_LENGTH" env-default:"50"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, configuration comes from
// environment variables and defaults alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Scoring.InclusionThreshold < 0 || c.Scoring.InclusionThreshold > 1 {
		return fmt.Errorf("scoring.inclusion_threshold must be in [0,1], got %v", c.Scoring.InclusionThreshold)
	}
	if c.Scoring.FallbackThreshold > c.Scoring.InclusionThreshold {
		return fmt.Errorf("scoring.fallback_threshold must not exceed scoring.inclusion_threshold")
	}
	if c.Scoring.MaxTables < 1 || c.Scoring.MaxTables > 7 {
		return fmt.Errorf("scoring.max_tables must be in [1,7], got %d", c.Scoring.MaxTables)
	}
	if c.Sampler.TimeoutSeconds < 1 {
		return fmt.Errorf("sampler.timeout_seconds must be at least 1, got %d", c.Sampler.TimeoutSeconds)
	}
	return nil
}
