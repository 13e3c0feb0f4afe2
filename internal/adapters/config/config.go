package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Engine     EngineConfig     `envconfig:"ENGINE"`
	Learning   LearningConfig   `envconfig:"LEARNING"`
	Database   DatabaseConfig   `envconfig:"DATABASE"`
	ClickHouse ClickHouseConfig `envconfig:"CLICKHOUSE"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
}

// EngineConfig represents signal generation parameters
type EngineConfig struct {
	Assets          []string      `envconfig:"ENGINE_ASSETS" default:"BTC,ETH,SOL"`
	ReferenceAsset  string        `envconfig:"ENGINE_REFERENCE_ASSET" default:"BTC"`
	Timeframe       string        `envconfig:"ENGINE_TIMEFRAME" default:"1h"`
	LongTimeframe   string        `envconfig:"ENGINE_LONG_TIMEFRAME" default:"4h"`
	CandleLimit     int           `envconfig:"ENGINE_CANDLE_LIMIT" default:"100"`
	PivotWindow     int           `envconfig:"ENGINE_PIVOT_WINDOW" default:"3"`
	Interval        time.Duration `envconfig:"ENGINE_INTERVAL" default:"5m"`
	OutcomeInterval time.Duration `envconfig:"ENGINE_OUTCOME_INTERVAL" default:"1m"`
}

// LearningConfig represents learning loop parameters
type LearningConfig struct {
	Interval time.Duration `envconfig:"LEARNING_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"LEARNING_LOCK_TTL" default:"30s"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"signals"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// ClickHouseConfig represents analytical store connection parameters
type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"true"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database string `envconfig:"CLICKHOUSE_DATABASE" default:"signals"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD" required:"false"`
}

// RedisConfig represents redis connection parameters
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:"logs/signals.log"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if len(c.Engine.Assets) == 0 {
		return fmt.Errorf("at least one asset must be configured")
	}
	if c.Engine.ReferenceAsset == "" {
		return fmt.Errorf("reference asset is required")
	}
	if c.Engine.CandleLimit < 50 {
		return fmt.Errorf("candle_limit must be at least 50")
	}
	if c.Engine.PivotWindow < 1 {
		return fmt.Errorf("pivot_window must be at least 1")
	}
	if c.Engine.Interval <= 0 {
		return fmt.Errorf("engine interval must be positive")
	}
	if c.Engine.OutcomeInterval <= 0 {
		return fmt.Errorf("outcome interval must be positive")
	}
	if c.Learning.Interval <= 0 {
		return fmt.Errorf("learning interval must be positive")
	}
	if c.Learning.LockTTL <= 0 {
		return fmt.Errorf("learning lock ttl must be positive")
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetDSN returns ClickHouse connection string
func (c *ClickHouseConfig) GetDSN() string {
	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}
