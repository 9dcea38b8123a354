package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	HTTP     HTTPConfig
	Chain    ChainConfig
	Logging  LoggingConfig
}

// ServiceConfig holds service-level configuration
type ServiceConfig struct {
	Name        string
	Environment string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	URL      string
}

// KafkaConfig holds Kafka broker configuration
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	BlocksTopic   string
	BetsTopic     string
	GamesTopic    string
	ConsumerGroup string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port int
}

// ChainConfig holds the genesis and checkpoint settings of the node
type ChainConfig struct {
	GenesisFile string // YAML genesis, overrides the fields below
	GenesisTime time.Time
	Moderator   string
	// ResolveDelay is how long after results are posted matched bets resolve
	ResolveDelay time.Duration
	MinBetStake  int64

	CheckpointsKept int64
	PruneInterval   time.Duration
	OutboxRetention time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // "json" or "console"
	TimeFormat string // "rfc3339", "rfc3339nano" or "unix"
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "betting-node"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "betting"),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvBool("KAFKA_ENABLED", true),
			Brokers:       getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			BlocksTopic:   getEnv("KAFKA_BLOCKS_TOPIC", "betting.blocks"),
			BetsTopic:     getEnv("KAFKA_BETS_TOPIC", "betting.bets"),
			GamesTopic:    getEnv("KAFKA_GAMES_TOPIC", "betting.games"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "betting-node"),
		},
		HTTP: HTTPConfig{
			Port: getEnvInt("HTTP_PORT", 9092),
		},
		Chain: ChainConfig{
			GenesisFile:     getEnv("GENESIS_FILE", ""),
			Moderator:       getEnv("BETTING_MODERATOR", ""),
			ResolveDelay:    getEnvDuration("BETTING_RESOLVE_DELAY", 24*time.Hour),
			MinBetStake:     getEnvInt64("BETTING_MIN_BET_STAKE", 1_000_000),
			CheckpointsKept: getEnvInt64("CHECKPOINTS_KEPT", 100),
			PruneInterval:   getEnvDuration("CHECKPOINT_PRUNE_INTERVAL", 10*time.Minute),
			OutboxRetention: getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			TimeFormat: getEnv("LOG_TIME_FORMAT", "rfc3339"),
		},
	}

	if raw := os.Getenv("GENESIS_TIME"); raw != "" {
		genesisTime, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid GENESIS_TIME: %w", err)
		}
		cfg.Chain.GenesisTime = genesisTime.UTC()
	}

	if cfg.Chain.GenesisFile == "" && cfg.Chain.Moderator == "" {
		return nil, errors.New("either GENESIS_FILE or BETTING_MODERATOR must be set")
	}
	if cfg.Chain.MinBetStake <= 0 {
		return nil, fmt.Errorf("BETTING_MIN_BET_STAKE must be positive, got %d", cfg.Chain.MinBetStake)
	}

	// Build database URL
	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
	)

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration parses values such as "90s" or "24h"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvSlice gets a comma-separated environment variable as a slice
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
