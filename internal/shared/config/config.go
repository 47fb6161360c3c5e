package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds every runtime knob of the engine process.
type Config struct {
	Env                 string
	HTTPAddr            string
	StoreDriver         string
	DB                  DBConfig
	RedisAddr           string
	SettlementStream    string
	CloseSweepInterval  time.Duration
	ConflictMaxAttempts int
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres url used by pgxpool and golang-migrate.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Load reads .env (if any) and the environment, applying defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":9000"),
		StoreDriver:      getEnv("STORE_DRIVER", StoreDriverPostgres),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		SettlementStream: getEnv("SETTLEMENT_STREAM", "auction:closed"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	interval, err := time.ParseDuration(getEnv("CLOSE_SWEEP_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid CLOSE_SWEEP_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("config: CLOSE_SWEEP_INTERVAL must be positive, got %s", interval)
	}
	cfg.CloseSweepInterval = interval

	attempts, err := strconv.Atoi(getEnv("CONFLICT_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid CONFLICT_MAX_ATTEMPTS: %w", err)
	}
	if attempts < 1 {
		return nil, fmt.Errorf("config: CONFLICT_MAX_ATTEMPTS must be at least 1, got %d", attempts)
	}
	cfg.ConflictMaxAttempts = attempts

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
