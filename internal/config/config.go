package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Environment    string `mapstructure:"ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	Storage        string `mapstructure:"STORAGE"`
	DBDSN          string `mapstructure:"DB_DSN"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisChannel   string `mapstructure:"REDIS_CHANNEL"`

	Location      *time.Location
	SweepInterval time.Duration
	NotifyWorkers int
	NotifyQueue   int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv читает конфигурацию через getenv, отдельно от Load для тестов
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:    withDefault(getenv("ENV"), "development"),
		LogLevel:       getenv("LOG_LEVEL"),
		Storage:        withDefault(getenv("STORAGE"), StoragePostgres),
		DBDSN:          getenv("DB_DSN"),
		MigrationsPath: withDefault(getenv("MIGRATIONS_PATH"), "migrations"),
		TelegramToken:  getenv("TELEGRAM_TOKEN"),
		RedisAddr:      getenv("REDIS_ADDR"),
		RedisChannel:   withDefault(getenv("REDIS_CHANNEL"), "slots.events"),
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for postgres storage")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}

	loc, err := time.LoadLocation(withDefault(getenv("TIMEZONE"), "UTC"))
	if err != nil {
		return nil, fmt.Errorf("parse TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.SweepInterval, err = time.ParseDuration(withDefault(getenv("SWEEP_INTERVAL"), "1m"))
	if err != nil || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("parse SWEEP_INTERVAL: must be a positive duration")
	}

	if cfg.NotifyWorkers, err = positiveInt(getenv("NOTIFY_WORKERS"), 4); err != nil {
		return nil, fmt.Errorf("parse NOTIFY_WORKERS: %w", err)
	}
	if cfg.NotifyQueue, err = positiveInt(getenv("NOTIFY_QUEUE"), 256); err != nil {
		return nil, fmt.Errorf("parse NOTIFY_QUEUE: %w", err)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func positiveInt(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
