package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers        string
	OrderTopic          string
	CompensationGroupID string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает базовые настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		CompensationGroupID:         "checkout-compensation",
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            100 * time.Millisecond,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// LoadConfigFromEnv читает конфигурацию из переменных окружения CHECKOUT_*,
// недостающие значения берутся из DefaultConfig.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := envString("CHECKOUT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := envString("CHECKOUT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envString("CHECKOUT_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = StorageDriver(v)
	}
	if v := envString("CHECKOUT_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
		if cfg.StorageDriver == StorageDriverMemory {
			cfg.StorageDriver = StorageDriverPostgres
		}
	}
	if v := envString("CHECKOUT_POSTGRES_AUTO_MIGRATE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v := envString("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := envString("CHECKOUT_ORDER_TOPIC"); v != "" {
		cfg.OrderTopic = v
	}
	if v := envString("CHECKOUT_COMPENSATION_GROUP_ID"); v != "" {
		cfg.CompensationGroupID = v
	}
	if v := envDuration("CHECKOUT_OUTBOX_POLL_INTERVAL"); v > 0 {
		cfg.OutboxPollInterval = v
	}
	if v := envInt("CHECKOUT_OUTBOX_BATCH_SIZE"); v > 0 {
		cfg.OutboxBatchSize = v
	}
	if v := envInt("CHECKOUT_OUTBOX_MAX_ATTEMPTS"); v > 0 {
		cfg.OutboxMaxAttempts = v
	}
	if v := envDuration("CHECKOUT_OUTBOX_RETRY_DELAY"); v > 0 {
		cfg.OutboxRetryDelay = v
	}
	if v := envDuration("CHECKOUT_IDEMPOTENCY_CLEANUP_INTERVAL"); v > 0 {
		cfg.IdempotencyCleanupInterval = v
	}
	if v := envInt("CHECKOUT_IDEMPOTENCY_CLEANUP_BATCH_SIZE"); v > 0 {
		cfg.IdempotencyCleanupBatchSize = v
	}

	return cfg
}

func envString(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func envInt(name string) int {
	raw := envString(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}

func envDuration(name string) time.Duration {
	raw := envString(name)
	if raw == "" {
		return 0
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return value
}
