package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
// Структура сравнима по значению: списки хранятся строками через запятую.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers string
	KafkaTopic   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ProductTTL    time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	HealthSyncInterval time.Duration
	LogLevel           string
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		GRPCAddr:                    ":50051",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		ProductTTL:                  5 * time.Minute,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            50 * time.Millisecond,
		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
		HealthSyncInterval:          5 * time.Second,
		LogLevel:                    "info",
	}
}

// LoadConfigFromEnv накладывает переменные CUSTOMERS_* на DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	var errs []string
	note := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	envString("CUSTOMERS_HTTP_ADDR", &cfg.HTTPAddr)
	envString("CUSTOMERS_GRPC_ADDR", &cfg.GRPCAddr)
	envString("CUSTOMERS_METRICS_ADDR", &cfg.MetricsAddr)
	envString("CUSTOMERS_STORAGE_DRIVER", &cfg.StorageDriver)
	envString("CUSTOMERS_POSTGRES_DSN", &cfg.PostgresDSN)
	note(envBool("CUSTOMERS_POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate))
	envString("CUSTOMERS_KAFKA_BROKERS", &cfg.KafkaBrokers)
	envString("CUSTOMERS_KAFKA_TOPIC", &cfg.KafkaTopic)
	envString("CUSTOMERS_REDIS_ADDR", &cfg.RedisAddr)
	envString("CUSTOMERS_REDIS_PASSWORD", &cfg.RedisPassword)
	note(envInt("CUSTOMERS_REDIS_DB", &cfg.RedisDB))
	note(envDuration("CUSTOMERS_PRODUCT_CACHE_TTL", &cfg.ProductTTL))
	note(envDuration("CUSTOMERS_OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval))
	note(envInt("CUSTOMERS_OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize))
	note(envInt("CUSTOMERS_OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts))
	note(envDuration("CUSTOMERS_OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay))
	note(envDuration("CUSTOMERS_IDEMPOTENCY_TTL", &cfg.IdempotencyTTL))
	note(envDuration("CUSTOMERS_IDEMPOTENCY_CLEANUP_INTERVAL", &cfg.IdempotencyCleanupInterval))
	note(envInt("CUSTOMERS_IDEMPOTENCY_CLEANUP_BATCH_SIZE", &cfg.IdempotencyCleanupBatchSize))
	note(envDuration("CUSTOMERS_HEALTH_SYNC_INTERVAL", &cfg.HealthSyncInterval))
	envString("CUSTOMERS_LOG_LEVEL", &cfg.LogLevel)

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres storage requires CUSTOMERS_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Brokers разбирает список брокеров Kafka.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
