package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/customers/internal/health"
	"github.com/vladislavdragonenkov/customers/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
	"github.com/vladislavdragonenkov/customers/internal/storage/memory"
	"github.com/vladislavdragonenkov/customers/internal/storage/postgres"
	"github.com/vladislavdragonenkov/customers/internal/storage/rediscache"
)

// storage - общий контракт in-memory и PostgreSQL хранилищ.
type storage interface {
	domain.UnitOfWork
	Customers() domain.CustomerRepository
	Products() domain.ProductRepository
	Orders() domain.OrderRepository
	Outbox() domain.OutboxRepository
	Ping(ctx context.Context) error
}

type runtimeDependencies struct {
	store           storage
	products        domain.ProductRepository
	idempotencyRepo domain.IdempotencyRepository
	storageChecker  healthcheck.Checker
	cacheChecker    healthcheck.Checker
	closers         []func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to release dependency")
		}
	}
}

// initRuntimeDependencies поднимает хранилище и кеш каталога по конфигурации.
func initRuntimeDependencies(ctx context.Context, cfg Config, m *metrics.ServiceMetrics, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{}

	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", StorageDriverMemory:
		store := memory.NewStore()
		deps.store = store
		deps.idempotencyRepo = memory.NewIdempotencyRepository()
		logger.Info("using in-memory storage")
	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("postgres storage requires dsn")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, store.Close)
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				deps.close(logger)
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.store = store
		deps.idempotencyRepo = postgres.NewIdempotencyRepository(store)
		logger.Info("using postgres storage")
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	deps.storageChecker = healthcheck.NewPingChecker("storage", deps.store, true)
	deps.products = deps.store.Products()

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		deps.closers = append(deps.closers, client.Close)
		deps.products = rediscache.NewProductCache(deps.store.Products(), client,
			rediscache.WithTTL(cfg.ProductTTL),
			rediscache.WithLogger(logger.WithField("component", "product-cache")),
			rediscache.WithLookupObserver(m.RecordCacheLookup),
		)
		// Недоступный кеш деградирует сервис, но не выводит его из строя.
		deps.cacheChecker = healthcheck.NewPingChecker("product-cache", healthcheck.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}), false)
		logger.WithField("addr", cfg.RedisAddr).Info("product cache enabled")
	}

	return deps, nil
}

// initKafkaProducer создаёт producer, если брокеры заданы. Без брокеров возвращает nil, nil.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		return nil, err
	}
	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafkaProducer закрывает producer, если он был создан.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}

// logPublisher помечает события доставленными, только записывая их в лог.
// Используется, когда Kafka не настроена.
type logPublisher struct {
	logger *log.Entry
}

func (p logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"event_id":       event.ID,
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
	}).Debug("outbox event")
	return nil
}
