// Package rediscache кеширует чтения каталога продуктов в Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

const (
	defaultTTL    = 10 * time.Minute
	defaultPrefix = "customers:product:"
)

// Client - подмножество *redis.Client, которое использует кеш.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Option настраивает ProductCache.
type Option func(*ProductCache)

// WithTTL задаёт время жизни записи кеша.
func WithTTL(ttl time.Duration) Option {
	return func(c *ProductCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix задаёт префикс ключей.
func WithPrefix(prefix string) Option {
	return func(c *ProductCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(c *ProductCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLookupObserver задаёт колбэк, получающий результат каждого чтения из кеша.
func WithLookupObserver(observe func(hit bool)) Option {
	return func(c *ProductCache) {
		if observe != nil {
			c.observe = observe
		}
	}
}

// ProductCache - read-through декоратор ProductRepository.
// Продукты неизменяемы: запись живёт до истечения TTL.
// При ошибке Redis чтение идёт в репозиторий.
type ProductCache struct {
	next    domain.ProductRepository
	client  Client
	ttl     time.Duration
	prefix  string
	logger  *log.Entry
	observe func(hit bool)
}

// NewProductCache оборачивает репозиторий каталога.
func NewProductCache(next domain.ProductRepository, client Client, opts ...Option) *ProductCache {
	c := &ProductCache{
		next:    next,
		client:  client,
		ttl:     defaultTTL,
		prefix:  defaultPrefix,
		logger:  log.WithField("component", "product-cache"),
		observe: func(bool) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedProduct struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

func (c *ProductCache) Get(ctx context.Context, id int64) (domain.Product, error) {
	key := fmt.Sprintf("%sid:%d", c.prefix, id)
	if p, ok := c.load(ctx, key); ok {
		return p, nil
	}
	p, err := c.next.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	c.store(ctx, p)
	return p, nil
}

func (c *ProductCache) GetByCode(ctx context.Context, code string) (domain.Product, error) {
	key := c.prefix + "code:" + code
	if p, ok := c.load(ctx, key); ok {
		return p, nil
	}
	p, err := c.next.GetByCode(ctx, code)
	if err != nil {
		return domain.Product{}, err
	}
	c.store(ctx, p)
	return p, nil
}

// List не кешируется: страницы каталога меняются при каждом добавлении.
func (c *ProductCache) List(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	return c.next.List(ctx, offset, limit)
}

func (c *ProductCache) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	created, err := c.next.Create(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	c.store(ctx, created)
	return created, nil
}

// Ping проверяет доступность Redis.
func (c *ProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ProductCache) load(ctx context.Context, key string) (domain.Product, bool) {
	p, ok := c.lookup(ctx, key)
	c.observe(ok)
	return p, ok
}

func (c *ProductCache) lookup(ctx context.Context, key string) (domain.Product, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("product cache read failed")
		}
		return domain.Product{}, false
	}

	var cp cachedProduct
	if err := json.Unmarshal(raw, &cp); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("product cache entry is corrupted")
		return domain.Product{}, false
	}

	p := domain.SetExistingProduct(cp.ID, cp.Code, cp.Name)
	if !p.IsValid() {
		return domain.Product{}, false
	}
	return p, true
}

func (c *ProductCache) store(ctx context.Context, p domain.Product) {
	raw, err := json.Marshal(cachedProduct{ID: p.ID, Code: p.Code, Name: p.Name})
	if err != nil {
		return
	}
	for _, key := range []string{
		fmt.Sprintf("%sid:%d", c.prefix, p.ID),
		c.prefix + "code:" + p.Code,
	} {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("product cache write failed")
			return
		}
	}
}

var _ domain.ProductRepository = (*ProductCache)(nil)
