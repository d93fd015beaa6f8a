package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// DefaultTTL - срок хранения ответа по ключу.
const DefaultTTL = 24 * time.Hour

// Ошибки Acquire, которые транспорт отдаёт клиенту.
var (
	// ErrInProgress - запрос с тем же ключом ещё обрабатывается.
	ErrInProgress = errors.New("request with the same idempotency key is already processing")
	// ErrKeyReused - ключ уже использован с другим телом запроса.
	ErrKeyReused = errors.New("idempotency key is already used with different request payload")
)

// Replay - сохранённый ответ на повторный запрос.
type Replay struct {
	Status int
	Body   []byte
}

// Guard управляет жизненным циклом ключей идемпотентности вокруг обработчика.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	now    func() time.Time
	logger *log.Entry
}

// NewGuard создаёт Guard поверх репозитория.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{
		repo:   repo,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithField("component", "idempotency-guard"),
	}
}

// RequestHash строит отпечаток запроса по маршруту и телу.
func RequestHash(route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Acquire резервирует ключ. Если по ключу уже сохранён ответ, возвращает его для повтора.
func (g *Guard) Acquire(ctx context.Context, key, requestHash string) (*Replay, error) {
	key = strings.TrimSpace(key)
	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().Add(g.ttl))
	if err == nil {
		return nil, nil
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return nil, ErrKeyReused
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			if record.HTTPStatus == 0 {
				return nil, fmt.Errorf("idempotency key %s: cached response is empty", key)
			}
			return &Replay{Status: record.HTTPStatus, Body: record.ResponseBody}, nil
		default:
			return nil, ErrInProgress
		}
	default:
		return nil, err
	}
}

// Complete сохраняет ответ. Ответы 5xx помечаются failed и тоже повторяются.
func (g *Guard) Complete(ctx context.Context, key string, status int, body []byte) {
	mark := g.repo.MarkDone
	if status >= 500 {
		mark = g.repo.MarkFailed
	}
	if err := mark(ctx, strings.TrimSpace(key), body, status); err != nil {
		g.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
}
