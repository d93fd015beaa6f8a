// Package outbox доставляет события transactional outbox во внешний брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

const (
	defaultPollInterval  = time.Second
	defaultBatchSize     = 100
	defaultMaxAttempts   = 3
	defaultRetryDelay    = 50 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second
)

var (
	publishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "customers_outbox_publish_attempts_total",
		Help: "Outbox publish attempts grouped by result.",
	}, []string{"result"})
	backlogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "customers_outbox_pending_records",
		Help: "Pending records in the transactional outbox.",
	})
	backlogAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "customers_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending outbox record.",
	})
)

// Report - итог одного прохода по outbox.
type Report struct {
	Pulled       int
	Sent         int
	DeadLettered int
}

// Worker публикует pending-события из outbox в порядке постановки.
// Событие помечается sent только после успешной публикации: доставка at-least-once.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	logger    *log.Entry

	pollInterval  time.Duration
	batchSize     int
	maxAttempts   int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// Option настраивает Worker.
type Option func(*Worker)

func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDLQPublisher задаёт получателя событий, исчерпавших попытки.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) { w.dlq = publisher }
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithMaxAttempts задаёт число попыток публикации одного события.
func WithMaxAttempts(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithRetryBaseDelay задаёт первую паузу между попытками; дальше она удваивается.
// Ноль отключает паузы.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) { w.retryDelay = max(delay, 0) }
}

// WithMaxRetryDelay ограничивает рост паузы между попытками.
func WithMaxRetryDelay(delay time.Duration) Option {
	return func(w *Worker) {
		if delay > 0 {
			w.maxRetryDelay = delay
		}
	}
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	w := &Worker{
		repo:          repo,
		publisher:     publisher,
		logger:        log.WithField("component", "outbox-worker"),
		pollInterval:  defaultPollInterval,
		batchSize:     defaultBatchSize,
		maxAttempts:   defaultMaxAttempts,
		retryDelay:    defaultRetryDelay,
		maxRetryDelay: defaultMaxRetryDelay,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run опрашивает outbox до отмены ctx. Пока пачки приходят полными,
// следующая забирается сразу, без ожидания тика.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker disabled: repository or publisher is missing")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		r := w.ProcessOnce(ctx)
		if r.Pulled < w.batchSize || r.Sent+r.DeadLettered < r.Pulled {
			return
		}
	}
}

// ProcessOnce забирает одну пачку и публикует её по порядку.
func (w *Worker) ProcessOnce(ctx context.Context) Report {
	var r Report
	if ctx.Err() != nil {
		return r
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("pull pending outbox messages")
		return r
	}
	r.Pulled = len(batch)

	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		switch w.deliver(ctx, msg) {
		case delivered:
			r.Sent++
		case deadLettered:
			r.DeadLettered++
		}
	}
	return r
}

type outcome int

const (
	interrupted outcome = iota
	delivered
	deadLettered
)

func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) outcome {
	entry := w.logger.WithFields(log.Fields{
		"outbox_id":    msg.ID,
		"event_type":   msg.EventType,
		"aggregate_id": msg.AggregateID,
	})

	err := w.publish(ctx, msg)
	if err == nil {
		if err := w.repo.MarkSent(ctx, msg.ID); err != nil {
			entry.WithError(err).Warn("mark outbox message sent")
		}
		return delivered
	}
	if ctx.Err() != nil {
		// сообщение остаётся pending и уйдёт при следующем запуске
		return interrupted
	}

	entry.WithError(err).Error("outbox message exhausted publish attempts")
	publishResults.WithLabelValues("failed").Inc()
	if dlqErr := w.deadLetter(msg, err); dlqErr != nil {
		entry.WithError(dlqErr).Warn("dead-letter outbox message")
		publishResults.WithLabelValues("dlq_failed").Inc()
	}
	if err := w.repo.MarkFailed(ctx, msg.ID); err != nil {
		entry.WithError(err).Warn("mark outbox message failed")
	}
	return deadLettered
}

func (w *Worker) publish(ctx context.Context, msg domain.OutboxMessage) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = w.publisher.Publish(msg); err == nil {
			publishResults.WithLabelValues("sent").Inc()
			return nil
		}
		publishResults.WithLabelValues("retry_error").Inc()
		if attempt >= w.maxAttempts {
			return fmt.Errorf("publish failed after %d attempts: %w", attempt, err)
		}

		if d := w.retryBackoff(attempt); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
}

// retryBackoff возвращает паузу после попытки attempt: base, 2*base, 4*base, не больше maxRetryDelay.
func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryDelay <= 0 {
		return 0
	}
	d := w.retryDelay
	for i := 1; i < attempt && d < w.maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, w.maxRetryDelay)
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Debug("collect outbox backlog stats")
		return
	}
	backlogSize.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		backlogAge.Set(0)
		return
	}
	backlogAge.Set(max(time.Since(stats.OldestPendingAt).Seconds(), 0))
}

// deadLetterEnvelope - содержимое сообщения в DLQ.
type deadLetterEnvelope struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	FailedAt      time.Time       `json:"failed_at"`
}

func (w *Worker) deadLetter(msg domain.OutboxMessage, cause error) error {
	if w.dlq == nil {
		return nil
	}

	payload := json.RawMessage(msg.Payload)
	if !json.Valid(payload) {
		// битый payload передаём строкой, чтобы конверт оставался валидным JSON
		quoted, _ := json.Marshal(string(msg.Payload))
		payload = quoted
	}

	body, err := json.Marshal(deadLetterEnvelope{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishError:  cause.Error(),
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}

	dead := msg
	dead.Payload = body
	if err := w.dlq.Publish(dead); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
