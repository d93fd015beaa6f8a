// Package idempotency реализует повтор ответов по Idempotency-Key и очистку просроченных ключей.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

const (
	defaultSweepInterval   = 10 * time.Minute
	defaultSweepBatchSize  = 500
	defaultSweepMaxBatches = 20
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "customers_idempotency_cleanup_runs_total",
		Help: "Idempotency key sweeps grouped by result.",
	}, []string{"result"})
	sweptKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "customers_idempotency_cleanup_deleted_total",
		Help: "Expired idempotency keys removed by sweeps.",
	})
	lastSweepDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "customers_idempotency_cleanup_last_deleted",
		Help: "Keys removed by the most recent sweep.",
	})
)

// SweepResult - итог одного прохода очистки.
type SweepResult struct {
	Deleted int
	Batches int
	// Truncated выставляется, когда проход упёрся в лимит пачек и просроченные ключи ещё остались.
	Truncated bool
}

// CleanupWorker периодически удаляет ключи идемпотентности с истёкшим TTL.
type CleanupWorker struct {
	repo       domain.IdempotencyRepository
	logger     *log.Entry
	interval   time.Duration
	batchSize  int
	maxBatches int
	now        func() time.Time
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupWorker)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(w *CleanupWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithInterval задаёт паузу между проходами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(w *CleanupWorker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithBatchSize задаёт число ключей, удаляемых одним запросом.
func WithBatchSize(batchSize int) CleanupOption {
	return func(w *CleanupWorker) {
		if batchSize > 0 {
			w.batchSize = batchSize
		}
	}
}

// WithMaxBatches ограничивает число запросов за один проход.
func WithMaxBatches(n int) CleanupOption {
	return func(w *CleanupWorker) {
		if n > 0 {
			w.maxBatches = n
		}
	}
}

// WithCleanupClock подменяет часы; ключи с TTL не позже now() считаются просроченными.
func WithCleanupClock(now func() time.Time) CleanupOption {
	return func(w *CleanupWorker) {
		if now != nil {
			w.now = now
		}
	}
}

// NewCleanupWorker создаёт воркер очистки.
func NewCleanupWorker(repo domain.IdempotencyRepository, options ...CleanupOption) *CleanupWorker {
	w := &CleanupWorker{
		repo:       repo,
		logger:     log.WithField("component", "idempotency-cleanup"),
		interval:   defaultSweepInterval,
		batchSize:  defaultSweepBatchSize,
		maxBatches: defaultSweepMaxBatches,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run делает проход сразу и затем раз в interval, пока ctx не отменён.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("idempotency cleanup disabled: no repository")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweepAndReport(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *CleanupWorker) sweepAndReport(ctx context.Context) {
	res, err := w.Sweep(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		sweepRuns.WithLabelValues("error").Inc()
		w.logger.WithError(err).WithField("deleted", res.Deleted).Warn("idempotency cleanup failed")
		return
	}

	sweepRuns.WithLabelValues("ok").Inc()
	lastSweepDeleted.Set(float64(res.Deleted))
	if res.Truncated {
		w.logger.WithField("deleted", res.Deleted).Warn("idempotency cleanup hit batch limit, backlog remains")
	} else if res.Deleted > 0 {
		w.logger.WithField("deleted", res.Deleted).Debug("idempotency cleanup completed")
	}
}

// Sweep удаляет ключи, просроченные на момент вызова, пачками по batchSize.
// Проход заканчивается на неполной пачке или после maxBatches запросов.
func (w *CleanupWorker) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	cutoff := w.now()

	for res.Batches < w.maxBatches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n, err := w.repo.DeleteExpired(ctx, cutoff, w.batchSize)
		res.Batches++
		if err != nil {
			return res, err
		}
		res.Deleted += n
		sweptKeys.Add(float64(n))

		if n < w.batchSize {
			return res, nil
		}
	}

	res.Truncated = true
	return res, nil
}
