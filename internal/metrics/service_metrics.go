package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// Исходы пакетного создания клиентов.
const (
	BatchOutcomeNoContent = "no_content"
	BatchOutcomeCreated   = "created"
	BatchOutcomeRejected  = "rejected"
)

// ServiceMetrics содержит метрики операций над клиентами и заказами.
type ServiceMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	batchSize       prometheus.Histogram
	batchOutcomes   *prometheus.CounterVec
	duplicateEmails prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	outboxEvents prometheus.Counter
	cacheLookups *prometheus.CounterVec

	idempotentReplays prometheus.Counter
	openTransactions  prometheus.Gauge
}

// NewServiceMetrics регистрирует метрики в DefaultRegisterer.
func NewServiceMetrics() *ServiceMetrics {
	return NewServiceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewServiceMetricsWithRegisterer регистрирует метрики в переданном registerer.
func NewServiceMetricsWithRegisterer(registerer prometheus.Registerer) *ServiceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ServiceMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "customers_operations_total",
			Help: "Total number of service operations grouped by operation and result",
		}, []string{"operation", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "customers_operation_duration_seconds",
			Help:    "Duration of service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		batchSize: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "customers_batch_size",
			Help:    "Number of records in batch create requests",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		batchOutcomes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "customers_batch_outcomes_total",
			Help: "Total number of batch create requests grouped by outcome",
		}, []string{"outcome"}),
		duplicateEmails: registerCounter(registerer, prometheus.CounterOpts{
			Name: "customers_batch_duplicate_emails_total",
			Help: "Total number of duplicate emails detected in batch input",
		}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "customers_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "customers_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "customers_outbox_events_total",
			Help: "Total number of events written to the outbox",
		}),
		cacheLookups: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "customers_product_cache_lookups_total",
			Help: "Product cache lookups grouped by result",
		}, []string{"result"}),
		idempotentReplays: registerCounter(registerer, prometheus.CounterOpts{
			Name: "customers_idempotent_replays_total",
			Help: "Total number of responses replayed by idempotency key",
		}),
		openTransactions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "customers_open_transactions",
			Help: "Number of currently open unit-of-work transactions",
		}),
	}
}

// ResultLabel сводит ошибку к короткой метке результата.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch domain.KindOf(err) {
	case domain.KindStructural, domain.KindTemporal:
		return "invalid"
	case domain.KindConflict:
		return "conflict"
	case domain.KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// RecordOperation учитывает результат и длительность операции сервиса.
func (m *ServiceMetrics) RecordOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, ResultLabel(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBatch учитывает размер и исход пакетного создания.
func (m *ServiceMetrics) RecordBatch(size int, outcome string) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
	m.batchOutcomes.WithLabelValues(outcome).Inc()
}

// RecordDuplicateEmails учитывает найденные во входе дубликаты email.
func (m *ServiceMetrics) RecordDuplicateEmails(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicateEmails.Add(float64(n))
}

// RecordHTTPRequest учитывает HTTP-запрос.
func (m *ServiceMetrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *ServiceMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}

// RecordCacheLookup учитывает попадание или промах кеша продуктов.
func (m *ServiceMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordIdempotentReplay учитывает ответ, повторённый по ключу идемпотентности.
func (m *ServiceMetrics) RecordIdempotentReplay() {
	if m == nil {
		return
	}
	m.idempotentReplays.Inc()
}

// TransactionStarted увеличивает количество открытых транзакций.
func (m *ServiceMetrics) TransactionStarted() {
	if m == nil {
		return
	}
	m.openTransactions.Inc()
}

// TransactionFinished уменьшает количество открытых транзакций.
func (m *ServiceMetrics) TransactionFinished() {
	if m == nil {
		return
	}
	m.openTransactions.Dec()
}
