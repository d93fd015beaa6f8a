package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
	"github.com/vladislavdragonenkov/customers/internal/projection"
	"github.com/vladislavdragonenkov/customers/internal/service/customer"
	"github.com/vladislavdragonenkov/customers/internal/service/idempotency"
	"github.com/vladislavdragonenkov/customers/internal/service/order"
	"github.com/vladislavdragonenkov/customers/internal/service/outbox"
	"github.com/vladislavdragonenkov/customers/internal/service/product"
	"github.com/vladislavdragonenkov/customers/internal/storage/memory"
	"github.com/vladislavdragonenkov/customers/internal/transport/httpapi"
)

// CustomerLifecycleTestSuite проверяет путь запроса от REST до публикации события в Kafka.
type CustomerLifecycleTestSuite struct {
	suite.Suite
	store    *memory.Store
	router   *gin.Engine
	producer *mocks.SyncProducer
	worker   *outbox.Worker
}

func (s *CustomerLifecycleTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.store = memory.NewStore()
	m := metrics.NewServiceMetricsWithRegisterer(prometheus.NewRegistry())

	s.router = httpapi.NewRouter(httpapi.Dependencies{
		Customers:   customer.NewService(s.store, customer.WithMetrics(m), customer.WithLogger(logger)),
		Orders:      order.NewService(s.store, s.store.Products(), order.WithMetrics(m)),
		Products:    product.NewService(s.store.Products(), m),
		Idempotency: idempotency.NewGuard(memory.NewIdempotencyRepository(), time.Hour),
		Metrics:     m,
		Logger:      logger,
	})

	s.producer = mocks.NewSyncProducer(s.T(), nil)
	s.worker = outbox.NewWorker(s.store.Outbox(),
		kafka.NewOutboxPublisher(kafka.NewSyncProducer(s.producer), ""),
		outbox.WithLogger(logger),
		outbox.WithRetryBaseDelay(time.Millisecond),
	)
}

func (s *CustomerLifecycleTestSuite) TearDownTest() {
	s.Require().NoError(s.producer.Close())
}

func (s *CustomerLifecycleTestSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func customerBody(email string) map[string]any {
	return map[string]any{
		"firstName":   "Ana",
		"lastName":    "Souza",
		"email":       email,
		"dateOfBirth": "1990-01-15",
		"addresses": []map[string]any{{
			"zipCode":      "01001-000",
			"street":       "Rua A",
			"number":       100,
			"neighborhood": "Centro",
			"city":         "São Paulo",
			"state":        "SP",
			"country":      "Brasil",
		}},
	}
}

func expectEvent(topic, eventType string) mocks.MessageChecker {
	return func(msg *sarama.ProducerMessage) error {
		if msg.Topic != topic {
			return fmt.Errorf("topic = %s, want %s", msg.Topic, topic)
		}
		for _, h := range msg.Headers {
			if string(h.Key) == kafka.HeaderEventType {
				if string(h.Value) != eventType {
					return fmt.Errorf("event type = %s, want %s", h.Value, eventType)
				}
				return nil
			}
		}
		return fmt.Errorf("header %s is missing", kafka.HeaderEventType)
	}
}

func (s *CustomerLifecycleTestSuite) TestBatchOrderAndPatchArePublished() {
	rec := s.do(http.MethodPost, "/api/products", map[string]string{"code": "P-1", "name": "Caneta"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/customers/batch",
		[]any{customerBody("a@x.com"), customerBody("b@x.com")},
		httpapi.HeaderIdempotencyKey, "batch-1")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created []projection.CustomerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.Require().Len(created, 2)

	rec = s.do(http.MethodPost, "/api/orders", map[string]any{
		"number":     "A-1",
		"date":       "2024-05-10",
		"customerId": created[0].ID,
		"items": []map[string]any{{
			"product":         map[string]string{"code": "P-1"},
			"unitValue":       "1.25",
			"quantityOfItems": 3,
		}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPatch, fmt.Sprintf("/api/customers/%d", created[1].ID), map[string]string{"lastName": "Lima"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectEvent(kafka.TopicCustomerEvents, domain.EventCustomerCreated))
	s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectEvent(kafka.TopicCustomerEvents, domain.EventCustomerCreated))
	s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectEvent(kafka.TopicOrderEvents, domain.EventOrderCreated))
	s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectEvent(kafka.TopicCustomerEvents, domain.EventCustomerUpdated))

	s.Equal(4, s.worker.ProcessOnce(context.Background()).Sent)
	s.Zero(s.worker.ProcessOnce(context.Background()).Pulled)

	stats, err := s.store.Outbox().Stats(context.Background())
	s.Require().NoError(err)
	s.Zero(stats.PendingCount)
}

func (s *CustomerLifecycleTestSuite) TestRejectedBatchLeavesNoTrace() {
	rec := s.do(http.MethodPost, "/api/customers", customerBody("b@x.com"))
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/api/customers/batch", []any{customerBody("a@x.com"), customerBody("b@x.com")})
	s.Require().Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/customers", nil)
	var listed []projection.CustomerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listed))
	s.Len(listed, 1)

	s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectEvent(kafka.TopicCustomerEvents, domain.EventCustomerCreated))
	s.Equal(1, s.worker.ProcessOnce(context.Background()).Sent)
}

func (s *CustomerLifecycleTestSuite) TestDeleteCascadesAddresses() {
	rec := s.do(http.MethodPost, "/api/customers", customerBody("a@x.com"))
	s.Require().Equal(http.StatusCreated, rec.Code)

	var c projection.CustomerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &c))

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/customers/%d", c.ID), nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)

	_, err := s.store.Addresses().Get(context.Background(), c.Addresses[0].ID)
	s.ErrorIs(err, domain.ErrAddressNotFound)

	s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectEvent(kafka.TopicCustomerEvents, domain.EventCustomerCreated))
	s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectEvent(kafka.TopicCustomerEvents, domain.EventCustomerDeleted))
	s.Equal(2, s.worker.ProcessOnce(context.Background()).Sent)
}

func TestCustomerLifecycleSuite(t *testing.T) {
	suite.Run(t, new(CustomerLifecycleTestSuite))
}
