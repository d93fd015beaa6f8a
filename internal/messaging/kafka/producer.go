package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultClientID = "customer-service"

// Record - одно сообщение для отправки. Value сериализуется в JSON.
type Record struct {
	Topic   string
	Key     string
	Value   any
	Headers []sarama.RecordHeader
}

// Delivery - куда брокер записал сообщение.
type Delivery struct {
	Partition int32
	Offset    int64
}

// Producer отправляет JSON-сообщения синхронно, дожидаясь подтверждения всех реплик.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
	now    func() time.Time
}

// ProducerOption настраивает sarama.Config перед подключением.
type ProducerOption func(*sarama.Config)

// WithClientID переопределяет client.id.
func WithClientID(id string) ProducerOption {
	return func(c *sarama.Config) {
		if id != "" {
			c.ClientID = id
		}
	}
}

// WithRetries задаёт число повторов отправки внутри sarama.
func WithRetries(n int) ProducerOption {
	return func(c *sarama.Config) {
		if n >= 0 {
			c.Producer.Retry.Max = n
		}
	}
}

// producerConfig собирает конфигурацию idempotent producer.
func producerConfig(options ...ProducerOption) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = defaultClientID
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Return.Successes = true
	c.Producer.Retry.Max = 5
	c.Producer.Compression = sarama.CompressionSnappy
	c.Producer.Idempotent = true
	// idempotent producer требует не более одного запроса в полёте
	c.Net.MaxOpenRequests = 1

	for _, option := range options {
		option(c)
	}
	return c
}

// NewProducer подключается к брокерам.
func NewProducer(brokers []string, options ...ProducerOption) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, producerConfig(options...))
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer to %v: %w", brokers, err)
	}
	return NewSyncProducer(sp), nil
}

// NewSyncProducer оборачивает готовый sarama.SyncProducer, например mocks.SyncProducer в тестах.
func NewSyncProducer(sp sarama.SyncProducer) *Producer {
	return &Producer{
		sync:   sp,
		logger: log.WithField("component", "kafka-producer"),
		now:    time.Now,
	}
}

// Send сериализует r.Value и ждёт подтверждения брокера.
func (p *Producer) Send(r Record) (Delivery, error) {
	value, err := json.Marshal(r.Value)
	if err != nil {
		return Delivery{}, fmt.Errorf("encode %s message: %w", r.Topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     r.Topic,
		Value:     sarama.ByteEncoder(value),
		Headers:   r.Headers,
		Timestamp: p.now(),
	}
	if r.Key != "" {
		msg.Key = sarama.StringEncoder(r.Key)
	}

	fields := log.Fields{"topic": r.Topic, "key": r.Key}
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("kafka send failed")
		return Delivery{}, fmt.Errorf("send to %s: %w", r.Topic, err)
	}

	fields["partition"], fields["offset"] = partition, offset
	p.logger.WithFields(fields).Debug("kafka message acknowledged")
	return Delivery{Partition: partition, Offset: offset}, nil
}

func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
