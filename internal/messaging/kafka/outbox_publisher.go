package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

var errPublisherNotReady = errors.New("kafka event publisher is not initialized")

// EventPublisher отправляет outbox-сообщения в Kafka.
// Пустой topic означает маршрутизацию по типу агрегата.
type EventPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт паблишер для outbox worker.
func NewOutboxPublisher(producer *Producer, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic}
}

// outboxEnvelope - тело сообщения в topic.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// Publish отправляет одно сообщение; события одного агрегата попадают в одну партицию.
func (p *EventPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotReady
	}
	if !json.Valid(msg.Payload) {
		return fmt.Errorf("outbox %s: payload is not valid json", msg.ID)
	}

	_, err := p.producer.Send(p.record(msg))
	return err
}

func (p *EventPublisher) record(msg domain.OutboxMessage) Record {
	topic := p.topic
	if topic == "" {
		topic = TopicFor(msg.AggregateType, TopicCustomerEvents)
	}
	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}

	return Record{
		Topic: topic,
		Key:   key,
		Value: outboxEnvelope{
			ID:            msg.ID,
			AggregateType: msg.AggregateType,
			AggregateID:   msg.AggregateID,
			EventType:     msg.EventType,
			Payload:       msg.Payload,
			PublishedAt:   time.Now().UTC(),
		},
		Headers: headersOf(msg),
	}
}

// headersOf: event type идёт первым, по нему фильтруют консьюмеры.
func headersOf(msg domain.OutboxMessage) []sarama.RecordHeader {
	pairs := [...][2]string{
		{HeaderEventType, msg.EventType},
		{HeaderAggregateType, msg.AggregateType},
		{HeaderOutboxID, msg.ID},
	}
	out := make([]sarama.RecordHeader, 0, len(pairs))
	for _, kv := range pairs {
		out = append(out, sarama.RecordHeader{Key: []byte(kv[0]), Value: []byte(kv[1])})
	}
	return out
}

var _ domain.OutboxPublisher = (*EventPublisher)(nil)
