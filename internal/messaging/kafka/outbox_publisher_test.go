package kafka

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

func expectTopic(topic string) mocks.MessageChecker {
	return func(msg *sarama.ProducerMessage) error {
		if msg.Topic != topic {
			return fmt.Errorf("topic = %s, want %s", msg.Topic, topic)
		}
		return nil
	}
}

func TestOutboxPublisher_RoutesByAggregateType(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectTopic(TopicCustomerEvents))
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectTopic(TopicOrderEvents))

	publisher := NewOutboxPublisher(NewSyncProducer(mockProducer), "")

	require.NoError(t, publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateCustomer,
		AggregateID:   "7",
		EventType:     domain.EventCustomerCreated,
		Payload:       []byte(`{"customer_id":7}`),
	}))
	require.NoError(t, publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "3",
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{"order_id":3}`),
	}))
	require.NoError(t, mockProducer.Close())
}

func TestOutboxPublisher_FixedTopicEnvelope(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDeadLetterQueue {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var envelope outboxEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return err
		}
		if envelope.ID != "outbox-3" || envelope.EventType != domain.EventCustomerDeleted {
			return fmt.Errorf("unexpected envelope %+v", envelope)
		}
		if len(msg.Headers) != 3 || string(msg.Headers[0].Value) != domain.EventCustomerDeleted {
			return fmt.Errorf("unexpected headers %v", msg.Headers)
		}
		return nil
	})

	publisher := NewOutboxPublisher(NewSyncProducer(mockProducer), TopicDeadLetterQueue)
	require.NoError(t, publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-3",
		AggregateType: domain.AggregateCustomer,
		AggregateID:   "8",
		EventType:     domain.EventCustomerDeleted,
		Payload:       []byte(`{"customer_id":8}`),
	}))
	require.NoError(t, mockProducer.Close())
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewOutboxPublisher(NewSyncProducer(mockProducer), TopicOrderEvents)
	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-4",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "5",
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{}`),
	})
	require.Error(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestOutboxPublisher_InvalidPayload(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	publisher := NewOutboxPublisher(NewSyncProducer(mockProducer), "")

	err := publisher.Publish(domain.OutboxMessage{ID: "outbox-5", Payload: []byte(`{broken`)})
	require.Error(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	require.ErrorIs(t, publisher.Publish(domain.OutboxMessage{ID: "outbox-6"}), errPublisherNotReady)
}

func TestEventPublisher_RecordKeyFallsBackToOutboxID(t *testing.T) {
	t.Parallel()

	rec := NewOutboxPublisher(nil, "").record(domain.OutboxMessage{
		ID:            "outbox-7",
		AggregateType: "invoice",
		EventType:     "invoice.created",
	})
	require.Equal(t, "outbox-7", rec.Key)
	require.Equal(t, TopicCustomerEvents, rec.Topic)
	require.Len(t, rec.Headers, 3)
	require.Equal(t, HeaderOutboxID, string(rec.Headers[2].Key))
}
