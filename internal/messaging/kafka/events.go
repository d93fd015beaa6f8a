package kafka

import "github.com/vladislavdragonenkov/customers/internal/domain"

// Topics для Kafka
const (
	TopicCustomerEvents  = "customers.customer.events"
	TopicOrderEvents     = "customers.order.events"
	TopicDeadLetterQueue = "customers.dlq" // события, не доставленные после всех попыток
)

// Kafka headers сообщения
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// TopicFor возвращает topic по типу агрегата; неизвестные типы уходят в fallback.
func TopicFor(aggregateType, fallback string) string {
	switch aggregateType {
	case domain.AggregateCustomer:
		return TopicCustomerEvents
	case domain.AggregateOrder:
		return TopicOrderEvents
	default:
		return fallback
	}
}
