package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// CustomerEvent - payload событий жизненного цикла клиента.
type CustomerEvent struct {
	CustomerID int64     `json:"customer_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Addresses  int       `json:"addresses"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderEvent - payload события создания заказа.
type OrderEvent struct {
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	Number     string    `json:"number"`
	Total      string    `json:"total"`
	Items      int       `json:"items"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCustomerMessage собирает outbox-сообщение о клиенте.
func NewCustomerMessage(eventType string, c Customer, at time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(CustomerEvent{
		CustomerID: c.ID,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Addresses:  len(c.Addresses),
		OccurredAt: at.UTC(),
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal customer event: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregateCustomer,
		AggregateID:   strconv.FormatInt(c.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

// NewOrderCreatedMessage собирает outbox-сообщение о созданном заказе.
func NewOrderCreatedMessage(o *Order, at time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(OrderEvent{
		OrderID:    o.ID(),
		CustomerID: o.CustomerID(),
		Number:     o.Number(),
		Total:      o.Total().StringFixed(2),
		Items:      len(o.items),
		OccurredAt: at.UTC(),
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   strconv.FormatInt(o.ID(), 10),
		EventType:     EventOrderCreated,
		Payload:       payload,
	}, nil
}
