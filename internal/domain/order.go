package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order агрегирует заказ клиента и его позиции.
// Сумма заказа не хранится отдельно: она всегда вычисляется по позициям.
type Order struct {
	id         int64
	number     string
	date       time.Time
	customerID int64
	items      []Item
	valid      bool
}

// orderDraft - состояние заказа до прохождения конвейера проверок.
type orderDraft struct {
	number     string
	date       time.Time
	customerID int64
	items      []Item
	now        time.Time
}

// orderRule - шаг конвейера. Структурные шаги прерывают построение заказа,
// флаговые только влияют на IsValid.
type orderRule struct {
	name  string
	abort bool
	check func(d orderDraft) error
}

// orderPipeline фиксирует порядок проверок заказа.
// Шаги 1-4 прерывают построение; "total" отражается только во флаге валидности.
var orderPipeline = []orderRule{
	{name: "number", abort: true, check: func(d orderDraft) error {
		if len(d.number) < 1 {
			return NewError(KindStructural, "The length of the number cannot be less than 1 characters.")
		}
		return nil
	}},
	{name: "date", abort: true, check: func(d orderDraft) error {
		if NotFutureDate("date", d.date, d.now) != nil {
			return NewError(KindTemporal, MsgOrderDateError)
		}
		return nil
	}},
	{name: "customer", abort: true, check: func(d orderDraft) error {
		if d.customerID <= 0 {
			return NewError(KindStructural, "The customer id must be greater than zero.")
		}
		return nil
	}},
	{name: "items", abort: true, check: func(d orderDraft) error {
		if len(d.items) == 0 {
			return NewError(KindStructural, "The order must have at least one item.")
		}
		return nil
	}},
	{name: "total", abort: false, check: func(d orderDraft) error {
		if !sumItems(d.items).IsPositive() {
			return NewError(KindStructural, "order total must be greater than zero")
		}
		return nil
	}},
}

// runOrderPipeline возвращает ошибку первого прерывающего шага или флаг валидности.
func runOrderPipeline(d orderDraft) (bool, error) {
	valid := true
	for _, rule := range orderPipeline {
		if err := rule.check(d); err != nil {
			if rule.abort {
				return false, err
			}
			valid = false
		}
	}
	return valid, nil
}

// RegisterNewOrder строит новый заказ из клиентского ввода.
// Частично построенный заказ наружу не возвращается.
func RegisterNewOrder(number string, date time.Time, customerID int64, items []Item, now time.Time) (*Order, error) {
	d := orderDraft{number: number, date: date, customerID: customerID, items: items, now: now}
	valid, err := runOrderPipeline(d)
	if err != nil {
		return nil, err
	}
	return &Order{
		number:     number,
		date:       date,
		customerID: customerID,
		items:      copyItems(items),
		valid:      valid,
	}, nil
}

// SetExistingOrder восстанавливает заказ из хранилища. Сохранённая сумма сверяется с позициями.
func SetExistingOrder(id, customerID int64, number string, date time.Time, items []Item, persistedTotal decimal.Decimal, now time.Time) (*Order, error) {
	if err := PositiveInt("orderId", id); err != nil {
		return nil, err
	}
	d := orderDraft{number: number, date: date, customerID: customerID, items: items, now: now}
	valid, err := runOrderPipeline(d)
	if err != nil {
		return nil, err
	}
	if calc := sumItems(items); !calc.Equal(persistedTotal) {
		return nil, WrapError(KindIntegrity, ErrAmountMismatch.Message,
			fmt.Errorf("order %d: persisted %s, items %s", id, persistedTotal, calc))
	}
	return &Order{
		id:         id,
		number:     number,
		date:       date,
		customerID: customerID,
		items:      copyItems(items),
		valid:      valid,
	}, nil
}

// WithID возвращает копию заказа с назначенным хранилищем идентификатором.
func (o *Order) WithID(id int64) *Order {
	out := *o
	out.id = id
	out.items = copyItems(o.items)
	return &out
}

// ID возвращает идентификатор заказа (0 до сохранения).
func (o *Order) ID() int64 { return o.id }

// Number возвращает номер заказа.
func (o *Order) Number() string { return o.number }

// Date возвращает дату заказа.
func (o *Order) Date() time.Time { return o.date }

// CustomerID возвращает идентификатор клиента.
func (o *Order) CustomerID() int64 { return o.customerID }

// Items возвращает копию позиций заказа.
func (o *Order) Items() []Item { return copyItems(o.items) }

// Total = сумма LineTotal по всем позициям.
func (o *Order) Total() decimal.Decimal { return sumItems(o.items) }

// IsValid сообщает результат конвейера проверок.
func (o *Order) IsValid() bool { return o.valid }

func sumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func copyItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
