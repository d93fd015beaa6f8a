// Package order реализует создание и чтение заказов.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
)

// ItemRequest - позиция нового заказа; продукт указывается кодом каталога.
type ItemRequest struct {
	ProductCode string
	ProductName string
	UnitValue   decimal.Decimal
	Quantity    int
}

// CreateRequest - входные данные нового заказа.
type CreateRequest struct {
	Number     string
	Date       time.Time
	CustomerID int64
	Items      []ItemRequest
}

// Store - хранилище заказов с транзакциями.
type Store interface {
	domain.UnitOfWork
	Orders() domain.OrderRepository
	Customers() domain.CustomerRepository
}

// Service создаёт и читает заказы.
type Service struct {
	store    Store
	products domain.ProductRepository
	metrics  *metrics.ServiceMetrics
	logger   *log.Entry
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics задаёт коллекторы метрик.
func WithMetrics(m *metrics.ServiceMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт сервис заказов. products может быть кеширующей обёрткой каталога.
func NewService(store Store, products domain.ProductRepository, opts ...Option) *Service {
	s := &Service{
		store:    store,
		products: products,
		logger:   log.WithField("component", "order-service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create проверяет клиента и продукты, строит заказ и сохраняет его вместе с событием.
func (s *Service) Create(ctx context.Context, req CreateRequest) (created *domain.Order, err error) {
	defer s.observe("create", time.Now(), &err)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, s.storageError(err)
	}
	s.metrics.TransactionStarted()
	defer s.metrics.TransactionFinished()
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Customers().Get(ctx, req.CustomerID); err != nil {
		return nil, s.storageError(err)
	}

	items := make([]domain.Item, 0, len(req.Items))
	for _, r := range req.Items {
		item, err := s.buildItem(ctx, r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	now := s.now()
	o, err := domain.RegisterNewOrder(req.Number, req.Date, req.CustomerID, items, now)
	if err != nil {
		return nil, err
	}
	if !o.IsValid() {
		return nil, domain.ErrOrderFieldsInvalid
	}

	created, err = tx.Orders().Create(ctx, o)
	if err != nil {
		return nil, s.storageError(err)
	}
	msg, err := domain.NewOrderCreatedMessage(created, now)
	if err != nil {
		return nil, s.storageError(err)
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return nil, s.storageError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.storageError(err)
	}
	s.metrics.RecordOutboxEvent()

	s.logger.WithFields(log.Fields{
		"order_id":    created.ID(),
		"customer_id": created.CustomerID(),
		"total":       created.Total().String(),
	}).Info("order created")
	return created, nil
}

// buildItem находит продукт по коду и строит позицию.
// Имя из запроса имеет приоритет; пустое имя берётся из каталога.
func (s *Service) buildItem(ctx context.Context, r ItemRequest) (domain.Item, error) {
	found, err := s.products.GetByCode(ctx, r.ProductCode)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Item{}, domain.ProductCodeNotFoundError(r.ProductCode)
		}
		return domain.Item{}, s.storageError(err)
	}

	name := r.ProductName
	if name == "" {
		name = found.Name
	}
	p := domain.SetExistingProduct(found.ID, r.ProductCode, name)
	if !p.IsValid() {
		return domain.Item{}, domain.ErrProductFieldsInvalid
	}
	return domain.RegisterNewItem(p, r.UnitValue, r.Quantity)
}

// Get возвращает заказ по id.
func (s *Service) Get(ctx context.Context, id int64) (o *domain.Order, err error) {
	defer s.observe("get", time.Now(), &err)

	o, err = s.store.Orders().Get(ctx, id)
	if err != nil {
		return nil, s.storageError(err)
	}
	return o, nil
}

// List возвращает страницу заказов.
func (s *Service) List(ctx context.Context, pageNumber, pageSize int) (orders []*domain.Order, err error) {
	defer s.observe("list", time.Now(), &err)

	offset, limit, err := domain.PageBounds(pageNumber, pageSize)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return []*domain.Order{}, nil
	}
	orders, err = s.store.Orders().List(ctx, offset, limit)
	if err != nil {
		return nil, s.storageError(err)
	}
	return orders, nil
}

// ListByCustomer возвращает заказы клиента; отсутствующий клиент - 404.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64) (orders []*domain.Order, err error) {
	defer s.observe("list_by_customer", time.Now(), &err)

	if _, err := s.store.Customers().Get(ctx, customerID); err != nil {
		return nil, s.storageError(err)
	}
	orders, err = s.store.Orders().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, s.storageError(err)
	}
	return orders, nil
}

// ProductLookup загружает продукты, на которые ссылаются заказы, и возвращает поиск по коду.
// Отсутствующий продукт не считается ошибкой здесь: его обработает проекция ответа.
func (s *Service) ProductLookup(ctx context.Context, orders ...*domain.Order) (func(code string) (domain.Product, bool), error) {
	index := make(map[string]domain.Product)
	for _, o := range orders {
		for _, item := range o.Items() {
			code := item.ProductCode()
			if _, ok := index[code]; ok {
				continue
			}
			p, err := s.products.GetByCode(ctx, code)
			switch {
			case err == nil:
				index[code] = p
			case errors.Is(err, domain.ErrProductNotFound):
			default:
				return nil, s.storageError(err)
			}
		}
	}
	return func(code string) (domain.Product, bool) {
		p, ok := index[code]
		return p, ok
	}, nil
}

func (s *Service) storageError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	s.logger.WithError(err).Error("order storage failure")
	return domain.WrapError(domain.KindIntegrity, "", err)
}

func (s *Service) observe(op string, started time.Time, err *error) {
	s.metrics.RecordOperation("order."+op, *err, time.Since(started))
}
