// Package customer реализует сценарии работы с клиентами и их адресами.
package customer

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
)

// Store - хранилище, которым пользуется сервис: транзакции и чтение вне транзакции.
type Store interface {
	domain.UnitOfWork
	Customers() domain.CustomerRepository
}

// Service координирует проверки, транзакции и события outbox для клиентов.
type Service struct {
	store   Store
	metrics *metrics.ServiceMetrics
	logger  *log.Entry
	now     func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics задаёт коллекторы метрик; nil отключает метрики.
func WithMetrics(m *metrics.ServiceMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт сервис клиентов.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: log.WithField("component", "customer-service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List возвращает страницу клиентов с адресами.
func (s *Service) List(ctx context.Context, pageNumber, pageSize int) (result []domain.Customer, err error) {
	defer s.observe("list", time.Now(), &err)

	offset, limit, err := domain.PageBounds(pageNumber, pageSize)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return []domain.Customer{}, nil
	}

	customers, err := s.store.Customers().List(ctx, offset, limit)
	if err != nil {
		return nil, s.persistenceError("list customers", err)
	}
	return customers, nil
}

// Get возвращает клиента с адресами.
func (s *Service) Get(ctx context.Context, id int64) (c domain.Customer, err error) {
	defer s.observe("get", time.Now(), &err)

	c, err = s.store.Customers().Get(ctx, id)
	if err != nil {
		return domain.Customer{}, s.persistenceError("get customer", err)
	}
	return c, nil
}

// Create регистрирует одного клиента. Проверки идут в том же порядке, что и в пакетном создании:
// дата рождения, адреса, уникальность email, валидность агрегата.
func (s *Service) Create(ctx context.Context, in domain.CustomerInput) (created domain.Customer, err error) {
	defer s.observe("create", time.Now(), &err)

	now := s.now()
	if domain.NotFutureDate("dateOfBirth", in.DateOfBirth, now) != nil {
		return domain.Customer{}, domain.ErrDateOfBirthInFuture
	}
	if domain.HasDuplicateAddressInList(in.Addresses) {
		return domain.Customer{}, domain.ErrAddressExists
	}

	c := domain.RegisterNewCustomer(in, now)
	if !c.IsValid() {
		return domain.Customer{}, c.FirstProblem()
	}

	err = s.inTx(ctx, func(tx domain.Tx) error {
		if err := ensureEmailFree(ctx, tx, in.Email, 0); err != nil {
			return err
		}
		stored, err := tx.Customers().Create(ctx, c)
		if err != nil {
			return err
		}
		created = stored
		return s.enqueue(ctx, tx, domain.EventCustomerCreated, stored)
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("customer_id", created.ID).Info("customer created")
	return created, nil
}

// Replace полностью заменяет поля клиента и его адреса.
func (s *Service) Replace(ctx context.Context, id int64, in domain.CustomerInput) (replaced domain.Customer, err error) {
	defer s.observe("replace", time.Now(), &err)

	now := s.now()
	if domain.NotFutureDate("dateOfBirth", in.DateOfBirth, now) != nil {
		return domain.Customer{}, domain.ErrDateOfBirthInFuture
	}
	if domain.HasDuplicateAddressInList(in.Addresses) {
		return domain.Customer{}, domain.ErrAddressExists
	}

	err = s.inTx(ctx, func(tx domain.Tx) error {
		if _, err := tx.Customers().Get(ctx, id); err != nil {
			return err
		}
		if err := ensureEmailFree(ctx, tx, in.Email, id); err != nil {
			return err
		}

		c := domain.RegisterNewCustomer(in, now)
		if !c.IsValid() {
			return c.FirstProblem()
		}
		c.ID = id
		if err := tx.Customers().Update(ctx, c); err != nil {
			return err
		}
		if _, err := tx.Addresses().ReplaceForCustomer(ctx, id, c.Addresses); err != nil {
			return err
		}
		return s.reloadAndEnqueue(ctx, tx, id, &replaced)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return replaced, nil
}

// Patch применяет частичное обновление полей клиента.
// Email, совпадающий с текущим, не считается конфликтом.
func (s *Service) Patch(ctx context.Context, id int64, patch domain.CustomerPatch) (patched domain.Customer, err error) {
	defer s.observe("patch", time.Now(), &err)

	err = s.inTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Customers().Get(ctx, id)
		if err != nil {
			return err
		}
		if email, ok := patch.Email.Get(); ok && email != existing.Email {
			if err := ensureEmailFree(ctx, tx, email, id); err != nil {
				return err
			}
		}

		merged, err := domain.MergeCustomerPatch(existing, patch, s.now())
		if err != nil {
			return err
		}
		if !merged.IsValid() {
			return merged.FirstProblem()
		}
		if err := tx.Customers().Update(ctx, merged); err != nil {
			return err
		}
		return s.reloadAndEnqueue(ctx, tx, id, &patched)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return patched, nil
}

// Delete удаляет клиента вместе с адресами. Клиента с заказами удалить нельзя.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	defer s.observe("delete", time.Now(), &err)

	return s.inTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Customers().Get(ctx, id)
		if err != nil {
			return err
		}
		orders, err := tx.Orders().CountByCustomer(ctx, id)
		if err != nil {
			return err
		}
		if orders > 0 {
			return domain.ErrCustomerHasOrders
		}
		if err := tx.Customers().Delete(ctx, id); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, domain.EventCustomerDeleted, existing)
	})
}

// ensureEmailFree проверяет, что email не занят другим клиентом (owner == 0 для нового).
func ensureEmailFree(ctx context.Context, tx domain.Tx, email string, owner int64) error {
	found, err := tx.Customers().GetByEmail(ctx, email)
	switch {
	case err == nil:
		if found.ID != owner {
			return domain.ErrEmailExists
		}
		return nil
	case errors.Is(err, domain.ErrCustomerNotFound):
		return nil
	default:
		return err
	}
}

// inTx выполняет fn в транзакции. Любая ошибка откатывает транзакцию;
// ошибки хранилища без вида ядра превращаются в нарушение целостности.
func (s *Service) inTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return s.persistenceError("begin transaction", err)
	}
	s.metrics.TransactionStarted()
	defer s.metrics.TransactionFinished()
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return s.persistenceError("transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return s.persistenceError("commit", err)
	}
	return nil
}

func (s *Service) reloadAndEnqueue(ctx context.Context, tx domain.Tx, id int64, out *domain.Customer) error {
	c, err := tx.Customers().Get(ctx, id)
	if err != nil {
		return err
	}
	*out = c
	return s.enqueue(ctx, tx, domain.EventCustomerUpdated, c)
}

func (s *Service) enqueue(ctx context.Context, tx domain.Tx, eventType string, c domain.Customer) error {
	msg, err := domain.NewCustomerMessage(eventType, c, s.now())
	if err != nil {
		return err
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return err
	}
	s.metrics.RecordOutboxEvent()
	return nil
}

// persistenceError оставляет ошибки ядра как есть, остальные логирует и скрывает за IntegrityFault.
func (s *Service) persistenceError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Kind == domain.KindIntegrity {
			s.logger.WithError(err).WithField("operation", op).Error("storage failure")
		}
		return err
	}
	s.logger.WithError(err).WithField("operation", op).Error("storage failure")
	return domain.WrapError(domain.KindIntegrity, "", err)
}

func (s *Service) observe(op string, started time.Time, err *error) {
	s.metrics.RecordOperation("customer."+op, *err, time.Since(started))
}
