package customer

import (
	"context"
	"errors"
	"time"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
)

// BatchOutcome - успешный исход пакетного создания. Отказ возвращается ошибкой.
type BatchOutcome int

const (
	// BatchNoContent - пустой вход, хранилище не затрагивалось.
	BatchNoContent BatchOutcome = iota
	// BatchCreated - все записи сохранены.
	BatchCreated
)

// BatchResult - результат CreateBatch. Customers идут в порядке входа.
type BatchResult struct {
	Outcome   BatchOutcome
	Customers []domain.Customer
}

// CreateBatch сохраняет пакет клиентов целиком или не сохраняет ничего.
//
// Порядок: пустой пакет, дубликаты email внутри пакета (без обращения к хранилищу),
// затем в транзакции по каждой записи дата рождения и занятость email.
// Первая ошибка откатывает всю транзакцию.
func (s *Service) CreateBatch(ctx context.Context, records []domain.CustomerInput) (result BatchResult, err error) {
	started := time.Now()
	defer func() {
		s.observe("create_batch", started, &err)
		switch {
		case err != nil:
			s.metrics.RecordBatch(len(records), metrics.BatchOutcomeRejected)
		case result.Outcome == BatchNoContent:
			s.metrics.RecordBatch(0, metrics.BatchOutcomeNoContent)
		default:
			s.metrics.RecordBatch(len(records), metrics.BatchOutcomeCreated)
		}
	}()

	if len(records) == 0 {
		return BatchResult{Outcome: BatchNoContent, Customers: []domain.Customer{}}, nil
	}

	if duplicates := domain.FindDuplicateEmails(records); len(duplicates) > 0 {
		s.metrics.RecordDuplicateEmails(len(duplicates))
		s.logger.WithField("emails", duplicates).Debug("batch rejected: duplicate emails")
		return BatchResult{}, domain.DuplicateEmailsError(duplicates)
	}

	now := s.now()
	var created []domain.Customer
	err = s.inTx(ctx, func(tx domain.Tx) error {
		for _, r := range records {
			if domain.NotFutureDate("dateOfBirth", r.DateOfBirth, now) != nil {
				return domain.ErrDateOfBirthInFuture
			}
			if err := ensureEmailFree(ctx, tx, r.Email, 0); err != nil {
				if errors.Is(err, domain.ErrEmailExists) {
					return domain.EmailTakenError(r.Email)
				}
				return err
			}
		}

		aggregates := make([]domain.Customer, 0, len(records))
		for _, r := range records {
			if domain.HasDuplicateAddressInList(r.Addresses) {
				return domain.ErrAddressExists
			}
			c := domain.RegisterNewCustomer(r, now)
			if !c.IsValid() {
				return c.FirstProblem()
			}
			aggregates = append(aggregates, c)
		}

		if _, err := tx.Customers().CreateBatch(ctx, aggregates); err != nil {
			// Уникальный индекс хранилища - окончательный арбитр при гонке.
			if domain.IsConflict(err) {
				var inUse domain.EmailInUse
				if errors.As(err, &inUse) {
					return domain.EmailTakenError(inUse.Email)
				}
				return domain.ErrEmailExists
			}
			return err
		}

		created = make([]domain.Customer, 0, len(records))
		for _, r := range records {
			c, err := tx.Customers().GetByEmail(ctx, r.Email)
			if err != nil {
				return domain.WrapError(domain.KindIntegrity, "", err)
			}
			if err := s.enqueue(ctx, tx, domain.EventCustomerCreated, c); err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("size", len(records)).Info("batch rejected")
		return BatchResult{}, err
	}

	s.logger.WithField("size", len(created)).Info("customer batch created")
	return BatchResult{Outcome: BatchCreated, Customers: created}, nil
}
