package customer_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/service/customer"
	"github.com/vladislavdragonenkov/customers/internal/storage/memory"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, store customer.Store) *customer.Service {
	t.Helper()
	return customer.NewService(store, customer.WithClock(func() time.Time { return testNow }))
}

func addressInput(street string) domain.AddressInput {
	return domain.AddressInput{
		ZipCode:      "01001-000",
		Street:       street,
		Number:       100,
		Neighborhood: "Centro",
		City:         "São Paulo",
		State:        "SP",
		Country:      "Brasil",
	}
}

func customerInput(email string) domain.CustomerInput {
	return domain.CustomerInput{
		FirstName:   "Ana",
		LastName:    "Souza",
		Email:       email,
		DateOfBirth: time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC),
		Addresses:   []domain.AddressInput{addressInput("Rua A")},
	}
}

func countCustomers(t *testing.T, store *memory.Store) int {
	t.Helper()
	n, err := store.Customers().Count(context.Background())
	require.NoError(t, err)
	return n
}

func pendingEvents(t *testing.T, store *memory.Store) int {
	t.Helper()
	stats, err := store.Outbox().Stats(context.Background())
	require.NoError(t, err)
	return stats.PendingCount
}

// faultyStore поверх memory.Store считает транзакции и подменяет отдельные операции ошибками.
type faultyStore struct {
	*memory.Store

	begins      atomic.Int32
	batchErr    error
	commitErr   error
	rolledBacks atomic.Int32
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.NewStore()}
}

func (f *faultyStore) Begin(ctx context.Context) (domain.Tx, error) {
	f.begins.Add(1)
	tx, err := f.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{Tx: tx, store: f}, nil
}

type faultyTx struct {
	domain.Tx
	store     *faultyStore
	committed bool
}

func (t *faultyTx) Customers() domain.CustomerRepository {
	return &faultyCustomers{CustomerRepository: t.Tx.Customers(), batchErr: t.store.batchErr}
}

func (t *faultyTx) Commit() error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.committed = true
	return t.Tx.Commit()
}

func (t *faultyTx) Rollback() error {
	if !t.committed {
		t.store.rolledBacks.Add(1)
	}
	return t.Tx.Rollback()
}

type faultyCustomers struct {
	domain.CustomerRepository
	batchErr error
}

func (c *faultyCustomers) CreateBatch(ctx context.Context, cs []domain.Customer) ([]domain.Customer, error) {
	if c.batchErr != nil {
		return nil, c.batchErr
	}
	return c.CustomerRepository.CreateBatch(ctx, cs)
}
