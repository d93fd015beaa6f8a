package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

var integrationNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func sampleCustomer(email string) domain.Customer {
	return domain.RegisterNewCustomer(domain.CustomerInput{
		FirstName:   "Ana",
		LastName:    "Souza",
		Email:       email,
		DateOfBirth: time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC),
		Addresses: []domain.AddressInput{{
			ZipCode:      "01001-000",
			Street:       "Praça da Sé",
			Number:       100,
			Neighborhood: "Sé",
			City:         "São Paulo",
			State:        "SP",
			Country:      "Brasil",
		}},
	}, integrationNow)
}

func TestCustomerRepository_PostgresFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := store.Customers()

	created, err := repo.Create(ctx, sampleCustomer("ana@example.com"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Len(t, created.Addresses, 1)

	_, err = repo.Create(ctx, sampleCustomer("ana@example.com"))
	require.ErrorIs(t, err, domain.ErrEmailExists)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Email, got.Email)
	require.True(t, got.DateOfBirth.Equal(created.DateOfBirth))
	require.Equal(t, created.Addresses, got.Addresses)

	got.LastName = "Lima"
	require.NoError(t, repo.Update(ctx, got))

	list, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Lima", list[0].LastName)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = store.Addresses().Get(ctx, created.Addresses[0].ID)
	require.ErrorIs(t, err, domain.ErrAddressNotFound)
	require.ErrorIs(t, repo.Delete(ctx, created.ID), domain.ErrCustomerNotFound)
}

func TestUnitOfWork_PostgresRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.Customers().CreateBatch(ctx, []domain.Customer{
		sampleCustomer("a@example.com"),
		sampleCustomer("b@example.com"),
	})
	require.NoError(t, err)
	_, err = tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateCustomer,
		AggregateID:   "1",
		EventType:     domain.EventCustomerCreated,
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)

	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())

	count, err := store.Customers().Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	stats, err := store.Outbox().Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestUnitOfWork_PostgresCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	created, err := tx.Customers().Create(ctx, sampleCustomer("a@example.com"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback())

	got, err := store.Customers().Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got.Email)
}

func TestOrderRepository_PostgresFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer, err := store.Customers().Create(ctx, sampleCustomer("ana@example.com"))
	require.NoError(t, err)
	product, err := store.Products().Create(ctx, domain.RegisterNewProduct("SKU-1", "Caneca"))
	require.NoError(t, err)

	_, err = store.Products().Create(ctx, domain.RegisterNewProduct("SKU-1", "Outra"))
	require.ErrorIs(t, err, domain.ErrProductCodeExists)

	item, err := domain.RegisterNewItem(product, decimal.RequireFromString("10.50"), 2)
	require.NoError(t, err)
	order, err := domain.RegisterNewOrder("ORD-1", integrationNow, customer.ID, []domain.Item{item}, integrationNow)
	require.NoError(t, err)

	created, err := store.Orders().Create(ctx, order)
	require.NoError(t, err)
	require.NotZero(t, created.ID())

	got, err := store.Orders().Get(ctx, created.ID())
	require.NoError(t, err)
	require.True(t, got.Total().Equal(decimal.RequireFromString("21")))
	require.Len(t, got.Items(), 1)

	count, err := store.Orders().CountByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.ErrorIs(t, store.Customers().Delete(ctx, customer.ID), domain.ErrCustomerHasOrders)

	_, err = store.Orders().Get(ctx, created.ID()+100)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_PostgresMoneyRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer, err := store.Customers().Create(ctx, sampleCustomer("money@example.com"))
	require.NoError(t, err)
	product, err := store.Products().Create(ctx, domain.RegisterNewProduct("SKU-CENT", "Clips"))
	require.NoError(t, err)

	_, err = domain.RegisterNewItem(product, decimal.RequireFromString("1.005"), 3)
	require.ErrorIs(t, err, domain.ErrInvalid)

	first, err := domain.RegisterNewItem(product, decimal.RequireFromString("1.01"), 3)
	require.NoError(t, err)
	second, err := domain.RegisterNewItem(product, decimal.RequireFromString("0.99"), 7)
	require.NoError(t, err)
	order, err := domain.RegisterNewOrder("ORD-CENT", integrationNow, customer.ID, []domain.Item{first, second}, integrationNow)
	require.NoError(t, err)

	created, err := store.Orders().Create(ctx, order)
	require.NoError(t, err)

	got, err := store.Orders().Get(ctx, created.ID())
	require.NoError(t, err)
	require.True(t, got.Total().Equal(order.Total()), "stored %s, computed %s", got.Total(), order.Total())

	var sum decimal.Decimal
	for _, item := range got.Items() {
		sum = sum.Add(item.LineTotal())
	}
	require.True(t, got.Total().Equal(sum))
}

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := store.Outbox()

	first, err := repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateCustomer,
		AggregateID:   "1",
		EventType:     domain.EventCustomerCreated,
		Payload:       []byte(`{"id":1}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.Enqueue(ctx, domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "2",
		EventType:     domain.EventOrderCreated,
	})
	require.NoError(t, err)
	require.Equal(t, "outbox-fixed-id", second.ID)

	pending, err := repo.PullPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, second.ID, pending[1].ID)

	require.NoError(t, repo.MarkSent(ctx, first.ID))
	require.NoError(t, repo.MarkFailed(ctx, second.ID))
	require.ErrorIs(t, repo.MarkSent(ctx, "missing"), domain.ErrOutboxRecordNotFound)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
	require.True(t, stats.OldestPendingAt.IsZero())
}

func TestIdempotencyRepository_PostgresFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewIdempotencyRepository(store)

	ttl := time.Now().UTC().Add(2 * time.Hour).Round(time.Second)
	created, err := repo.CreateProcessing(ctx, "idem-key", "hash-a", ttl)
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, created.Status)

	_, err = repo.CreateProcessing(ctx, "idem-key", "hash-a", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	_, err = repo.CreateProcessing(ctx, "idem-key", "hash-b", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)

	require.NoError(t, repo.MarkDone(ctx, "idem-key", []byte(`{"result":"ok"}`), 201))
	got, err := repo.Get(ctx, "idem-key")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, got.Status)
	require.Equal(t, 201, got.HTTPStatus)
	require.JSONEq(t, `{"result":"ok"}`, string(got.ResponseBody))
	require.True(t, got.TTLAt.Equal(ttl))

	_, err = repo.CreateProcessing(ctx, "expired", "h", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	// Просроченный ключ можно занять заново, даже с другим телом запроса.
	reclaimed, err := repo.CreateProcessing(ctx, "expired", "h2", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, "h2", reclaimed.RequestHash)
	require.Empty(t, reclaimed.ResponseBody)

	deleted, err := repo.DeleteExpired(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
}
