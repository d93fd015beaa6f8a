package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/storage/memory"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newCustomer(email string) domain.Customer {
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
	}, testNow)
}

func TestCustomerRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	created, err := store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
	require.Len(t, created.Addresses, 1)
	require.Equal(t, created.ID, created.Addresses[0].CustomerID)
	require.NotZero(t, created.Addresses[0].ID)

	stored, err := store.Customers().Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Email, stored.Email)
	require.Equal(t, created.Addresses, stored.Addresses)

	byEmail, err := store.Customers().GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	_, err = store.Customers().Get(ctx, 42)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCustomerRepository_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.NoError(t, err)

	_, err = store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.ErrorIs(t, err, domain.ErrEmailExists)

	second, err := store.Customers().Create(ctx, newCustomer("bia@example.com"))
	require.NoError(t, err)
	second.Email = "ana@example.com"
	require.ErrorIs(t, store.Customers().Update(ctx, second), domain.ErrEmailExists)

	count, err := store.Customers().Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCustomerRepository_UpdateKeepsAddresses(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	created, err := store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.NoError(t, err)

	created.Email = "new@example.com"
	created.Addresses = nil
	require.NoError(t, store.Customers().Update(ctx, created))

	stored, err := store.Customers().Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", stored.Email)
	require.Len(t, stored.Addresses, 1)

	_, err = store.Customers().GetByEmail(ctx, "ana@example.com")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCustomerRepository_ListPaging(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := store.Customers().Create(ctx, newCustomer(email))
		require.NoError(t, err)
	}

	page, err := store.Customers().List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "b@x.com", page[0].Email)

	empty, err := store.Customers().List(ctx, 10, 5)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestCustomerRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	created, err := store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.NoError(t, err)
	addressID := created.Addresses[0].ID

	require.NoError(t, store.Customers().Delete(ctx, created.ID))

	_, err = store.Addresses().Get(ctx, addressID)
	require.ErrorIs(t, err, domain.ErrAddressNotFound)
	require.ErrorIs(t, store.Customers().Delete(ctx, created.ID), domain.ErrCustomerNotFound)

	_, err = store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.NoError(t, err, "email must be released after delete")
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.Customers().CreateBatch(ctx, []domain.Customer{
		newCustomer("a@x.com"),
		newCustomer("b@x.com"),
	})
	require.NoError(t, err)
	_, err = tx.Outbox().Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.AggregateCustomer})
	require.NoError(t, err)

	inside, err := tx.Customers().Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, inside)

	outside, err := store.Customers().Count(ctx)
	require.NoError(t, err)
	require.Zero(t, outside, "uncommitted writes must not be visible")

	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())

	count, err := store.Customers().Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	stats, err := store.Outbox().Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestTx_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	created, err := tx.Customers().Create(ctx, newCustomer("a@x.com"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	_, err = tx.Customers().Get(ctx, created.ID)
	require.Error(t, err)

	stored, err := store.Customers().Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", stored.Email)
}

func TestTx_BatchConflictLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.Customers().Create(ctx, newCustomer("taken@x.com"))
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Customers().CreateBatch(ctx, []domain.Customer{
		newCustomer("a@x.com"),
		newCustomer("taken@x.com"),
	})
	require.ErrorIs(t, err, domain.ErrEmailExists)
	var inUse domain.EmailInUse
	require.ErrorAs(t, err, &inUse)
	require.Equal(t, "taken@x.com", inUse.Email)
	require.NoError(t, tx.Rollback())

	count, err := store.Customers().Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestBegin_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memory.NewStore().Begin(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAddressRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	created, err := store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.NoError(t, err)

	extra := created.Addresses[0]
	extra.ID = 0
	extra.Number = 200
	added, err := store.Addresses().Create(ctx, extra)
	require.NoError(t, err)
	require.Equal(t, created.ID, added.CustomerID)

	added.Street = "Rua Nova"
	added.CustomerID = 999
	require.NoError(t, store.Addresses().Update(ctx, added))
	updated, err := store.Addresses().Get(ctx, added.ID)
	require.NoError(t, err)
	require.Equal(t, "Rua Nova", updated.Street)
	require.Equal(t, created.ID, updated.CustomerID)

	list, err := store.Addresses().ListByCustomer(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	replaced, err := store.Addresses().ReplaceForCustomer(ctx, created.ID, []domain.Address{extra})
	require.NoError(t, err)
	require.Len(t, replaced, 1)

	list, err = store.Addresses().ListByCustomer(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, replaced, list)

	require.NoError(t, store.Addresses().Delete(ctx, replaced[0].ID))
	require.ErrorIs(t, store.Addresses().Delete(ctx, replaced[0].ID), domain.ErrAddressNotFound)

	extra.CustomerID = 999
	_, err = store.Addresses().Create(ctx, extra)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	created, err := store.Products().Create(ctx, domain.RegisterNewProduct("SKU-1", "Caneca"))
	require.NoError(t, err)
	require.True(t, created.IsValid())
	require.Equal(t, int64(1), created.ID)

	_, err = store.Products().Create(ctx, domain.RegisterNewProduct("SKU-1", "Outra"))
	require.ErrorIs(t, err, domain.ErrProductCodeExists)

	byCode, err := store.Products().GetByCode(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, created, byCode)

	_, err = store.Products().GetByCode(ctx, "SKU-404")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	list, err := store.Products().List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	customer, err := store.Customers().Create(ctx, newCustomer("ana@example.com"))
	require.NoError(t, err)
	product, err := store.Products().Create(ctx, domain.RegisterNewProduct("SKU-1", "Caneca"))
	require.NoError(t, err)

	item, err := domain.RegisterNewItem(product, decimal.RequireFromString("10.50"), 2)
	require.NoError(t, err)
	order, err := domain.RegisterNewOrder("ORD-1", testNow, customer.ID, []domain.Item{item}, testNow)
	require.NoError(t, err)

	created, err := store.Orders().Create(ctx, order)
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID())
	require.Zero(t, order.ID(), "input order must not be mutated")

	stored, err := store.Orders().Get(ctx, created.ID())
	require.NoError(t, err)
	require.True(t, stored.Total().Equal(decimal.RequireFromString("21.00")))

	count, err := store.Orders().CountByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	all, err := store.Orders().List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = store.Orders().Get(ctx, 2)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	orphan, err := domain.RegisterNewOrder("ORD-2", testNow, 999, []domain.Item{item}, testNow)
	require.NoError(t, err)
	_, err = store.Orders().Create(ctx, orphan)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}
