package order_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/service/order"
	"github.com/vladislavdragonenkov/customers/internal/storage/memory"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	svc      *order.Service
	customer domain.Customer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	c := domain.RegisterNewCustomer(domain.CustomerInput{
		FirstName:   "Ana",
		LastName:    "Souza",
		Email:       "ana@x.com",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	}, testNow)
	stored, err := store.Customers().Create(ctx, c)
	require.NoError(t, err)

	for _, p := range []domain.Product{
		domain.RegisterNewProduct("PEN", "Pen"),
		domain.RegisterNewProduct("BOOK", "Book"),
	} {
		_, err := store.Products().Create(ctx, p)
		require.NoError(t, err)
	}

	svc := order.NewService(store, store.Products(), order.WithClock(func() time.Time { return testNow }))
	return fixture{store: store, svc: svc, customer: stored}
}

func (f fixture) request() order.CreateRequest {
	return order.CreateRequest{
		Number:     "N-1",
		Date:       testNow,
		CustomerID: f.customer.ID,
		Items: []order.ItemRequest{
			{ProductCode: "PEN", ProductName: "Pen", UnitValue: decimal.RequireFromString("2.50"), Quantity: 4},
			{ProductCode: "BOOK", UnitValue: decimal.RequireFromString("39.90"), Quantity: 1},
		},
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)
	require.NotZero(t, created.ID())
	require.True(t, created.Total().Equal(decimal.RequireFromString("49.90")))
	require.True(t, created.IsValid())

	loaded, err := f.svc.Get(ctx, created.ID())
	require.NoError(t, err)
	require.Equal(t, created.Number(), loaded.Number())
	require.Len(t, loaded.Items(), 2)

	stats, err := f.store.Outbox().Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *order.CreateRequest)
		status  int
		message string
	}{
		{
			name:    "missing customer",
			mutate:  func(r *order.CreateRequest) { r.CustomerID = 999 },
			status:  http.StatusNotFound,
			message: domain.MsgCustomerNotFound,
		},
		{
			name:    "unknown product",
			mutate:  func(r *order.CreateRequest) { r.Items[1].ProductCode = "GHOST" },
			status:  http.StatusNotFound,
			message: "Product not found. Code: GHOST",
		},
		{
			name:   "no items",
			mutate: func(r *order.CreateRequest) { r.Items = nil },
			status: http.StatusBadRequest,
		},
		{
			name:    "future date",
			mutate:  func(r *order.CreateRequest) { r.Date = testNow.AddDate(0, 0, 1) },
			status:  http.StatusBadRequest,
			message: domain.MsgOrderDateError,
		},
		{
			name:   "empty number",
			mutate: func(r *order.CreateRequest) { r.Number = "" },
			status: http.StatusBadRequest,
		},
		{
			name:   "zero quantity",
			mutate: func(r *order.CreateRequest) { r.Items[0].Quantity = 0 },
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request()
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)
			require.Error(t, err)
			require.Equal(t, tt.status, domain.StatusCode(err))
			if tt.message != "" {
				require.Equal(t, tt.message, domain.Message(err))
			}

			orders, err := f.svc.List(context.Background(), 1, 10)
			require.NoError(t, err)
			require.Empty(t, orders, "rejected order must not be persisted")
		})
	}
}

func TestListByCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)
	second := f.request()
	second.Number = "N-2"
	_, err = f.svc.Create(ctx, second)
	require.NoError(t, err)

	orders, err := f.svc.ListByCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "N-1", orders[0].Number())

	_, err = f.svc.ListByCustomer(ctx, 999)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	page, err := f.svc.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "N-2", page[0].Number())
}

func TestProductLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	lookup, err := f.svc.ProductLookup(ctx, created)
	require.NoError(t, err)

	pen, ok := lookup("PEN")
	require.True(t, ok)
	require.Equal(t, "Pen", pen.Name)

	_, ok = lookup("GHOST")
	require.False(t, ok)
}

func TestGet_NotFound(t *testing.T) {
	_, err := newFixture(t).svc.Get(context.Background(), 7)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}
