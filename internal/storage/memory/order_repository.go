package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// orderRepository хранит заказы; *domain.Order не меняется после сохранения.
type orderRepository struct {
	v view
}

func (r *orderRepository) Create(_ context.Context, o *domain.Order) (*domain.Order, error) {
	var out *domain.Order
	err := r.v.write(func(st *state) error {
		if _, ok := st.customers[o.CustomerID()]; !ok {
			return domain.ErrCustomerNotFound
		}
		st.nextOrderID++
		out = o.WithID(st.nextOrderID)
		st.orders[out.ID()] = out
		return nil
	})
	return out, err
}

func (r *orderRepository) Get(_ context.Context, id int64) (*domain.Order, error) {
	var out *domain.Order
	err := r.v.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		out = o
		return nil
	})
	return out, err
}

func (r *orderRepository) List(_ context.Context, offset, limit int) ([]*domain.Order, error) {
	result := make([]*domain.Order, 0)
	err := r.v.read(func(st *state) error {
		result = append(result, page(st.sortedOrders(func(*domain.Order) bool { return true }), offset, limit)...)
		return nil
	})
	return result, err
}

func (r *orderRepository) ListByCustomer(_ context.Context, customerID int64) ([]*domain.Order, error) {
	var result []*domain.Order
	err := r.v.read(func(st *state) error {
		result = st.sortedOrders(func(o *domain.Order) bool { return o.CustomerID() == customerID })
		return nil
	})
	return result, err
}

func (r *orderRepository) CountByCustomer(ctx context.Context, customerID int64) (int, error) {
	orders, err := r.ListByCustomer(ctx, customerID)
	return len(orders), err
}

func (st *state) sortedOrders(keep func(*domain.Order) bool) []*domain.Order {
	result := make([]*domain.Order, 0)
	for _, o := range st.orders {
		if keep(o) {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

var _ domain.OrderRepository = (*orderRepository)(nil)
