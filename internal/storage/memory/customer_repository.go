package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// customerRepository - in-memory реализация CustomerRepository.
type customerRepository struct {
	v view
}

func (r *customerRepository) Get(_ context.Context, id int64) (domain.Customer, error) {
	var out domain.Customer
	err := r.v.read(func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		out = st.withAddresses(c)
		return nil
	})
	return out, err
}

func (r *customerRepository) GetByEmail(_ context.Context, email string) (domain.Customer, error) {
	var out domain.Customer
	err := r.v.read(func(st *state) error {
		id, ok := st.emails[email]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		out = st.withAddresses(st.customers[id])
		return nil
	})
	return out, err
}

func (r *customerRepository) List(_ context.Context, offset, limit int) ([]domain.Customer, error) {
	result := make([]domain.Customer, 0)
	err := r.v.read(func(st *state) error {
		ids := make([]int64, 0, len(st.customers))
		for id := range st.customers {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range page(ids, offset, limit) {
			result = append(result, st.withAddresses(st.customers[id]))
		}
		return nil
	})
	return result, err
}

func (r *customerRepository) Count(_ context.Context) (int, error) {
	var n int
	err := r.v.read(func(st *state) error {
		n = len(st.customers)
		return nil
	})
	return n, err
}

func (r *customerRepository) Create(_ context.Context, c domain.Customer) (domain.Customer, error) {
	var out domain.Customer
	err := r.v.write(func(st *state) error {
		created, err := st.insertCustomer(c)
		out = created
		return err
	})
	return out, err
}

func (r *customerRepository) CreateBatch(_ context.Context, cs []domain.Customer) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(cs))
	err := r.v.write(func(st *state) error {
		for _, c := range cs {
			created, err := st.insertCustomer(c)
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *customerRepository) Update(_ context.Context, c domain.Customer) error {
	return r.v.write(func(st *state) error {
		current, ok := st.customers[c.ID]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		if owner, taken := st.emails[c.Email]; taken && owner != c.ID {
			return domain.EmailConflict(c.Email)
		}
		delete(st.emails, current.Email)
		st.emails[c.Email] = c.ID
		st.customers[c.ID] = stripAddresses(c)
		return nil
	})
}

func (r *customerRepository) Delete(_ context.Context, id int64) error {
	return r.v.write(func(st *state) error {
		current, ok := st.customers[id]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		for addrID, a := range st.addresses {
			if a.CustomerID == id {
				delete(st.addresses, addrID)
			}
		}
		delete(st.emails, current.Email)
		delete(st.customers, id)
		return nil
	})
}

// insertCustomer моделирует уникальный индекс по email.
func (st *state) insertCustomer(c domain.Customer) (domain.Customer, error) {
	if _, taken := st.emails[c.Email]; taken {
		return domain.Customer{}, domain.EmailConflict(c.Email)
	}
	st.nextCustomerID++
	id := st.nextCustomerID

	stored := stripAddresses(c)
	stored.ID = id
	st.customers[id] = stored
	st.emails[c.Email] = id

	for _, a := range c.Addresses {
		st.insertAddress(id, a)
	}
	return st.withAddresses(stored), nil
}

func (st *state) insertAddress(customerID int64, a domain.Address) domain.Address {
	st.nextAddressID++
	a.ID = st.nextAddressID
	a.CustomerID = customerID
	st.addresses[a.ID] = a
	return a
}

// withAddresses собирает клиента с его адресами, упорядоченными по id.
func (st *state) withAddresses(c domain.Customer) domain.Customer {
	out := c.Clone()
	out.Addresses = st.addressesOf(c.ID)
	return out
}

func (st *state) addressesOf(customerID int64) []domain.Address {
	result := make([]domain.Address, 0)
	for _, a := range st.addresses {
		if a.CustomerID == customerID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func stripAddresses(c domain.Customer) domain.Customer {
	out := c.Clone()
	out.Addresses = nil
	return out
}

// page применяет offset/limit; limit <= 0 означает "без ограничения".
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
