package memory

import (
	"context"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

type addressRepository struct {
	v view
}

func (r *addressRepository) Get(_ context.Context, id int64) (domain.Address, error) {
	var out domain.Address
	err := r.v.read(func(st *state) error {
		a, ok := st.addresses[id]
		if !ok {
			return domain.ErrAddressNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r *addressRepository) ListByCustomer(_ context.Context, customerID int64) ([]domain.Address, error) {
	var out []domain.Address
	err := r.v.read(func(st *state) error {
		if _, ok := st.customers[customerID]; !ok {
			return domain.ErrCustomerNotFound
		}
		out = st.addressesOf(customerID)
		return nil
	})
	return out, err
}

func (r *addressRepository) Create(_ context.Context, a domain.Address) (domain.Address, error) {
	var out domain.Address
	err := r.v.write(func(st *state) error {
		if _, ok := st.customers[a.CustomerID]; !ok {
			return domain.ErrCustomerNotFound
		}
		out = st.insertAddress(a.CustomerID, a)
		return nil
	})
	return out, err
}

func (r *addressRepository) Update(_ context.Context, a domain.Address) error {
	return r.v.write(func(st *state) error {
		current, ok := st.addresses[a.ID]
		if !ok {
			return domain.ErrAddressNotFound
		}
		// Владелец адреса не меняется.
		a.CustomerID = current.CustomerID
		st.addresses[a.ID] = a
		return nil
	})
}

func (r *addressRepository) Delete(_ context.Context, id int64) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.addresses[id]; !ok {
			return domain.ErrAddressNotFound
		}
		delete(st.addresses, id)
		return nil
	})
}

func (r *addressRepository) ReplaceForCustomer(_ context.Context, customerID int64, addresses []domain.Address) ([]domain.Address, error) {
	out := make([]domain.Address, 0, len(addresses))
	err := r.v.write(func(st *state) error {
		if _, ok := st.customers[customerID]; !ok {
			return domain.ErrCustomerNotFound
		}
		for id, a := range st.addresses {
			if a.CustomerID == customerID {
				delete(st.addresses, id)
			}
		}
		for _, a := range addresses {
			out = append(out, st.insertAddress(customerID, a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ domain.AddressRepository = (*addressRepository)(nil)
