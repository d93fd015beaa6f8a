package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

type addressRepository struct {
	q querier
}

const selectAddressColumns = `
	SELECT id, customer_id, zip_code, street, number, neighborhood, complement, city, state, country
	FROM addresses`

func (r *addressRepository) Get(ctx context.Context, id int64) (domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	a, err := scanAddress(r.q.conn().QueryRowContext(ctx, selectAddressColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		return domain.Address{}, mapError(err, "get address")
	}
	return a, nil
}

func (r *addressRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.q.conn().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID,
	).Scan(&exists); err != nil {
		return nil, mapError(err, "check customer")
	}
	if !exists {
		return nil, domain.ErrCustomerNotFound
	}
	return listAddresses(ctx, r.q.conn(), customerID)
}

func (r *addressRepository) Create(ctx context.Context, a domain.Address) (domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return insertAddress(ctx, r.q.conn(), a)
}

func (r *addressRepository) Update(ctx context.Context, a domain.Address) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.conn().ExecContext(ctx, `
		UPDATE addresses
		SET zip_code = $2,
		    street = $3,
		    number = $4,
		    neighborhood = $5,
		    complement = $6,
		    city = $7,
		    state = $8,
		    country = $9
		WHERE id = $1
	`, a.ID, a.ZipCode, a.Street, a.Number, a.Neighborhood, a.Complement, a.City, a.State, a.Country)
	if err != nil {
		return mapError(err, "update address")
	}
	return requireAffected(res, domain.ErrAddressNotFound)
}

func (r *addressRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.conn().ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete address")
	}
	return requireAffected(res, domain.ErrAddressNotFound)
}

func (r *addressRepository) ReplaceForCustomer(ctx context.Context, customerID int64, addresses []domain.Address) ([]domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	out := make([]domain.Address, 0, len(addresses))
	err := r.q.atomic(ctx, func(db dbtx) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM addresses WHERE customer_id = $1`, customerID); err != nil {
			return mapError(err, "delete customer addresses")
		}
		for _, a := range addresses {
			a.CustomerID = customerID
			created, err := insertAddress(ctx, db, a)
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err, "replace addresses")
	}
	return out, nil
}

func insertAddress(ctx context.Context, db dbtx, a domain.Address) (domain.Address, error) {
	if err := db.QueryRowContext(ctx, `
		INSERT INTO addresses (customer_id, zip_code, street, number, neighborhood, complement, city, state, country)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`,
		a.CustomerID, a.ZipCode, a.Street, a.Number, a.Neighborhood, a.Complement, a.City, a.State, a.Country,
	).Scan(&a.ID); err != nil {
		return domain.Address{}, mapError(err, "insert address")
	}
	return a, nil
}

func listAddresses(ctx context.Context, db dbtx, customerID int64) ([]domain.Address, error) {
	rows, err := db.QueryContext(ctx, selectAddressColumns+` WHERE customer_id = $1 ORDER BY id`, customerID)
	if err != nil {
		return nil, mapError(err, "list addresses")
	}
	defer rows.Close()

	result := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, mapError(err, "scan address")
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate address rows")
	}
	return result, nil
}

func scanAddress(row rowScanner) (domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID,
		&a.CustomerID,
		&a.ZipCode,
		&a.Street,
		&a.Number,
		&a.Neighborhood,
		&a.Complement,
		&a.City,
		&a.State,
		&a.Country,
	)
	return a, err
}

var _ domain.AddressRepository = (*addressRepository)(nil)
