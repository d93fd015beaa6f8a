package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

type customerRepository struct {
	q querier
}

const selectCustomerColumns = `SELECT id, first_name, last_name, email, date_of_birth FROM customers`

func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	return r.getBy(ctx, selectCustomerColumns+` WHERE id = $1`, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (domain.Customer, error) {
	return r.getBy(ctx, selectCustomerColumns+` WHERE email = $1`, email)
}

func (r *customerRepository) getBy(ctx context.Context, query string, arg any) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	c, err := scanCustomer(r.q.conn().QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, mapError(err, "get customer")
	}

	addresses, err := listAddresses(ctx, r.q.conn(), c.ID)
	if err != nil {
		return domain.Customer{}, err
	}
	c.Addresses = addresses
	return c, nil
}

func (r *customerRepository) List(ctx context.Context, offset, limit int) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := selectCustomerColumns + ` ORDER BY id OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list customers")
	}
	defer rows.Close()

	result := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, mapError(err, "scan customer")
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate customer rows")
	}
	rows.Close()

	for i := range result {
		addresses, err := listAddresses(ctx, r.q.conn(), result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Addresses = addresses
	}
	return result, nil
}

func (r *customerRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var n int
	if err := r.q.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, mapError(err, "count customers")
	}
	return n, nil
}

func (r *customerRepository) Create(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var out domain.Customer
	err := r.q.atomic(ctx, func(db dbtx) error {
		created, err := insertCustomer(ctx, db, c)
		out = created
		return err
	})
	return out, mapError(err, "create customer")
}

func (r *customerRepository) CreateBatch(ctx context.Context, cs []domain.Customer) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	out := make([]domain.Customer, 0, len(cs))
	err := r.q.atomic(ctx, func(db dbtx) error {
		for _, c := range cs {
			created, err := insertCustomer(ctx, db, c)
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err, "create customer batch")
	}
	return out, nil
}

func (r *customerRepository) Update(ctx context.Context, c domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.conn().ExecContext(ctx, `
		UPDATE customers
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    date_of_birth = $5,
		    updated_at = $6
		WHERE id = $1
	`, c.ID, c.FirstName, c.LastName, c.Email, c.DateOfBirth, time.Now().UTC())
	if err != nil {
		return mapError(err, "update customer")
	}
	return requireAffected(res, domain.ErrCustomerNotFound)
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.conn().ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete customer")
	}
	return requireAffected(res, domain.ErrCustomerNotFound)
}

func insertCustomer(ctx context.Context, db dbtx, c domain.Customer) (domain.Customer, error) {
	var id int64
	if err := db.QueryRowContext(ctx, `
		INSERT INTO customers (first_name, last_name, email, date_of_birth)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, c.FirstName, c.LastName, c.Email, c.DateOfBirth).Scan(&id); err != nil {
		return domain.Customer{}, mapError(err, "insert customer")
	}

	addresses := make([]domain.Address, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		a.CustomerID = id
		created, err := insertAddress(ctx, db, a)
		if err != nil {
			return domain.Customer{}, err
		}
		addresses = append(addresses, created)
	}

	return domain.SetExistingCustomer(id, domain.CustomerInput{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		DateOfBirth: c.DateOfBirth,
	}, addresses)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var (
		id  int64
		in  domain.CustomerInput
		dob time.Time
	)
	if err := row.Scan(&id, &in.FirstName, &in.LastName, &in.Email, &dob); err != nil {
		return domain.Customer{}, err
	}
	in.DateOfBirth = dob.UTC()
	return domain.SetExistingCustomer(id, in, nil)
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(fmt.Errorf("rows affected: %w", err), "exec")
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
