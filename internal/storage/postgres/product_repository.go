package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

type productRepository struct {
	q querier
}

func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	return r.getBy(ctx, `SELECT id, code, name FROM products WHERE id = $1`, id)
}

func (r *productRepository) GetByCode(ctx context.Context, code string) (domain.Product, error) {
	return r.getBy(ctx, `SELECT id, code, name FROM products WHERE code = $1`, code)
}

func (r *productRepository) getBy(ctx context.Context, query string, arg any) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		id         int64
		code, name string
	)
	if err := r.q.conn().QueryRowContext(ctx, query, arg).Scan(&id, &code, &name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, mapError(err, "get product")
	}
	return domain.SetExistingProduct(id, code, name), nil
}

func (r *productRepository) List(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT id, code, name FROM products ORDER BY id OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list products")
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		var (
			id         int64
			code, name string
		)
		if err := rows.Scan(&id, &code, &name); err != nil {
			return nil, mapError(err, "scan product")
		}
		result = append(result, domain.SetExistingProduct(id, code, name))
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate product rows")
	}
	return result, nil
}

func (r *productRepository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	if err := r.q.conn().QueryRowContext(ctx, `
		INSERT INTO products (code, name) VALUES ($1,$2) RETURNING id
	`, p.Code, p.Name).Scan(&id); err != nil {
		return domain.Product{}, mapError(err, "insert product")
	}
	return domain.SetExistingProduct(id, p.Code, p.Name), nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
