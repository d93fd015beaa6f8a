package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

type orderRepository struct {
	q querier
}

type orderRow struct {
	id         int64
	number     string
	orderedAt  time.Time
	customerID int64
	total      decimal.Decimal
}

const selectOrderColumns = `SELECT id, number, ordered_at, customer_id, total FROM orders`

// Create сохраняет заказ вместе с позициями одной транзакцией.
func (r *orderRepository) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var out *domain.Order
	err := r.q.atomic(ctx, func(db dbtx) error {
		var id int64
		if err := db.QueryRowContext(ctx, `
			INSERT INTO orders (number, ordered_at, customer_id, total)
			VALUES ($1,$2,$3,$4)
			RETURNING id
		`, o.Number(), o.Date(), o.CustomerID(), o.Total()).Scan(&id); err != nil {
			return mapError(err, "insert order")
		}

		for _, item := range o.Items() {
			if _, err := db.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_code, quantity, unit_value)
				VALUES ($1,$2,$3,$4,$5)
			`, id, item.ProductID(), item.ProductCode(), item.Quantity(), item.UnitValue()); err != nil {
				return mapError(err, "insert order item")
			}
		}

		out = o.WithID(id)
		return nil
	})
	if err != nil {
		return nil, mapError(err, "create order")
	}
	return out, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var row orderRow
	err := r.q.conn().QueryRowContext(ctx, selectOrderColumns+` WHERE id = $1`, id).
		Scan(&row.id, &row.number, &row.orderedAt, &row.customerID, &row.total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, mapError(err, "get order")
	}
	return r.hydrate(ctx, row)
}

func (r *orderRepository) List(ctx context.Context, offset, limit int) ([]*domain.Order, error) {
	query := selectOrderColumns + ` ORDER BY id OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	return r.list(ctx, selectOrderColumns+` WHERE customer_id = $1 ORDER BY id`, customerID)
}

func (r *orderRepository) CountByCustomer(ctx context.Context, customerID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var n int
	if err := r.q.conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID,
	).Scan(&n); err != nil {
		return 0, mapError(err, "count orders")
	}
	return n, nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.q.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list orders")
	}
	defer rows.Close()

	headers := make([]orderRow, 0)
	for rows.Next() {
		var row orderRow
		if err := rows.Scan(&row.id, &row.number, &row.orderedAt, &row.customerID, &row.total); err != nil {
			return nil, mapError(err, "scan order")
		}
		headers = append(headers, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate order rows")
	}
	rows.Close()

	result := make([]*domain.Order, 0, len(headers))
	for _, row := range headers {
		o, err := r.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}

// hydrate загружает позиции и восстанавливает заказ со сверкой сохранённой суммы.
func (r *orderRepository) hydrate(ctx context.Context, row orderRow) (*domain.Order, error) {
	rows, err := r.q.conn().QueryContext(ctx, `
		SELECT product_id, product_code, quantity, unit_value
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, row.id)
	if err != nil {
		return nil, mapError(err, "list order items")
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var (
			productID   int64
			productCode string
			quantity    int
			unitValue   decimal.Decimal
		)
		if err := rows.Scan(&productID, &productCode, &quantity, &unitValue); err != nil {
			return nil, mapError(err, "scan order item")
		}
		item, err := domain.SetExistingItem(productID, productCode, unitValue, quantity)
		if err != nil {
			return nil, domain.WrapError(domain.KindIntegrity, "", fmt.Errorf("order %d: %w", row.id, err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate order item rows")
	}

	o, err := domain.SetExistingOrder(row.id, row.customerID, row.number, row.orderedAt.UTC(), items, row.total, time.Now().UTC())
	if err != nil {
		if domain.IsIntegrity(err) {
			return nil, err
		}
		return nil, domain.WrapError(domain.KindIntegrity, "", fmt.Errorf("restore order %d: %w", row.id, err))
	}
	return o, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
