package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	opTimeout = 5 * time.Second

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	constraintCustomerEmail = "customers_email_key"
	constraintProductCode   = "products_code_key"
	constraintOrderCustomer = "orders_customer_id_fkey"
)

// Store оборачивает SQL-подключение к PostgreSQL и реализует domain.UnitOfWork.
type Store struct {
	db  *sql.DB
	dsn string
}

// Open открывает подключение к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db, dsn: dsn}, nil
}

// DB возвращает raw SQL DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin открывает SQL-транзакцию; репозитории транзакции работают через неё.
func (s *Store) Begin(ctx context.Context) (domain.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindIntegrity, "", fmt.Errorf("begin tx: %w", err))
	}
	return &tx{tx: sqlTx}, nil
}

// Customers возвращает репозиторий клиентов вне явной транзакции.
func (s *Store) Customers() domain.CustomerRepository {
	return &customerRepository{q: querier{db: s.db}}
}

// Addresses возвращает репозиторий адресов вне явной транзакции.
func (s *Store) Addresses() domain.AddressRepository {
	return &addressRepository{q: querier{db: s.db}}
}

// Products возвращает репозиторий каталога.
func (s *Store) Products() domain.ProductRepository {
	return &productRepository{q: querier{db: s.db}}
}

// Orders возвращает репозиторий заказов вне явной транзакции.
func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{q: querier{db: s.db}}
}

// Outbox возвращает репозиторий outbox вне явной транзакции.
func (s *Store) Outbox() domain.OutboxRepository {
	return &outboxRepository{q: querier{db: s.db}}
}

type tx struct {
	tx   *sql.Tx
	done bool
}

func (t *tx) Customers() domain.CustomerRepository {
	return &customerRepository{q: querier{tx: t.tx}}
}

func (t *tx) Addresses() domain.AddressRepository {
	return &addressRepository{q: querier{tx: t.tx}}
}

func (t *tx) Orders() domain.OrderRepository {
	return &orderRepository{q: querier{tx: t.tx}}
}

func (t *tx) Outbox() domain.OutboxRepository {
	return &outboxRepository{q: querier{tx: t.tx}}
}

func (t *tx) Commit() error {
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return domain.WrapError(domain.KindIntegrity, "", fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// Rollback после Commit - no-op.
func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// dbtx - общее подмножество *sql.DB и *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier выполняет запросы либо в открытой транзакции, либо напрямую через пул.
type querier struct {
	db *sql.DB
	tx *sql.Tx
}

func (q querier) conn() dbtx {
	if q.tx != nil {
		return q.tx
	}
	return q.db
}

// atomic выполняет fn атомарно: внутри уже открытой транзакции или в собственной.
func (q querier) atomic(ctx context.Context, fn func(dbtx) error) (err error) {
	if q.tx != nil {
		return fn(q.tx)
	}

	own, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = own.Rollback()
		}
	}()

	if err = fn(own); err != nil {
		return err
	}
	if err = own.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// mapError переводит ошибки драйвера в доменные; прочие ошибки становятся нарушением целостности.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraintCustomerEmail:
			return domain.EmailConflict(conflictingValue(pgErr.Detail))
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraintProductCode:
			return domain.ErrProductCodeExists
		case pgErr.Code == pgForeignKeyViolation && pgErr.ConstraintName == constraintOrderCustomer &&
			strings.Contains(pgErr.Detail, "is still referenced"):
			return domain.ErrCustomerHasOrders
		case pgErr.Code == pgForeignKeyViolation:
			return domain.ErrCustomerNotFound
		}
	}
	return domain.WrapError(domain.KindIntegrity, "", fmt.Errorf("%s: %w", op, err))
}

// conflictingValue достаёт значение из detail нарушения уникальности: "Key (email)=(a@x.com) already exists."
func conflictingValue(detail string) string {
	_, rest, ok := strings.Cut(detail, ")=(")
	if !ok {
		return ""
	}
	value, _, ok := strings.Cut(rest, ") already exists")
	if !ok {
		return ""
	}
	return value
}

var (
	_ domain.UnitOfWork = (*Store)(nil)
	_ domain.Tx         = (*tx)(nil)
)
