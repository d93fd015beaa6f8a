package domain

import "context"

// CustomerRepository описывает требования к хранилищу клиентов.
// Адреса клиента загружаются и сохраняются вместе с ним.
type CustomerRepository interface {
	// Get возвращает клиента с адресами или ErrCustomerNotFound.
	Get(ctx context.Context, id int64) (Customer, error)
	// GetByEmail ищет клиента по уникальному email (точное совпадение).
	GetByEmail(ctx context.Context, email string) (Customer, error)
	// List возвращает страницу клиентов, упорядоченных по id.
	List(ctx context.Context, offset, limit int) ([]Customer, error)
	// Count возвращает общее количество клиентов.
	Count(ctx context.Context) (int, error)
	// Create сохраняет клиента с адресами и назначает идентификаторы.
	Create(ctx context.Context, c Customer) (Customer, error)
	// CreateBatch сохраняет пакет клиентов; порядок результата совпадает с порядком входа.
	CreateBatch(ctx context.Context, cs []Customer) ([]Customer, error)
	// Update заменяет поля клиента (без адресов).
	Update(ctx context.Context, c Customer) error
	// Delete удаляет клиента и каскадно его адреса.
	Delete(ctx context.Context, id int64) error
}

// AddressRepository описывает требования к хранилищу адресов.
type AddressRepository interface {
	Get(ctx context.Context, id int64) (Address, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]Address, error)
	Create(ctx context.Context, a Address) (Address, error)
	Update(ctx context.Context, a Address) error
	Delete(ctx context.Context, id int64) error
	// ReplaceForCustomer удаляет адреса клиента и сохраняет переданные.
	ReplaceForCustomer(ctx context.Context, customerID int64, addresses []Address) ([]Address, error)
}

// ProductRepository описывает требования к каталогу продуктов.
type ProductRepository interface {
	Get(ctx context.Context, id int64) (Product, error)
	GetByCode(ctx context.Context, code string) (Product, error)
	List(ctx context.Context, offset, limit int) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ с позициями и возвращает его с назначенным id.
	Create(ctx context.Context, o *Order) (*Order, error)
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, offset, limit int) ([]*Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error)
	// CountByCustomer возвращает количество заказов клиента.
	CountByCustomer(ctx context.Context, customerID int64) (int, error)
}

// UnitOfWork открывает транзакционный контекст над несколькими репозиториями.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx - транзакция: все изменения через её репозитории фиксируются или откатываются вместе.
// Rollback после Commit - no-op, чтобы его можно было вызывать в defer.
type Tx interface {
	Customers() CustomerRepository
	Addresses() AddressRepository
	Orders() OrderRepository
	Outbox() OutboxRepository
	Commit() error
	Rollback() error
}
