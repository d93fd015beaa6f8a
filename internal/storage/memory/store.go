package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// errTxClosed возвращается при обращении к завершённой транзакции.
var errTxClosed = errors.New("memory: transaction already committed or rolled back")

// state - полный снимок данных хранилища.
type state struct {
	customers    map[int64]domain.Customer
	emails       map[string]int64
	addresses    map[int64]domain.Address
	products     map[int64]domain.Product
	productCodes map[string]int64
	orders       map[int64]*domain.Order
	outbox       map[string]outboxRecord
	outboxSeq    int64

	nextCustomerID int64
	nextAddressID  int64
	nextProductID  int64
	nextOrderID    int64
}

func newState() *state {
	return &state{
		customers:    make(map[int64]domain.Customer),
		emails:       make(map[string]int64),
		addresses:    make(map[int64]domain.Address),
		products:     make(map[int64]domain.Product),
		productCodes: make(map[string]int64),
		orders:       make(map[int64]*domain.Order),
		outbox:       make(map[string]outboxRecord),
	}
}

// clone копирует снимок; значения в картах неизменяемы либо копируются по значению.
func (s *state) clone() *state {
	out := &state{
		customers:      make(map[int64]domain.Customer, len(s.customers)),
		emails:         make(map[string]int64, len(s.emails)),
		addresses:      make(map[int64]domain.Address, len(s.addresses)),
		products:       make(map[int64]domain.Product, len(s.products)),
		productCodes:   make(map[string]int64, len(s.productCodes)),
		orders:         make(map[int64]*domain.Order, len(s.orders)),
		outbox:         make(map[string]outboxRecord, len(s.outbox)),
		outboxSeq:      s.outboxSeq,
		nextCustomerID: s.nextCustomerID,
		nextAddressID:  s.nextAddressID,
		nextProductID:  s.nextProductID,
		nextOrderID:    s.nextOrderID,
	}
	for k, v := range s.customers {
		out.customers[k] = v
	}
	for k, v := range s.emails {
		out.emails[k] = v
	}
	for k, v := range s.addresses {
		out.addresses[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.productCodes {
		out.productCodes[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.outbox {
		out.outbox[k] = v
	}
	return out
}

// Store - in-memory хранилище для локальной разработки и тестов.
// Транзакции сериализуются: пишущая транзакция работает с копией снимка,
// Commit атомарно подменяет снимок, Rollback его отбрасывает.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	st      *state
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Begin открывает транзакцию. Следующая пишущая операция ждёт её завершения.
func (s *Store) Begin(ctx context.Context) (domain.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.begin(), nil
}

func (s *Store) begin() *tx {
	s.writeMu.Lock()
	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()
	return &tx{store: s, st: work}
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Customers возвращает репозиторий клиентов с автокоммитом каждой операции.
func (s *Store) Customers() domain.CustomerRepository {
	return &customerRepository{v: storeView{s}}
}

// Addresses возвращает репозиторий адресов с автокоммитом.
func (s *Store) Addresses() domain.AddressRepository {
	return &addressRepository{v: storeView{s}}
}

// Products возвращает репозиторий каталога.
func (s *Store) Products() domain.ProductRepository {
	return &productRepository{v: storeView{s}}
}

// Orders возвращает репозиторий заказов с автокоммитом.
func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{v: storeView{s}}
}

// Outbox возвращает репозиторий outbox с автокоммитом.
func (s *Store) Outbox() domain.OutboxRepository {
	return &outboxRepository{v: storeView{s}}
}

// view абстрагирует доступ к снимку: напрямую (автокоммит) или внутри транзакции.
type view interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

type storeView struct {
	s *Store
}

func (v storeView) read(fn func(st *state) error) error {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return fn(v.s.st)
}

func (v storeView) write(fn func(st *state) error) error {
	t := v.s.begin()
	if err := fn(t.st); err != nil {
		_ = t.Rollback()
		return err
	}
	return t.Commit()
}

type tx struct {
	store *Store
	st    *state
	done  bool
}

func (t *tx) read(fn func(st *state) error) error {
	if t.done {
		return errTxClosed
	}
	return fn(t.st)
}

func (t *tx) write(fn func(st *state) error) error {
	if t.done {
		return errTxClosed
	}
	return fn(t.st)
}

func (t *tx) Customers() domain.CustomerRepository { return &customerRepository{v: t} }
func (t *tx) Addresses() domain.AddressRepository  { return &addressRepository{v: t} }
func (t *tx) Orders() domain.OrderRepository       { return &orderRepository{v: t} }
func (t *tx) Outbox() domain.OutboxRepository      { return &outboxRepository{v: t} }

// Commit публикует снимок транзакции.
func (t *tx) Commit() error {
	if t.done {
		return errTxClosed
	}
	t.store.mu.Lock()
	t.store.st = t.st
	t.store.mu.Unlock()
	t.done = true
	t.store.writeMu.Unlock()
	return nil
}

// Rollback отбрасывает снимок; повторный вызов - no-op.
func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.st = nil
	t.store.writeMu.Unlock()
	return nil
}

var (
	_ domain.UnitOfWork = (*Store)(nil)
	_ domain.Tx         = (*tx)(nil)
)
