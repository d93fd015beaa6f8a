// Package httpapi - REST-интерфейс сервиса клиентов и заказов поверх gin.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
	"github.com/vladislavdragonenkov/customers/internal/service/customer"
	"github.com/vladislavdragonenkov/customers/internal/service/idempotency"
	"github.com/vladislavdragonenkov/customers/internal/service/order"
)

// CustomerService - операции над агрегатом клиента.
type CustomerService interface {
	List(ctx context.Context, pageNumber, pageSize int) ([]domain.Customer, error)
	Get(ctx context.Context, id int64) (domain.Customer, error)
	Create(ctx context.Context, in domain.CustomerInput) (domain.Customer, error)
	CreateBatch(ctx context.Context, records []domain.CustomerInput) (customer.BatchResult, error)
	Replace(ctx context.Context, id int64, in domain.CustomerInput) (domain.Customer, error)
	Patch(ctx context.Context, id int64, patch domain.CustomerPatch) (domain.Customer, error)
	Delete(ctx context.Context, id int64) error
	PatchAddress(ctx context.Context, id int64, addressID *int64, patch *domain.AddressPatch) (domain.Customer, error)
	AddAddress(ctx context.Context, id int64, in domain.AddressInput) (domain.Address, error)
	ReplaceAddress(ctx context.Context, id, addressID int64, in domain.AddressInput) (domain.Customer, error)
	DeleteAddress(ctx context.Context, id, addressID int64) error
}

// OrderService - операции над заказами.
type OrderService interface {
	Create(ctx context.Context, req order.CreateRequest) (*domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, pageNumber, pageSize int) ([]*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error)
	ProductLookup(ctx context.Context, orders ...*domain.Order) (func(code string) (domain.Product, bool), error)
}

// ProductService - операции над каталогом.
type ProductService interface {
	Create(ctx context.Context, code, name string) (domain.Product, error)
	GetByCode(ctx context.Context, code string) (domain.Product, error)
	List(ctx context.Context, pageNumber, pageSize int) ([]domain.Product, error)
}

// Dependencies - зависимости роутера. Idempotency и Metrics опциональны.
type Dependencies struct {
	Customers   CustomerService
	Orders      OrderService
	Products    ProductService
	Idempotency *idempotency.Guard
	Metrics     *metrics.ServiceMetrics
	Logger      *log.Entry
}

type handler struct {
	customers CustomerService
	orders    OrderService
	products  ProductService
	logger    *log.Entry
}

// NewRouter собирает gin-движок со всеми маршрутами API.
func NewRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	h := &handler{
		customers: deps.Customers,
		orders:    deps.Orders,
		products:  deps.Products,
		logger:    logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), observeHTTP(deps.Metrics), accessLog(logger))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Message: "route not found", RequestID: requestIDFrom(c)})
	})

	guarded := idempotent(deps.Idempotency, deps.Metrics, logger)
	api := r.Group("/api")

	customers := api.Group("/customers")
	customers.GET("", h.listCustomers)
	customers.POST("", h.createCustomer)
	customers.POST("/batch", guarded, h.createCustomerBatch)
	customers.GET("/:id", h.getCustomer)
	customers.PUT("/:id", h.replaceCustomer)
	customers.PATCH("/:id", h.patchCustomer)
	customers.DELETE("/:id", h.deleteCustomer)
	customers.PATCH("/:id/address", h.patchAddress)
	customers.POST("/:id/addresses", h.addAddress)
	customers.PUT("/:id/addresses/:addressId", h.replaceAddress)
	customers.DELETE("/:id/addresses/:addressId", h.deleteAddress)
	customers.GET("/:id/orders", h.listCustomerOrders)

	orders := api.Group("/orders")
	orders.POST("", guarded, h.createOrder)
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrder)

	products := api.Group("/products")
	products.POST("", h.createProduct)
	products.GET("", h.listProducts)
	products.GET("/:code", h.getProduct)

	return r
}

// pagination читает pageNumber/pageSize; нечисловые значения - ошибка пагинации.
func pagination(c *gin.Context) (pageNumber, pageSize int, err error) {
	pageNumber, err = strconv.Atoi(c.DefaultQuery("pageNumber", strconv.Itoa(domain.DefaultPageNumber)))
	if err != nil {
		return 0, 0, domain.ErrPagination
	}
	pageSize, err = strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(domain.DefaultPageSize)))
	if err != nil {
		return 0, 0, domain.ErrPagination
	}
	return pageNumber, pageSize, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
