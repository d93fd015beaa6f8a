// Package projection строит внешние представления агрегатов.
package projection

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// DateLayout - формат календарных дат в ответах.
const DateLayout = "2006-01-02"

// AddressResponse - адрес без ссылки на владельца.
type AddressResponse struct {
	ID           int64  `json:"addressId"`
	ZipCode      string `json:"zipCode"`
	Street       string `json:"street"`
	Number       int    `json:"number"`
	Neighborhood string `json:"neighborhood"`
	Complement   string `json:"addressComplement"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

// CustomerResponse - клиент с плоским списком адресов.
type CustomerResponse struct {
	ID          int64             `json:"customerId"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	Email       string            `json:"email"`
	DateOfBirth string            `json:"dateOfBirth"`
	Addresses   []AddressResponse `json:"addresses"`
}

// ProductResponse - продукт позиции заказа.
type ProductResponse struct {
	ID   int64  `json:"productId"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ItemResponse - позиция заказа.
type ItemResponse struct {
	Product   ProductResponse `json:"product"`
	Quantity  int             `json:"quantityOfItems"`
	UnitValue decimal.Decimal `json:"unitValue"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// OrderResponse - заказ с позициями и вычисленной суммой.
type OrderResponse struct {
	ID         int64           `json:"orderId"`
	Number     string          `json:"number"`
	Date       string          `json:"date"`
	CustomerID int64           `json:"customerId"`
	Items      []ItemResponse  `json:"items"`
	Total      decimal.Decimal `json:"totalOrderValue"`
}

// ProductLookup ищет продукт по коду.
type ProductLookup func(code string) (domain.Product, bool)

// Address проецирует адрес.
func Address(a domain.Address) AddressResponse {
	return AddressResponse{
		ID:           a.ID,
		ZipCode:      a.ZipCode,
		Street:       a.Street,
		Number:       a.Number,
		Neighborhood: a.Neighborhood,
		Complement:   a.Complement,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
	}
}

// Customer проецирует клиента; адреса идут в порядке агрегата.
func Customer(c domain.Customer) CustomerResponse {
	out := CustomerResponse{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		DateOfBirth: c.DateOfBirth.Format(DateLayout),
		Addresses:   make([]AddressResponse, 0, len(c.Addresses)),
	}
	for _, a := range c.Addresses {
		out.Addresses = append(out.Addresses, Address(a))
	}
	return out
}

// Customers проецирует список клиентов.
func Customers(cs []domain.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, Customer(c))
	}
	return out
}

// Order проецирует заказ. Продукт, не найденный lookup, - нарушение целостности, а не ошибка ввода.
func Order(o *domain.Order, lookup ProductLookup) (OrderResponse, error) {
	out := OrderResponse{
		ID:         o.ID(),
		Number:     o.Number(),
		Date:       o.Date().UTC().Format(DateLayout),
		CustomerID: o.CustomerID(),
		Total:      o.Total(),
	}

	items := o.Items()
	out.Items = make([]ItemResponse, 0, len(items))
	for _, item := range items {
		p, ok := lookup(item.ProductCode())
		if !ok {
			return OrderResponse{}, domain.WrapError(domain.KindIntegrity, "",
				fmt.Errorf("order %d: product %q is missing from catalog", o.ID(), item.ProductCode()))
		}
		out.Items = append(out.Items, ItemResponse{
			Product:   ProductResponse{ID: p.ID, Code: p.Code, Name: p.Name},
			Quantity:  item.Quantity(),
			UnitValue: item.UnitValue(),
			LineTotal: item.LineTotal(),
		})
	}
	return out, nil
}

// Orders проецирует список заказов; первая ошибка прерывает проекцию.
func Orders(orders []*domain.Order, lookup ProductLookup) ([]OrderResponse, error) {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp, err := Order(o, lookup)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// Product проецирует продукт каталога.
func Product(p domain.Product) ProductResponse {
	return ProductResponse{ID: p.ID, Code: p.Code, Name: p.Name}
}
