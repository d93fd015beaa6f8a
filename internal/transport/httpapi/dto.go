package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/service/order"
)

// Date принимает календарную дату ("2006-01-02") или полную метку RFC 3339.
type Date struct {
	time.Time
}

var dateLayouts = []string{"2006-01-02", time.RFC3339Nano, "2006-01-02T15:04:05"}

// UnmarshalJSON разбирает дату в одном из поддерживаемых форматов.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported date format %q", raw)
}

type addressRequest struct {
	ZipCode      string `json:"zipCode"`
	Street       string `json:"street"`
	Number       int    `json:"number"`
	Neighborhood string `json:"neighborhood"`
	Complement   string `json:"addressComplement"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

func (r addressRequest) input() domain.AddressInput {
	return domain.AddressInput{
		ZipCode:      r.ZipCode,
		Street:       r.Street,
		Number:       r.Number,
		Neighborhood: r.Neighborhood,
		Complement:   r.Complement,
		City:         r.City,
		State:        r.State,
		Country:      r.Country,
	}
}

type customerRequest struct {
	FirstName   string           `json:"firstName"`
	LastName    string           `json:"lastName"`
	Email       string           `json:"email"`
	DateOfBirth Date             `json:"dateOfBirth"`
	Addresses   []addressRequest `json:"addresses"`
}

func (r customerRequest) input() domain.CustomerInput {
	in := domain.CustomerInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		DateOfBirth: r.DateOfBirth.Time,
		Addresses:   make([]domain.AddressInput, 0, len(r.Addresses)),
	}
	for _, a := range r.Addresses {
		in.Addresses = append(in.Addresses, a.input())
	}
	return in
}

// customerPatchRequest отличается от domain.CustomerPatch только форматом даты.
type customerPatchRequest struct {
	Email       domain.Optional[string] `json:"email"`
	DateOfBirth domain.Optional[Date]   `json:"dateOfBirth"`
	FirstName   domain.Optional[string] `json:"firstName"`
	LastName    domain.Optional[string] `json:"lastName"`
}

func (r customerPatchRequest) patch() domain.CustomerPatch {
	p := domain.CustomerPatch{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
	if dob, ok := r.DateOfBirth.Get(); ok {
		p.DateOfBirth = domain.Some(dob.Time)
	}
	return p
}

type productRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type itemRequest struct {
	Product   productRef      `json:"product"`
	UnitValue decimal.Decimal `json:"unitValue"`
	Quantity  int             `json:"quantityOfItems"`
}

type orderRequest struct {
	Number     string        `json:"number"`
	Date       Date          `json:"date"`
	CustomerID int64         `json:"customerId"`
	Items      []itemRequest `json:"items"`
}

func (r orderRequest) request() order.CreateRequest {
	req := order.CreateRequest{
		Number:     r.Number,
		Date:       r.Date.Time,
		CustomerID: r.CustomerID,
		Items:      make([]order.ItemRequest, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		req.Items = append(req.Items, order.ItemRequest{
			ProductCode: item.Product.Code,
			ProductName: item.Product.Name,
			UnitValue:   item.UnitValue,
			Quantity:    item.Quantity,
		})
	}
	return req
}

type productRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type errorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}
