package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyScale - число знаков после запятой в денежных суммах.
const moneyScale = 2

// Item - позиция заказа. Принадлежит ровно одному заказу и неизменяема после создания.
type Item struct {
	productID   int64
	productCode string
	quantity    int
	unitValue   decimal.Decimal
}

// RegisterNewItem строит позицию по валидному продукту.
func RegisterNewItem(product Product, unitValue decimal.Decimal, quantity int) (Item, error) {
	if !product.IsValid() {
		return Item{}, NewError(KindStructural, MsgProductFieldsInvalid)
	}
	return newItem(product.ID, product.Code, unitValue, quantity)
}

// SetExistingItem восстанавливает позицию из хранилища по ссылке на продукт.
func SetExistingItem(productID int64, productCode string, unitValue decimal.Decimal, quantity int) (Item, error) {
	if err := PositiveInt("productId", productID); err != nil {
		return Item{}, err
	}
	if err := NonEmptyString("productCode", productCode); err != nil {
		return Item{}, err
	}
	return newItem(productID, productCode, unitValue, quantity)
}

func newItem(productID int64, productCode string, unitValue decimal.Decimal, quantity int) (Item, error) {
	if quantity <= 0 {
		return Item{}, NewError(KindStructural, fmt.Sprintf("item %s: quantity must be greater than zero", productCode))
	}
	if !unitValue.IsPositive() {
		return Item{}, NewError(KindStructural, fmt.Sprintf("item %s: unit value must be greater than zero", productCode))
	}
	// Денежные колонки хранилища - NUMERIC(19,2).
	if !unitValue.Equal(unitValue.Truncate(moneyScale)) {
		return Item{}, NewError(KindStructural, fmt.Sprintf("item %s: unit value must have at most %d decimal places", productCode, moneyScale))
	}
	return Item{
		productID:   productID,
		productCode: productCode,
		quantity:    quantity,
		unitValue:   unitValue,
	}, nil
}

// ProductID возвращает идентификатор продукта.
func (i Item) ProductID() int64 { return i.productID }

// ProductCode возвращает код продукта.
func (i Item) ProductCode() string { return i.productCode }

// Quantity возвращает количество единиц.
func (i Item) Quantity() int { return i.quantity }

// UnitValue возвращает цену за единицу.
func (i Item) UnitValue() decimal.Decimal { return i.unitValue }

// LineTotal = quantity * unitValue.
func (i Item) LineTotal() decimal.Decimal {
	return i.unitValue.Mul(decimal.NewFromInt(int64(i.quantity)))
}
