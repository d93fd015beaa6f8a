package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional - поле частичного обновления с признаком присутствия.
// Отсутствующий ключ и JSON null означают "не менять"; любое другое значение,
// включая пустую строку и ноль, означает запрошенное изменение.
type Optional[T any] struct {
	value T
	set   bool
}

// Some возвращает присутствующее значение.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None возвращает отсутствующее значение.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get возвращает значение и признак присутствия.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet сообщает, присутствует ли значение.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// apply перезаписывает dst, если значение присутствует.
func (o Optional[T]) apply(dst *T) {
	if o.set {
		*dst = o.value
	}
}

// UnmarshalJSON трактует null как отсутствие значения.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalJSON сериализует отсутствующее значение как null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// CustomerPatch - частичное обновление клиента.
type CustomerPatch struct {
	Email       Optional[string]    `json:"email"`
	DateOfBirth Optional[time.Time] `json:"dateOfBirth"`
	FirstName   Optional[string]    `json:"firstName"`
	LastName    Optional[string]    `json:"lastName"`
}

// AddressPatch - частичное обновление адреса.
type AddressPatch struct {
	ZipCode      Optional[string] `json:"zipCode"`
	Street       Optional[string] `json:"street"`
	Number       Optional[int]    `json:"number"`
	Neighborhood Optional[string] `json:"neighborhood"`
	Complement   Optional[string] `json:"addressComplement"`
	City         Optional[string] `json:"city"`
	State        Optional[string] `json:"state"`
	Country      Optional[string] `json:"country"`
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p AddressPatch) IsEmpty() bool {
	return !p.ZipCode.IsSet() && !p.Street.IsSet() && !p.Number.IsSet() &&
		!p.Neighborhood.IsSet() && !p.Complement.IsSet() && !p.City.IsSet() &&
		!p.State.IsSet() && !p.Country.IsSet()
}

// MergeCustomerPatch применяет присутствующие поля патча к копии клиента.
// Дата рождения из патча проверяется правилом "не в будущем"; конфликт email
// проверяет сервис, так как для этого нужно хранилище.
func MergeCustomerPatch(existing Customer, patch CustomerPatch, now time.Time) (Customer, error) {
	merged := existing.Clone()

	if dob, ok := patch.DateOfBirth.Get(); ok {
		if NotFutureDate("dateOfBirth", dob, now) != nil {
			return Customer{}, ErrDateOfBirthInFuture
		}
		merged.DateOfBirth = DateOnly(dob)
	}
	if email, ok := patch.Email.Get(); ok && email != merged.Email {
		merged.Email = email
	}
	patch.FirstName.apply(&merged.FirstName)
	patch.LastName.apply(&merged.LastName)

	merged.revalidate(now)
	return merged, nil
}

// MergeAddressPatch применяет присутствующие поля патча к копии адреса.
func MergeAddressPatch(existing Address, patch AddressPatch) Address {
	merged := existing
	patch.ZipCode.apply(&merged.ZipCode)
	patch.Street.apply(&merged.Street)
	patch.Number.apply(&merged.Number)
	patch.Neighborhood.apply(&merged.Neighborhood)
	patch.Complement.apply(&merged.Complement)
	patch.City.apply(&merged.City)
	patch.State.apply(&merged.State)
	patch.Country.apply(&merged.Country)
	return merged
}
