package domain

// AddressInput - сырые поля адреса из запроса клиента.
type AddressInput struct {
	ZipCode      string
	Street       string
	Number       int
	Neighborhood string
	Complement   string
	City         string
	State        string
	Country      string
}

// Address принадлежит ровно одному клиенту и не переживает его.
type Address struct {
	ID         int64
	CustomerID int64
	AddressInput
}

// RegisterNewAddress строит адрес из клиентского ввода; id и владелец назначаются при сохранении.
func RegisterNewAddress(in AddressInput) Address {
	return Address{AddressInput: in}
}

// SetExistingAddress восстанавливает адрес из хранилища.
func SetExistingAddress(id, customerID int64, in AddressInput) (Address, error) {
	if err := PositiveInt("addressId", id); err != nil {
		return Address{}, err
	}
	if err := PositiveInt("customerId", customerID); err != nil {
		return Address{}, err
	}
	return Address{ID: id, CustomerID: customerID, AddressInput: in}, nil
}

// Validate возвращает список нарушений; complement необязателен.
func (a Address) Validate() []error {
	var errs []error
	for _, f := range []struct {
		name  string
		value string
	}{
		{"zipCode", a.ZipCode},
		{"street", a.Street},
		{"neighborhood", a.Neighborhood},
		{"city", a.City},
		{"state", a.State},
		{"country", a.Country},
	} {
		if err := NonEmptyString(f.name, f.value); err != nil {
			errs = append(errs, err)
		}
	}
	if err := PositiveInt("number", int64(a.Number)); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// IsValid сообщает, что адрес прошёл все проверки.
func (a Address) IsValid() bool {
	return len(a.Validate()) == 0
}

// SameLocation сравнивает восемь значимых полей адреса без учёта id и владельца.
func (a Address) SameLocation(other Address) bool {
	return a.AddressInput == other.AddressInput
}
