package domain

import "time"

// CustomerInput - сырые поля клиента из запроса.
type CustomerInput struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth time.Time
	Addresses   []AddressInput
}

// Customer агрегирует данные клиента и его адреса.
// ID назначается хранилищем и после этого не меняется.
type Customer struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth time.Time
	Addresses   []Address

	problems []error
}

// RegisterNewCustomer строит клиента из клиентского ввода и вычисляет валидность.
// Уникальность email здесь не проверяется: это ответственность вызывающего сервиса.
func RegisterNewCustomer(in CustomerInput, now time.Time) Customer {
	c := Customer{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		DateOfBirth: DateOnly(in.DateOfBirth),
		Addresses:   make([]Address, 0, len(in.Addresses)),
	}
	for _, a := range in.Addresses {
		c.Addresses = append(c.Addresses, RegisterNewAddress(a))
	}
	c.revalidate(now)
	return c
}

// SetExistingCustomer восстанавливает клиента из хранилища; проверки уникальности пропускаются.
func SetExistingCustomer(id int64, in CustomerInput, addresses []Address) (Customer, error) {
	if err := PositiveInt("customerId", id); err != nil {
		return Customer{}, err
	}
	c := Customer{
		ID:          id,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		DateOfBirth: DateOnly(in.DateOfBirth),
		Addresses:   addresses,
	}
	if c.Addresses == nil {
		c.Addresses = []Address{}
	}
	return c, nil
}

func (c *Customer) revalidate(now time.Time) {
	c.problems = c.Validate(now)
}

// Validate проверяет поля клиента относительно момента now.
func (c Customer) Validate(now time.Time) []error {
	var errs []error
	// Дата проверяется первой: её сообщение важнее для клиента.
	if NotFutureDate("dateOfBirth", c.DateOfBirth, now) != nil {
		errs = append(errs, ErrDateOfBirthInFuture)
	}
	if err := NonEmptyString("firstName", c.FirstName); err != nil {
		errs = append(errs, err)
	}
	if err := NonEmptyString("lastName", c.LastName); err != nil {
		errs = append(errs, err)
	}
	if err := NonEmptyString("email", c.Email); err != nil {
		errs = append(errs, err)
	}
	for _, a := range c.Addresses {
		errs = append(errs, a.Validate()...)
	}
	return errs
}

// IsValid сообщает результат последней проверки фабрики.
func (c Customer) IsValid() bool {
	return len(c.problems) == 0
}

// Problems возвращает нарушения, найденные фабрикой.
func (c Customer) Problems() []error {
	out := make([]error, len(c.problems))
	copy(out, c.problems)
	return out
}

// FirstProblem возвращает первое нарушение или nil.
func (c Customer) FirstProblem() error {
	if len(c.problems) == 0 {
		return nil
	}
	return c.problems[0]
}

// Clone возвращает копию клиента с независимым списком адресов.
func (c Customer) Clone() Customer {
	out := c
	out.Addresses = make([]Address, len(c.Addresses))
	copy(out.Addresses, c.Addresses)
	out.problems = nil
	if len(c.problems) > 0 {
		out.problems = append([]error(nil), c.problems...)
	}
	return out
}

// AddressByID ищет адрес клиента по идентификатору.
func (c Customer) AddressByID(id int64) (Address, bool) {
	for _, a := range c.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}

// HasAddress сообщает, есть ли у клиента адрес с теми же значимыми полями.
func (c Customer) HasAddress(a Address) bool {
	for _, existing := range c.Addresses {
		if existing.SameLocation(a) {
			return true
		}
	}
	return false
}

// Input возвращает поля клиента в виде ввода (используется при замене и восстановлении).
func (c Customer) Input() CustomerInput {
	in := CustomerInput{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		DateOfBirth: c.DateOfBirth,
		Addresses:   make([]AddressInput, 0, len(c.Addresses)),
	}
	for _, a := range c.Addresses {
		in.Addresses = append(in.Addresses, a.AddressInput)
	}
	return in
}
