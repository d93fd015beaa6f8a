package customer

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// PatchAddress частично обновляет адрес клиента.
// id адреса и тело патча передаются вместе; если нет ни того ни другого, клиент возвращается без изменений.
func (s *Service) PatchAddress(ctx context.Context, id int64, addressID *int64, patch *domain.AddressPatch) (updated domain.Customer, err error) {
	defer s.observe("patch_address", time.Now(), &err)

	err = s.inTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Customers().Get(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case addressID == nil && patch == nil:
			updated = existing
			return nil
		case patch == nil:
			return domain.ErrAddressCannotBeNull
		case addressID == nil:
			return domain.ErrAddressWithoutID
		}

		current, err := ownedAddress(ctx, tx, id, *addressID)
		if err != nil {
			return err
		}
		merged := domain.MergeAddressPatch(current, *patch)
		if err := checkAddress(existing, merged); err != nil {
			return err
		}
		if err := tx.Addresses().Update(ctx, merged); err != nil {
			return err
		}
		return s.reloadAndEnqueue(ctx, tx, id, &updated)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return updated, nil
}

// AddAddress добавляет клиенту новый адрес.
func (s *Service) AddAddress(ctx context.Context, id int64, in domain.AddressInput) (created domain.Address, err error) {
	defer s.observe("add_address", time.Now(), &err)

	a := domain.RegisterNewAddress(in)
	if problems := a.Validate(); len(problems) > 0 {
		return domain.Address{}, problems[0]
	}

	err = s.inTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Customers().Get(ctx, id)
		if err != nil {
			return err
		}
		if existing.HasAddress(a) {
			return domain.ErrAddressExists
		}
		a.CustomerID = id
		stored, err := tx.Addresses().Create(ctx, a)
		if err != nil {
			return err
		}
		created = stored

		var reloaded domain.Customer
		return s.reloadAndEnqueue(ctx, tx, id, &reloaded)
	})
	if err != nil {
		return domain.Address{}, err
	}
	return created, nil
}

// ReplaceAddress полностью заменяет поля адреса клиента.
func (s *Service) ReplaceAddress(ctx context.Context, id, addressID int64, in domain.AddressInput) (updated domain.Customer, err error) {
	defer s.observe("replace_address", time.Now(), &err)

	err = s.inTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Customers().Get(ctx, id)
		if err != nil {
			return err
		}
		current, err := ownedAddress(ctx, tx, id, addressID)
		if err != nil {
			return err
		}
		current.AddressInput = in
		if err := checkAddress(existing, current); err != nil {
			return err
		}
		if err := tx.Addresses().Update(ctx, current); err != nil {
			return err
		}
		return s.reloadAndEnqueue(ctx, tx, id, &updated)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return updated, nil
}

// DeleteAddress удаляет адрес клиента.
func (s *Service) DeleteAddress(ctx context.Context, id, addressID int64) (err error) {
	defer s.observe("delete_address", time.Now(), &err)

	return s.inTx(ctx, func(tx domain.Tx) error {
		if _, err := tx.Customers().Get(ctx, id); err != nil {
			return err
		}
		if _, err := ownedAddress(ctx, tx, id, addressID); err != nil {
			return err
		}
		if err := tx.Addresses().Delete(ctx, addressID); err != nil {
			return err
		}
		var reloaded domain.Customer
		return s.reloadAndEnqueue(ctx, tx, id, &reloaded)
	})
}

// ownedAddress загружает адрес и проверяет владельца: чужой адрес - конфликт, а не "не найден".
func ownedAddress(ctx context.Context, tx domain.Tx, customerID, addressID int64) (domain.Address, error) {
	a, err := tx.Addresses().Get(ctx, addressID)
	if err != nil {
		return domain.Address{}, err
	}
	if a.CustomerID != customerID {
		return domain.Address{}, domain.ErrAddressNotOwned
	}
	return a, nil
}

// checkAddress проверяет поля адреса и отсутствие такого же адреса среди остальных адресов клиента.
func checkAddress(owner domain.Customer, a domain.Address) error {
	if problems := a.Validate(); len(problems) > 0 {
		return problems[0]
	}
	for _, other := range owner.Addresses {
		if other.ID != a.ID && other.SameLocation(a) {
			return domain.ErrAddressExists
		}
	}
	return nil
}
