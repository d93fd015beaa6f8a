package customer_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/storage/memory"
)

func int64Ptr(v int64) *int64 { return &v }

func TestPatchAddress_Targeting(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	ctx := context.Background()

	ana, err := svc.Create(ctx, customerInput("ana@x.com"))
	require.NoError(t, err)
	addrID := ana.Addresses[0].ID

	patch := &domain.AddressPatch{Street: domain.Some("Rua Nova")}

	_, err = svc.PatchAddress(ctx, ana.ID, int64Ptr(addrID), nil)
	require.ErrorIs(t, err, domain.ErrAddressCannotBeNull)
	require.Equal(t, "Address cannot be null", domain.Message(err))

	_, err = svc.PatchAddress(ctx, ana.ID, nil, patch)
	require.ErrorIs(t, err, domain.ErrAddressWithoutID)
	require.Equal(t, http.StatusBadRequest, domain.StatusCode(err))

	unchanged, err := svc.PatchAddress(ctx, ana.ID, nil, nil)
	require.NoError(t, err, "neither id nor body is a no-op")
	require.Equal(t, ana.Addresses, unchanged.Addresses)

	updated, err := svc.PatchAddress(ctx, ana.ID, int64Ptr(addrID), patch)
	require.NoError(t, err)
	require.Equal(t, "Rua Nova", updated.Addresses[0].Street)
	require.Equal(t, ana.Addresses[0].ZipCode, updated.Addresses[0].ZipCode)
}

func TestPatchAddress_OwnershipAndNotFound(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	ctx := context.Background()

	ana, err := svc.Create(ctx, customerInput("ana@x.com"))
	require.NoError(t, err)
	bia, err := svc.Create(ctx, customerInput("bia@x.com"))
	require.NoError(t, err)

	patch := &domain.AddressPatch{Number: domain.Some(7)}

	_, err = svc.PatchAddress(ctx, ana.ID, int64Ptr(bia.Addresses[0].ID), patch)
	require.ErrorIs(t, err, domain.ErrAddressNotOwned)
	require.Equal(t, http.StatusConflict, domain.StatusCode(err))

	_, err = svc.PatchAddress(ctx, ana.ID, int64Ptr(999), patch)
	require.ErrorIs(t, err, domain.ErrAddressNotFound)
	require.Equal(t, http.StatusNotFound, domain.StatusCode(err))

	_, err = svc.PatchAddress(ctx, 999, int64Ptr(ana.Addresses[0].ID), patch)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = svc.PatchAddress(ctx, ana.ID, int64Ptr(ana.Addresses[0].ID), &domain.AddressPatch{Number: domain.Some(0)})
	require.ErrorIs(t, err, domain.ErrInvalid)
}

func TestAddAddress(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	ctx := context.Background()

	ana, err := svc.Create(ctx, customerInput("ana@x.com"))
	require.NoError(t, err)

	created, err := svc.AddAddress(ctx, ana.ID, addressInput("Rua Z"))
	require.NoError(t, err)
	require.Equal(t, ana.ID, created.CustomerID)

	_, err = svc.AddAddress(ctx, ana.ID, addressInput("Rua Z"))
	require.ErrorIs(t, err, domain.ErrAddressExists)

	_, err = svc.AddAddress(ctx, 999, addressInput("Rua Y"))
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	invalid := addressInput("Rua X")
	invalid.City = ""
	_, err = svc.AddAddress(ctx, ana.ID, invalid)
	require.ErrorIs(t, err, domain.ErrInvalid)

	current, err := svc.Get(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, current.Addresses, 2)
}

func TestReplaceAddress(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	ctx := context.Background()

	in := customerInput("ana@x.com")
	in.Addresses = append(in.Addresses, addressInput("Rua B"))
	ana, err := svc.Create(ctx, in)
	require.NoError(t, err)

	updated, err := svc.ReplaceAddress(ctx, ana.ID, ana.Addresses[0].ID, addressInput("Rua C"))
	require.NoError(t, err)
	require.Equal(t, "Rua C", updated.Addresses[0].Street)

	_, err = svc.ReplaceAddress(ctx, ana.ID, ana.Addresses[0].ID, addressInput("Rua B"))
	require.ErrorIs(t, err, domain.ErrAddressExists, "would duplicate the second address")
}

func TestDeleteAddress(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	ctx := context.Background()

	ana, err := svc.Create(ctx, customerInput("ana@x.com"))
	require.NoError(t, err)
	bia, err := svc.Create(ctx, customerInput("bia@x.com"))
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteAddress(ctx, ana.ID, bia.Addresses[0].ID), domain.ErrAddressNotOwned)
	require.NoError(t, svc.DeleteAddress(ctx, ana.ID, ana.Addresses[0].ID))
	require.ErrorIs(t, svc.DeleteAddress(ctx, ana.ID, ana.Addresses[0].ID), domain.ErrAddressNotFound)

	current, err := svc.Get(ctx, ana.ID)
	require.NoError(t, err)
	require.Empty(t, current.Addresses)
}
