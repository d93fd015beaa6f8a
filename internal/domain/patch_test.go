package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

func existingCustomer(t *testing.T) domain.Customer {
	t.Helper()
	addr, err := domain.SetExistingAddress(3, 1, validAddressInput())
	require.NoError(t, err)
	c, err := domain.SetExistingCustomer(1, validCustomerInput(), []domain.Address{addr})
	require.NoError(t, err)
	return c
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	var patch domain.CustomerPatch
	require.NoError(t, json.Unmarshal([]byte(`{"firstName":"","lastName":null}`), &patch))

	first, ok := patch.FirstName.Get()
	require.True(t, ok, "explicit empty string is a requested change")
	require.Equal(t, "", first)
	require.False(t, patch.LastName.IsSet(), "null means absent")
	require.False(t, patch.Email.IsSet(), "missing key means absent")
}

func TestOptional_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A domain.Optional[int] `json:"a"`
		B domain.Optional[int] `json:"b"`
	}{A: domain.Some(5)})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":5,"b":null}`, string(out))
}

func TestMergeCustomerPatch_OnlyPresentFields(t *testing.T) {
	existing := existingCustomer(t)

	merged, err := domain.MergeCustomerPatch(existing, domain.CustomerPatch{
		LastName: domain.Some("Lima"),
	}, testNow)
	require.NoError(t, err)

	require.Equal(t, "Lima", merged.LastName)
	require.Equal(t, existing.FirstName, merged.FirstName)
	require.Equal(t, existing.Email, merged.Email)
	require.Equal(t, existing.DateOfBirth, merged.DateOfBirth)
	require.Equal(t, existing.Addresses, merged.Addresses)
	require.Equal(t, "Souza", existing.LastName, "existing must not be mutated")
}

func TestMergeCustomerPatch_Idempotent(t *testing.T) {
	existing := existingCustomer(t)
	patch := domain.CustomerPatch{
		Email:       domain.Some("new@example.com"),
		FirstName:   domain.Some("Bia"),
		DateOfBirth: domain.Some(time.Date(1985, 3, 1, 15, 0, 0, 0, time.UTC)),
	}

	once, err := domain.MergeCustomerPatch(existing, patch, testNow)
	require.NoError(t, err)
	twice, err := domain.MergeCustomerPatch(once, patch, testNow)
	require.NoError(t, err)

	require.Equal(t, once, twice)
	require.Equal(t, time.Date(1985, 3, 1, 0, 0, 0, 0, time.UTC), once.DateOfBirth)
}

func TestMergeCustomerPatch_FutureDob(t *testing.T) {
	_, err := domain.MergeCustomerPatch(existingCustomer(t), domain.CustomerPatch{
		DateOfBirth: domain.Some(testNow.AddDate(0, 0, 1)),
	}, testNow)
	require.ErrorIs(t, err, domain.ErrTemporal)
}

func TestMergeCustomerPatch_EmptyStringIsChange(t *testing.T) {
	merged, err := domain.MergeCustomerPatch(existingCustomer(t), domain.CustomerPatch{
		FirstName: domain.Some(""),
	}, testNow)
	require.NoError(t, err)
	require.Equal(t, "", merged.FirstName)
	require.False(t, merged.IsValid())
}

func TestMergeAddressPatch(t *testing.T) {
	existing, err := domain.SetExistingAddress(3, 1, validAddressInput())
	require.NoError(t, err)

	patch := domain.AddressPatch{
		Street:     domain.Some("Rua Nova"),
		Number:     domain.Some(7),
		Complement: domain.Some("fundos"),
	}
	merged := domain.MergeAddressPatch(existing, patch)

	require.Equal(t, "Rua Nova", merged.Street)
	require.Equal(t, 7, merged.Number)
	require.Equal(t, "fundos", merged.Complement)
	require.Equal(t, existing.ZipCode, merged.ZipCode)
	require.Equal(t, existing.City, merged.City)
	require.Equal(t, existing.ID, merged.ID)
	require.Equal(t, existing.CustomerID, merged.CustomerID)

	require.Equal(t, merged, domain.MergeAddressPatch(merged, patch))
	require.True(t, domain.AddressPatch{}.IsEmpty())
	require.False(t, patch.IsEmpty())
}
