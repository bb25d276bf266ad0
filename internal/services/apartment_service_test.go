package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
)

func TestApartmentService_CreateRequiresOwner(t *testing.T) {
	h := newHarness(t)
	tenant := h.user(models.RoleTenant)

	_, err := h.apartments.Create(h.ctx, tenant, models.CreateApartmentRequest{Title: "Nope"}, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	owner := h.user(models.RoleOwner)
	_, err = h.apartments.Create(h.ctx, owner, models.CreateApartmentRequest{Title: "  "}, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	admin := models.Actor{UserID: "root", Role: models.RoleAdmin}
	apt, err := h.apartments.Create(h.ctx, admin, models.CreateApartmentRequest{Title: "Managed", OwnerID: owner.UserID}, nil)
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, apt.OwnerID)
	assert.Equal(t, models.ApartmentAvailable, apt.Status)
}

func TestApartmentService_TenantLifecycle(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	tenant := h.user(models.RoleTenant)
	apt := h.apartment(owner)

	got, err := h.apartments.AddTenant(h.ctx, owner, apt.ID, tenant.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{tenant.UserID}, got.Tenants)
	assert.Equal(t, models.ApartmentOccupied, got.Status)

	_, err = h.apartments.AddTenant(h.ctx, owner, apt.ID, tenant.UserID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = h.apartments.AddTenant(h.ctx, owner, apt.ID, owner.UserID)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = h.apartments.AddTenant(h.ctx, h.user(models.RoleOwner), apt.ID, h.user(models.RoleTenant).UserID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = h.apartments.AddTenant(h.ctx, owner, apt.ID, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	mine, err := h.apartments.ListForTenant(h.ctx, tenant.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	got, err = h.apartments.RemoveTenant(h.ctx, owner, apt.ID, tenant.UserID)
	require.NoError(t, err)
	assert.Empty(t, got.Tenants)
	assert.Equal(t, models.ApartmentAvailable, got.Status)

	_, err = h.apartments.RemoveTenant(h.ctx, owner, apt.ID, tenant.UserID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApartmentService_TransferTenancy(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	tenant := h.user(models.RoleTenant)
	from := h.apartment(owner, tenant)
	to := h.apartment(owner)

	gotFrom, gotTo, err := h.apartments.TransferTenancy(h.ctx, owner, models.TransferTenancyRequest{
		TenantID: tenant.UserID, FromApartmentID: from.ID, ToApartmentID: to.ID,
	})
	require.NoError(t, err)
	assert.False(t, gotFrom.HasTenant(tenant.UserID))
	assert.Equal(t, models.ApartmentAvailable, gotFrom.Status)
	assert.True(t, gotTo.HasTenant(tenant.UserID))
	assert.Equal(t, models.ApartmentOccupied, gotTo.Status)
}

func TestApartmentService_TransferTenancyIsAtomic(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	tenant := h.user(models.RoleTenant)
	from := h.apartment(owner, tenant)
	to := h.apartment(owner, tenant)

	_, _, err := h.apartments.TransferTenancy(h.ctx, owner, models.TransferTenancyRequest{
		TenantID: tenant.UserID, FromApartmentID: from.ID, ToApartmentID: to.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := h.apartments.Get(h.ctx, from.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasTenant(tenant.UserID), "removal must roll back with the failed add")
	assert.Equal(t, models.ApartmentOccupied, stored.Status)

	foreign := h.apartment(h.user(models.RoleOwner))
	_, _, err = h.apartments.TransferTenancy(h.ctx, owner, models.TransferTenancyRequest{
		TenantID: tenant.UserID, FromApartmentID: from.ID, ToApartmentID: foreign.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	stored, err = h.apartments.Get(h.ctx, from.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasTenant(tenant.UserID))
}

// leaseFor opens a contract on apt whose tenants default to the apartment's.
func (h *harness) leaseFor(owner models.Actor, apt *models.Apartment) *models.Contract {
	h.t.Helper()
	c, err := h.contracts.Create(h.ctx, owner, models.NewContractRequest{
		ApartmentID: apt.ID,
		Rent:        dec(1000),
		Utilities:   models.Utilities{Water: dec(80)},
		StartDate:   "2026-01-01",
		EndDate:     "2027-01-01",
	})
	require.NoError(h.t, err)
	return c
}

func (h *harness) contractTenants(owner models.Actor, id string) (string, []string) {
	h.t.Helper()
	c, err := h.contracts.Get(h.ctx, owner, id)
	require.NoError(h.t, err)
	latest, err := c.LatestVersion()
	require.NoError(h.t, err)
	require.NoError(h.t, c.CheckVersions())
	return c.CurrentVersion, []string(latest.Tenants)
}

func TestApartmentService_TenancyChangesAmendActiveContract(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	mover, stayer := h.user(models.RoleTenant), h.user(models.RoleTenant)
	from := h.apartment(owner, mover)
	to := h.apartment(owner)
	fromLease := h.leaseFor(owner, from)
	toLease := h.leaseFor(owner, to)

	_, err := h.apartments.AddTenant(h.ctx, owner, from.ID, stayer.UserID)
	require.NoError(t, err)
	version, tenants := h.contractTenants(owner, fromLease.ID)
	assert.Equal(t, "1.01", version)
	assert.Equal(t, []string{mover.UserID, stayer.UserID}, tenants)

	_, _, err = h.apartments.TransferTenancy(h.ctx, owner, models.TransferTenancyRequest{
		TenantID: mover.UserID, FromApartmentID: from.ID, ToApartmentID: to.ID,
	})
	require.NoError(t, err)
	version, tenants = h.contractTenants(owner, fromLease.ID)
	assert.Equal(t, "1.02", version)
	assert.Equal(t, []string{stayer.UserID}, tenants)
	version, tenants = h.contractTenants(owner, toLease.ID)
	assert.Equal(t, "1.01", version)
	assert.Equal(t, []string{mover.UserID}, tenants)

	bill, err := h.billings.GenerateFromApartment(h.ctx, owner, from.ID, models.ProcessBillingRequest{Period: "2026-11"})
	require.NoError(t, err)
	require.Len(t, bill.SubBills, 1)
	assert.Equal(t, stayer.UserID, bill.SubBills[0].TenantID)
	assert.Equal(t, "1080.00", bill.SubBills[0].Amount.StringFixed(2))

	_, err = h.apartments.RemoveTenant(h.ctx, owner, from.ID, stayer.UserID)
	require.NoError(t, err)
	_, tenants = h.contractTenants(owner, fromLease.ID)
	assert.Empty(t, tenants)

	bill, err = h.billings.GenerateFromApartment(h.ctx, owner, from.ID, models.ProcessBillingRequest{Period: "2026-12"})
	require.NoError(t, err)
	require.Len(t, bill.SubBills, 1)
	assert.Equal(t, owner.UserID, bill.SubBills[0].TenantID, "an emptied lease is billed to the owner")
}

func TestApartmentService_FailedTransferLeavesContractAlone(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	tenant := h.user(models.RoleTenant)
	from := h.apartment(owner, tenant)
	to := h.apartment(owner, tenant)
	lease := h.leaseFor(owner, from)

	_, _, err := h.apartments.TransferTenancy(h.ctx, owner, models.TransferTenancyRequest{
		TenantID: tenant.UserID, FromApartmentID: from.ID, ToApartmentID: to.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	version, tenants := h.contractTenants(owner, lease.ID)
	assert.Equal(t, "1.00", version)
	assert.Equal(t, []string{tenant.UserID}, tenants)
}

func TestApartmentService_UpdateUtilitiesChecksRevision(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	apt := h.apartment(owner)

	rev := apt.Revision
	got, err := h.apartments.UpdateUtilities(h.ctx, owner, apt.ID, models.UtilitiesPatch{Gas: decPtr(dec(30))}, &rev)
	require.NoError(t, err)
	assert.Equal(t, "30.00", got.Utilities.Gas.StringFixed(2))
	assert.Equal(t, "80.00", got.Utilities.Water.StringFixed(2), "fields absent from the patch are kept")
	assert.Equal(t, rev+1, got.Revision)

	_, err = h.apartments.UpdateUtilities(h.ctx, owner, apt.ID, models.UtilitiesPatch{Gas: decPtr(dec(40))}, &rev)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = h.apartments.UpdateUtilities(h.ctx, owner, apt.ID, models.UtilitiesPatch{Gas: decPtr(dec(-1))}, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = h.apartments.UpdateUtilities(h.ctx, owner, apt.ID, models.UtilitiesPatch{}, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestApartmentService_DeleteKeepsBilledListings(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	billed := h.apartment(owner)
	_, err := h.billings.GenerateFromApartment(h.ctx, owner, billed.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)

	assert.ErrorIs(t, h.apartments.Delete(h.ctx, owner, billed.ID), apperr.ErrConflict)

	fresh := h.apartment(owner)
	require.NoError(t, h.apartments.Delete(h.ctx, owner, fresh.ID))
	_, err = h.apartments.Get(h.ctx, fresh.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApartmentService_ListNearby(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	place := func(title string, lat, lng float64) {
		_, err := h.apartments.Create(h.ctx, owner, models.CreateApartmentRequest{
			Title: title, Rent: dec(500), Location: &models.GeoPoint{Lat: lat, Lng: lng},
		}, nil)
		require.NoError(t, err)
	}
	place("far", 10.90, 106.90)
	place("near", 10.7770, 106.7010)
	place("nearest", 10.7769, 106.7009)
	_, err := h.apartments.Create(h.ctx, owner, models.CreateApartmentRequest{Title: "nowhere", Rent: dec(500)}, nil)
	require.NoError(t, err)

	apts, total, err := h.apartments.List(h.ctx, models.ApartmentFilter{
		Near: &models.GeoPoint{Lat: 10.7769, Lng: 106.7009}, RadiusKm: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, apts, 2)
	assert.Equal(t, "nearest", apts[0].Title)
	assert.Equal(t, "near", apts[1].Title)

	_, _, err = h.apartments.List(h.ctx, models.ApartmentFilter{Near: &models.GeoPoint{Lat: 1, Lng: 1}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	page, total, err := h.apartments.List(h.ctx, models.ApartmentFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 1)
}
