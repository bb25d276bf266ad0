package services

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-service/internal/apperr"
	"rental-service/internal/billing"
	"rental-service/internal/models"
)

func TestBillingService_SplitsEvenlyAcrossTenants(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	tenants := []models.Actor{
		h.user(models.RoleTenant), h.user(models.RoleTenant),
		h.user(models.RoleTenant), h.user(models.RoleTenant),
	}
	apt := h.apartment(owner, tenants...)

	bill, err := h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)

	assert.Equal(t, "1200.00", bill.TotalAmount.StringFixed(2))
	assert.Equal(t, "1200.00", bill.AmountRemaining.StringFixed(2))
	assert.Equal(t, models.BillingUnpaid, bill.Status)
	assert.Nil(t, bill.ContractID)
	require.Len(t, bill.SubBills, 4)
	for _, sub := range bill.SubBills {
		assert.Equal(t, "300.00", sub.Amount.StringFixed(2))
	}
	assert.True(t, billing.Consistent(bill))

	for _, tenant := range tenants {
		got := h.notificationsOf(tenant.UserID, models.NotificationNewBill)
		require.Len(t, got, 1)
		assert.Equal(t, "300.00", got[0].Data["share"])
		assert.Contains(t, got[0].Body, "water 80.00")
	}
	assert.Equal(t, 4, h.mailer.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.BillingsGenerated))
}

func TestBillingService_LeftoverCentsGoToFirstPayers(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	apt := h.apartment(owner, h.user(models.RoleTenant), h.user(models.RoleTenant), h.user(models.RoleTenant))

	_, err := h.apartments.UpdateUtilities(h.ctx, owner, apt.ID, models.UtilitiesPatch{Water: decPtr(dec(0)), Electricity: decPtr(dec(0))}, nil)
	require.NoError(t, err)
	rent := dec(100)
	_, err = h.apartments.Update(h.ctx, owner, apt.ID, models.UpdateApartmentRequest{Rent: &rent})
	require.NoError(t, err)

	bill, err := h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)

	var shares []string
	for _, sub := range bill.SubBills {
		shares = append(shares, sub.Share.StringFixed(2))
	}
	assert.Equal(t, []string{"33.34", "33.33", "33.33"}, shares)
	assert.True(t, billing.Consistent(bill))
}

func TestBillingService_ZeroTenantsBillsOwner(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	apt := h.apartment(owner)

	bill, err := h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)

	require.Len(t, bill.SubBills, 1)
	assert.Equal(t, owner.UserID, bill.SubBills[0].TenantID)
	assert.Equal(t, "1200.00", bill.SubBills[0].Amount.StringFixed(2))
}

func TestBillingService_DuplicatePeriodConflicts(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	apt := h.apartment(owner, h.user(models.RoleTenant))

	_, err := h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)

	_, err = h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	bills, err := h.billingRepo.ListByApartment(h.ctx, apt.ID)
	require.NoError(t, err)
	assert.Len(t, bills, 1)
}

func TestBillingService_DueDate(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	apt := h.apartment(owner)

	bill, err := h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-02"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()-1, bill.DueDate)

	bill, err = h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-03", DueDate: "2026-03-10"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).Unix(), bill.DueDate)

	_, err = h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "March"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-04", DueDate: "soon"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestBillingService_PrefersActiveContract(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	first, second := h.user(models.RoleTenant), h.user(models.RoleTenant)
	apt := h.apartment(owner, first, second)

	contract, err := h.contracts.Create(h.ctx, owner, models.NewContractRequest{
		ApartmentID: apt.ID,
		Rent:        dec(900),
		Utilities:   models.Utilities{Internet: dec(50)},
		Tenants:     []string{first.UserID},
		StartDate:   "2026-01-01",
		EndDate:     "2027-01-01",
	})
	require.NoError(t, err)

	bill, err := h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)

	assert.Equal(t, "950.00", bill.TotalAmount.StringFixed(2))
	require.NotNil(t, bill.ContractID)
	assert.Equal(t, contract.ID, *bill.ContractID)
	require.NotNil(t, bill.ContractVersion)
	assert.Equal(t, "1.00", *bill.ContractVersion)
	require.Len(t, bill.SubBills, 1)
	assert.Equal(t, first.UserID, bill.SubBills[0].TenantID)
}

func TestBillingService_GenerateFromContract(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	tenant := h.user(models.RoleTenant)
	apt := h.apartment(owner, tenant)

	contract, err := h.contracts.Create(h.ctx, owner, models.NewContractRequest{
		ApartmentID: apt.ID,
		Rent:        dec(700),
		StartDate:   "2026-01-01",
		EndDate:     "2027-01-01",
	})
	require.NoError(t, err)

	_, err = h.billings.GenerateFromContract(h.ctx, h.user(models.RoleOwner), contract.ID, models.ProcessBillingRequest{Period: "2026-10"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	bill, err := h.billings.GenerateFromContract(h.ctx, owner, contract.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)
	assert.Equal(t, "700.00", bill.TotalAmount.StringFixed(2))

	_, err = h.contracts.Terminate(h.ctx, owner, contract.ID)
	require.NoError(t, err)
	_, err = h.billings.GenerateFromContract(h.ctx, owner, contract.ID, models.ProcessBillingRequest{Period: "2026-11"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.billings.GenerateFromContract(h.ctx, owner, "missing", models.ProcessBillingRequest{Period: "2026-11"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBillingService_ReadAccess(t *testing.T) {
	h := newHarness(t)
	owner := h.user(models.RoleOwner)
	tenant := h.user(models.RoleTenant)
	stranger := h.user(models.RoleTenant)
	apt := h.apartment(owner, tenant)

	bill, err := h.billings.GenerateFromApartment(h.ctx, owner, apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)

	_, err = h.billings.Get(h.ctx, tenant, bill.ID)
	assert.NoError(t, err)
	_, err = h.billings.Get(h.ctx, stranger, bill.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = h.billings.ListForApartment(h.ctx, stranger, apt.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	mine, err := h.billings.ListMine(h.ctx, tenant.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, bill.ID, mine[0].ID)
}
