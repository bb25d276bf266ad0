package services

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-service/internal/apperr"
	"rental-service/internal/billing"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

type paymentFixture struct {
	*harness
	owner   models.Actor
	tenants []models.Actor
	apt     *models.Apartment
	bill    *models.Billing
}

// newPaymentFixture bills 1200 across four tenants, 300 each.
func newPaymentFixture(t *testing.T) *paymentFixture {
	h := newHarness(t)
	f := &paymentFixture{harness: h, owner: h.user(models.RoleOwner)}
	for range 4 {
		f.tenants = append(f.tenants, h.user(models.RoleTenant))
	}
	f.apt = h.apartment(f.owner, f.tenants...)
	bill, err := h.billings.GenerateFromApartment(h.ctx, f.owner, f.apt.ID, models.ProcessBillingRequest{Period: "2026-10"})
	require.NoError(t, err)
	f.bill = bill
	return f
}

func (f *paymentFixture) reload() *models.Billing {
	f.t.Helper()
	b, err := f.billingRepo.GetByID(f.ctx, f.bill.ID)
	require.NoError(f.t, err)
	return b
}

func TestPaymentService_OverpaymentIsCredited(t *testing.T) {
	f := newPaymentFixture(t)
	payer := f.tenants[0]

	res, err := f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(500)})
	require.NoError(t, err)

	assert.Equal(t, "500.00", res.Payment.AmountPaid.StringFixed(2))
	assert.Equal(t, "300.00", res.Payment.AppliedAmount.StringFixed(2))
	assert.Equal(t, "200.00", res.Payment.Overpayment.StringFixed(2))
	assert.Equal(t, models.PaymentTransfer, res.Payment.Method)
	assert.True(t, res.Credited)
	assert.Equal(t, "0.00", res.SubBill.Amount.StringFixed(2))
	assert.Equal(t, models.SubBillPaid, res.SubBill.Status)

	stored := f.reload()
	assert.Equal(t, "900.00", stored.AmountRemaining.StringFixed(2))
	assert.Equal(t, models.BillingPartial, stored.Status)
	assert.True(t, billing.Consistent(stored))
	assert.Equal(t, "200.00", f.balanceOf(payer.UserID))

	assert.Len(t, f.notificationsOf(f.owner.UserID, models.NotificationPaymentReceived), 1)
	assert.Equal(t, 200.0, testutil.ToFloat64(f.metrics.OverpaymentCredited))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Payments.WithLabelValues("transfer")))
}

func TestPaymentService_PartialPayments(t *testing.T) {
	f := newPaymentFixture(t)
	payer := f.tenants[1]

	for range 2 {
		_, err := f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(100)})
		require.NoError(t, err)
	}

	stored := f.reload()
	sub := stored.SubBillFor(payer.UserID)
	require.NotNil(t, sub)
	assert.Equal(t, "100.00", sub.Amount.StringFixed(2))
	assert.Equal(t, "200.00", sub.PaidAmount.StringFixed(2))
	assert.Equal(t, models.SubBillPartial, sub.Status)
	assert.Equal(t, "1000.00", stored.AmountRemaining.StringFixed(2))
	assert.True(t, billing.Consistent(stored))
	assert.Equal(t, "0.00", f.balanceOf(payer.UserID))

	history, err := f.payments.ListByBilling(f.ctx, payer, f.bill.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPaymentService_FullSettlementMarksPaid(t *testing.T) {
	f := newPaymentFixture(t)
	for _, tenant := range f.tenants {
		_, err := f.payments.MakePayment(f.ctx, tenant, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(300)})
		require.NoError(t, err)
	}
	stored := f.reload()
	assert.Equal(t, models.BillingPaid, stored.Status)
	assert.True(t, stored.AmountRemaining.IsZero())
	assert.True(t, billing.Consistent(stored))

	payer := f.tenants[0]
	_, err := f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(50)})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "a settled share takes no further payments")
	assert.Equal(t, "0.00", f.balanceOf(payer.UserID))
	history, err := f.payments.ListByBilling(f.ctx, f.owner, f.bill.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestPaymentService_ResolvesEarliestOpenBillByApartment(t *testing.T) {
	f := newPaymentFixture(t)
	payer := f.tenants[2]
	later, err := f.billings.GenerateFromApartment(f.ctx, f.owner, f.apt.ID, models.ProcessBillingRequest{Period: "2026-11"})
	require.NoError(t, err)

	res, err := f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{ApartmentID: f.apt.ID, Amount: dec(300)})
	require.NoError(t, err)
	assert.Equal(t, f.bill.ID, res.Billing.ID)

	res, err = f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{ApartmentID: f.apt.ID, Amount: dec(50)})
	require.NoError(t, err)
	assert.Equal(t, later.ID, res.Billing.ID)
}

func TestPaymentService_RejectsBadInput(t *testing.T) {
	f := newPaymentFixture(t)
	payer := f.tenants[0]

	_, err := f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(0)})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(-5)})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(10), Method: models.PaymentCredit})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	outsider := f.user(models.RoleTenant)
	_, err = f.payments.MakePayment(f.ctx, outsider, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(10)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: "missing", Amount: dec(10)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, "1200.00", f.reload().AmountRemaining.StringFixed(2))
}

func TestPaymentService_StaleRevisionConflictsAndRollsBack(t *testing.T) {
	f := newPaymentFixture(t)
	payer := f.tenants[0]
	stale := f.reload()

	_, err := f.payments.MakePayment(f.ctx, f.tenants[1], models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(100)})
	require.NoError(t, err)

	in := models.PaymentInput{BillingID: stale.ID, TenantID: payer.UserID, Amount: dec(100), Method: models.PaymentCash}
	err = repository.WithTransaction(f.ctx, f.db, func(tx *sqlx.Tx) error {
		_, err := f.payments.settleTx(f.ctx, tx, stale, in, f.now.Unix())
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored := f.reload()
	assert.Equal(t, "1100.00", stored.AmountRemaining.StringFixed(2))
	assert.Equal(t, "300.00", stored.SubBillFor(payer.UserID).Amount.StringFixed(2))
	payments, err := f.payments.ListByBilling(f.ctx, f.owner, f.bill.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestPaymentService_ReconcileForOwnerOnly(t *testing.T) {
	f := newPaymentFixture(t)
	payer := f.tenants[3]

	_, err := f.payments.ReconcileFor(f.ctx, f.user(models.RoleOwner), f.bill.ID,
		models.ReconcileRequest{TenantID: payer.UserID, Amount: dec(300)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	res, err := f.payments.ReconcileFor(f.ctx, f.owner, f.bill.ID,
		models.ReconcileRequest{TenantID: payer.UserID, Amount: dec(300), Method: models.PaymentCash, Reference: "receipt 7"})
	require.NoError(t, err)
	assert.Equal(t, f.owner.UserID, res.Payment.RecordedBy)
	assert.Equal(t, models.PaymentCash, res.Payment.Method)
	assert.Equal(t, models.SubBillPaid, res.SubBill.Status)

	p, err := f.payments.Get(f.ctx, payer, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "receipt 7", p.Reference)
	_, err = f.payments.Get(f.ctx, f.tenants[0], res.Payment.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestPaymentService_ApplyCredit(t *testing.T) {
	f := newPaymentFixture(t)
	payer := f.tenants[0]
	_, err := f.payments.MakePayment(f.ctx, payer, models.MakePaymentRequest{BillingID: f.bill.ID, Amount: dec(500)})
	require.NoError(t, err)
	require.Equal(t, "200.00", f.balanceOf(payer.UserID))

	next, err := f.billings.GenerateFromApartment(f.ctx, f.owner, f.apt.ID, models.ProcessBillingRequest{Period: "2026-11"})
	require.NoError(t, err)

	res, err := f.payments.ApplyCredit(f.ctx, payer, next.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCredit, res.Payment.Method)
	assert.Equal(t, "200.00", res.Payment.AppliedAmount.StringFixed(2))
	assert.True(t, res.Payment.Overpayment.IsZero())
	assert.False(t, res.Credited)
	assert.Equal(t, "100.00", res.SubBill.Amount.StringFixed(2))
	assert.Equal(t, "0.00", f.balanceOf(payer.UserID))

	_, err = f.payments.ApplyCredit(f.ctx, payer, next.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.payments.ApplyCredit(f.ctx, payer, f.bill.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
