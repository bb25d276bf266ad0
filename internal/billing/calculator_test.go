package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-service/internal/models"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestNewBilling_SplitsEvenly(t *testing.T) {
	src := models.BillingSource{
		ApartmentID: "a1",
		OwnerID:     "o1",
		Rent:        d("1000"),
		Utilities:   models.Utilities{Electricity: d("120"), Water: d("80")},
		Tenants:     []string{"t1", "t2", "t3", "t4"},
	}

	b, err := NewBilling("b1", src, "2026-10", 1790000000, 1780000000)
	require.NoError(t, err)

	assert.True(t, b.TotalAmount.Equal(d("1200")))
	assert.True(t, b.AmountRemaining.Equal(d("1200")))
	assert.Equal(t, models.BillingUnpaid, b.Status)
	require.Len(t, b.SubBills, 4)
	for _, s := range b.SubBills {
		assert.True(t, s.Amount.Equal(d("300")), "share %s", s.Amount)
		assert.Equal(t, models.SubBillUnpaid, s.Status)
	}
	assert.True(t, Consistent(b))
}

func TestSplit_DistributesLeftoverCents(t *testing.T) {
	shares, err := Split(d("100"), []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, "33.34", shares[0].StringFixed(2))
	assert.Equal(t, "33.33", shares[1].StringFixed(2))
	assert.Equal(t, "33.33", shares[2].StringFixed(2))

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	assert.True(t, sum.Equal(d("100")))
}

func TestSplit_Errors(t *testing.T) {
	_, err := Split(d("10"), nil)
	assert.ErrorIs(t, err, ErrNoPayers)

	_, err = Split(d("-1"), []string{"a"})
	assert.ErrorIs(t, err, ErrNegativeTotal)
}

func TestPayers_OwnerPaysWhenNoTenants(t *testing.T) {
	assert.Equal(t, []string{"o1"}, Payers(nil, "o1"))
	assert.Equal(t, []string{"t1", "t2"}, Payers([]string{"t1", "t2", "t1", ""}, "o1"))
}

func TestNewBilling_ZeroTotalIsPaid(t *testing.T) {
	b, err := NewBilling("b1", models.BillingSource{OwnerID: "o1", Tenants: []string{"t1"}}, "2026-10", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.BillingPaid, b.Status)
	assert.True(t, Consistent(b))
}

// ============================================================================
// PAYMENT APPLICATION
// ============================================================================

func TestApplyPayment_Overpayment(t *testing.T) {
	sub := &models.SubBill{Share: d("300"), Amount: d("300")}

	app, err := ApplyPayment(sub, d("500"), 1)
	require.NoError(t, err)

	assert.True(t, app.Applied.Equal(d("300")))
	assert.True(t, app.Overpayment.Equal(d("200")))
	assert.True(t, sub.Amount.IsZero())
	assert.Equal(t, models.SubBillPaid, sub.Status)
}

func TestApplyPayment_PartialTwice(t *testing.T) {
	sub := &models.SubBill{Share: d("300"), Amount: d("300")}

	_, err := ApplyPayment(sub, d("100"), 1)
	require.NoError(t, err)
	_, err = ApplyPayment(sub, d("100"), 2)
	require.NoError(t, err)

	assert.True(t, sub.Amount.Equal(d("100")))
	assert.True(t, sub.PaidAmount.Equal(d("200")))
	assert.Equal(t, models.SubBillPartial, sub.Status)
}

func TestApplyPayment_RejectsNonPositive(t *testing.T) {
	sub := &models.SubBill{Amount: d("300")}
	_, err := ApplyPayment(sub, d("0"), 1)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	assert.True(t, sub.Amount.Equal(d("300")))
}

func TestSettle_RebalancesBilling(t *testing.T) {
	b, err := NewBilling("b1", models.BillingSource{
		OwnerID: "o1", Rent: d("600"), Tenants: []string{"t1", "t2"},
	}, "2026-10", 2000, 1000)
	require.NoError(t, err)

	_, app, err := Settle(b, "t1", d("500"), 1500)
	require.NoError(t, err)
	assert.True(t, app.Overpayment.Equal(d("200")))
	assert.True(t, b.AmountRemaining.Equal(d("300")))
	assert.Equal(t, models.BillingPartial, b.Status)
	assert.True(t, Consistent(b))

	_, _, err = Settle(b, "t2", d("300"), 1600)
	require.NoError(t, err)
	assert.Equal(t, models.BillingPaid, b.Status)
	assert.True(t, Consistent(b))

	_, _, err = Settle(b, "stranger", d("1"), 1700)
	assert.ErrorIs(t, err, ErrNoSubBill)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		total     string
		stored    models.BillingStatus
		want      models.BillingStatus
	}{
		{"untouched", "300", "300", models.BillingUnpaid, models.BillingUnpaid},
		{"partly paid", "100", "300", models.BillingUnpaid, models.BillingPartial},
		{"fully paid after overdue", "0", "300", models.BillingOverdue, models.BillingPaid},
		{"flagged overdue", "100", "300", models.BillingOverdue, models.BillingOverdue},
		{"past due but not swept", "100", "300", models.BillingPartial, models.BillingPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &models.Billing{AmountRemaining: d(tt.remaining), TotalAmount: d(tt.total), DueDate: 100, Status: tt.stored}
			assert.Equal(t, tt.want, DeriveStatus(b))
		})
	}
}

func TestSettle_LatePaymentLeavesOverdueToSweep(t *testing.T) {
	b, err := NewBilling("b1", models.BillingSource{
		OwnerID: "o1", Rent: d("600"), Tenants: []string{"t1", "t2"},
	}, "2026-10", 2000, 1000)
	require.NoError(t, err)

	_, _, err = Settle(b, "t1", d("100"), 5000)
	require.NoError(t, err)
	assert.Equal(t, models.BillingPartial, b.Status)
}

func TestApplyPayment_RejectsSettledShare(t *testing.T) {
	sub := &models.SubBill{Amount: d("0"), PaidAmount: d("300"), Status: models.SubBillPaid}
	_, err := ApplyPayment(sub, d("50"), 1)
	assert.ErrorIs(t, err, ErrSubBillSettled)
	assert.True(t, sub.PaidAmount.Equal(d("300")))
}
