// Package billing holds the pure arithmetic of bills: totals, even splits,
// payment application and status derivation. It does no I/O.
package billing

import (
	"errors"

	"github.com/shopspring/decimal"

	"rental-service/internal/models"
)

var (
	ErrNoPayers          = errors.New("bill has no payers")
	ErrNegativeTotal     = errors.New("bill total must not be negative")
	ErrNonPositiveAmount = errors.New("payment amount must be positive")
	ErrNoSubBill         = errors.New("payer has no share in this bill")
	ErrSubBillSettled    = errors.New("payer's share is already paid")
)

var hundred = decimal.NewFromInt(100)

// Total is rent plus every utility.
func Total(rent decimal.Decimal, u models.Utilities) decimal.Decimal {
	return rent.Add(u.Total())
}

// Payers lists who a bill is split between. With no tenants the owner pays
// the whole bill.
func Payers(tenants []string, ownerID string) []string {
	seen := make(map[string]struct{}, len(tenants))
	out := make([]string, 0, len(tenants))
	for _, t := range tenants {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 && ownerID != "" {
		out = append(out, ownerID)
	}
	return out
}

// Split divides total evenly to the cent. Leftover cents go one each to the
// first payers, so the shares always sum to the total exactly.
func Split(total decimal.Decimal, payers []string) ([]decimal.Decimal, error) {
	if len(payers) == 0 {
		return nil, ErrNoPayers
	}
	if total.IsNegative() {
		return nil, ErrNegativeTotal
	}

	cents := total.Mul(hundred).Round(0).IntPart()
	n := int64(len(payers))
	base, rem := cents/n, cents%n

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		c := base
		if int64(i) < rem {
			c++
		}
		shares[i] = decimal.New(c, -2)
	}
	return shares, nil
}

// NewBilling computes a bill and its sub-bills from a source snapshot.
func NewBilling(id string, src models.BillingSource, period string, dueDate, now int64) (*models.Billing, error) {
	total := Total(src.Rent, src.Utilities).Round(2)
	payers := Payers(src.Tenants, src.OwnerID)
	shares, err := Split(total, payers)
	if err != nil {
		return nil, err
	}

	b := &models.Billing{
		ID:              id,
		ApartmentID:     src.ApartmentID,
		OwnerID:         src.OwnerID,
		ContractID:      src.ContractID,
		ContractVersion: src.ContractVersion,
		Period:          period,
		DueDate:         dueDate,
		Rent:            src.Rent,
		Utilities:       src.Utilities,
		TotalAmount:     total,
		AmountRemaining: total,
		Status:          models.BillingUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
		SubBills:        make([]models.SubBill, len(payers)),
	}
	for i, p := range payers {
		b.SubBills[i] = models.SubBill{
			BillingID:  id,
			TenantID:   p,
			Share:      shares[i],
			Amount:     shares[i],
			PaidAmount: decimal.Zero,
			Status:     models.SubBillUnpaid,
			UpdatedAt:  now,
		}
	}
	if total.IsZero() {
		b.Status = models.BillingPaid
		for i := range b.SubBills {
			b.SubBills[i].Status = models.SubBillPaid
		}
	}
	return b, nil
}

// Application is the effect of one payment on one sub-bill.
type Application struct {
	Applied     decimal.Decimal
	Overpayment decimal.Decimal
}

// ApplyPayment decrements the sub-bill by amount. Anything above what is owed
// is reported as overpayment and the sub-bill is zeroed.
func ApplyPayment(sub *models.SubBill, amount decimal.Decimal, now int64) (Application, error) {
	if !amount.IsPositive() {
		return Application{}, ErrNonPositiveAmount
	}
	if !sub.Amount.IsPositive() {
		return Application{}, ErrSubBillSettled
	}

	var app Application
	if amount.GreaterThan(sub.Amount) {
		app.Applied = sub.Amount
		app.Overpayment = amount.Sub(sub.Amount)
	} else {
		app.Applied = amount
		app.Overpayment = decimal.Zero
	}

	sub.Amount = sub.Amount.Sub(app.Applied)
	sub.PaidAmount = sub.PaidAmount.Add(app.Applied)
	sub.Status = SubBillStatus(sub)
	sub.UpdatedAt = now
	return app, nil
}

func SubBillStatus(sub *models.SubBill) models.SubBillStatus {
	switch {
	case !sub.Amount.IsPositive():
		return models.SubBillPaid
	case sub.PaidAmount.IsPositive():
		return models.SubBillPartial
	default:
		return models.SubBillUnpaid
	}
}

// DeriveStatus recomputes a bill's status from its balance. Only the sweep
// moves a bill to overdue; a bill it already flagged stays overdue until paid.
func DeriveStatus(b *models.Billing) models.BillingStatus {
	switch {
	case !b.AmountRemaining.IsPositive():
		return models.BillingPaid
	case b.Status == models.BillingOverdue:
		return models.BillingOverdue
	case b.AmountRemaining.LessThan(b.TotalAmount):
		return models.BillingPartial
	default:
		return models.BillingUnpaid
	}
}

// Settle applies amount to tenantID's sub-bill and rebalances the bill.
func Settle(b *models.Billing, tenantID string, amount decimal.Decimal, now int64) (*models.SubBill, Application, error) {
	sub := b.SubBillFor(tenantID)
	if sub == nil {
		return nil, Application{}, ErrNoSubBill
	}
	app, err := ApplyPayment(sub, amount, now)
	if err != nil {
		return nil, Application{}, err
	}
	b.AmountRemaining = b.AmountRemaining.Sub(app.Applied)
	b.Status = DeriveStatus(b)
	b.UpdatedAt = now
	return sub, app, nil
}

// Consistent reports whether the bill's remaining amount equals the sum of
// its sub-bills and the paid status agrees with the balance.
func Consistent(b *models.Billing) bool {
	if !b.AmountRemaining.Equal(b.OutstandingSum()) {
		return false
	}
	return (b.Status == models.BillingPaid) == !b.AmountRemaining.IsPositive()
}
