package models

import "github.com/shopspring/decimal"

// Payment is immutable once written.
type Payment struct {
	ID            string          `json:"id" db:"id"`
	BillingID     string          `json:"billing_id" db:"billing_id"`
	TenantID      string          `json:"tenant_id" db:"tenant_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	AppliedAmount decimal.Decimal `json:"applied_amount" db:"applied_amount"`
	Overpayment   decimal.Decimal `json:"overpayment" db:"overpayment"`
	Method        PaymentMethod   `json:"method" db:"method"`
	Reference     string          `json:"reference" db:"reference"`
	RecordedBy    string          `json:"recorded_by" db:"recorded_by"`
	CreatedAt     int64           `json:"created_at" db:"created_at"`
}

// ReconcileResult is what a payment did to the bill.
type ReconcileResult struct {
	Payment  *Payment `json:"payment"`
	Billing  *Billing `json:"billing"`
	SubBill  *SubBill `json:"sub_bill"`
	Credited bool     `json:"credited"`
}
