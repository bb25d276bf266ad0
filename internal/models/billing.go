package models

import "github.com/shopspring/decimal"

type Billing struct {
	ID              string          `json:"id" db:"id"`
	ApartmentID     string          `json:"apartment_id" db:"apartment_id"`
	OwnerID         string          `json:"owner_id" db:"owner_id"`
	ContractID      *string         `json:"contract_id,omitempty" db:"contract_id"`
	ContractVersion *string         `json:"contract_version,omitempty" db:"contract_version"`
	Period          string          `json:"period" db:"period"`
	DueDate         int64           `json:"due_date" db:"due_date"`
	Rent            decimal.Decimal `json:"rent" db:"rent"`
	Utilities       Utilities       `json:"utilities" db:"utilities"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	AmountRemaining decimal.Decimal `json:"amount_remaining" db:"amount_remaining"`
	Status          BillingStatus   `json:"status" db:"status"`
	CreatedAt       int64           `json:"created_at" db:"created_at"`
	UpdatedAt       int64           `json:"updated_at" db:"updated_at"`
	Revision        int64           `json:"revision" db:"revision"`

	SubBills []SubBill `json:"sub_bills" db:"-"`
}

type SubBill struct {
	BillingID  string          `json:"billing_id" db:"billing_id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	Share      decimal.Decimal `json:"share" db:"share"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	Status     SubBillStatus   `json:"status" db:"status"`
	UpdatedAt  int64           `json:"updated_at" db:"updated_at"`
	Revision   int64           `json:"revision" db:"revision"`
}

func (b *Billing) SubBillFor(tenantID string) *SubBill {
	for i := range b.SubBills {
		if b.SubBills[i].TenantID == tenantID {
			return &b.SubBills[i]
		}
	}
	return nil
}

// OutstandingSum adds up what every payer still owes.
func (b *Billing) OutstandingSum() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range b.SubBills {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// BillingSource is the snapshot a bill is computed from.
type BillingSource struct {
	ApartmentID     string
	OwnerID         string
	ContractID      *string
	ContractVersion *string
	Rent            decimal.Decimal
	Utilities       Utilities
	Tenants         []string
}
