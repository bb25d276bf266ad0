package models

import "github.com/shopspring/decimal"

type Bid struct {
	ID          string          `json:"id" db:"id"`
	ApartmentID string          `json:"apartment_id" db:"apartment_id"`
	BidderID    string          `json:"bidder_id" db:"bidder_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Message     string          `json:"message" db:"message"`
	Status      BidStatus       `json:"status" db:"status"`
	DecidedBy   *string         `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt   *int64          `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt   int64           `json:"created_at" db:"created_at"`
	UpdatedAt   int64           `json:"updated_at" db:"updated_at"`
}
