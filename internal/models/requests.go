package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	FullName   string   `json:"full_name"`
	Phone      string   `json:"phone"`
	NationalID string   `json:"national_id"`
	Role       UserRole `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User        *User        `json:"user"`
	Session     *UserSession `json:"session"`
	AccessToken string       `json:"access_token"`
}

type UpdateUserRequest struct {
	FullName   *string     `json:"full_name"`
	Phone      *string     `json:"phone"`
	NationalID *string     `json:"national_id"`
	Password   *string     `json:"password"`
	Role       *UserRole   `json:"role"`
	Status     *UserStatus `json:"status"`
}

type CreateApartmentRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Address     string          `json:"address"`
	Rent        decimal.Decimal `json:"rent"`
	Utilities   Utilities       `json:"utilities"`
	Location    *GeoPoint       `json:"location"`
	OwnerID     string          `json:"owner_id"`
}

type UpdateApartmentRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Address     *string          `json:"address"`
	Rent        *decimal.Decimal `json:"rent"`
	Location    *GeoPoint        `json:"location"`
	Status      *ApartmentStatus `json:"status"`
	Revision    *int64           `json:"revision"`
}

type AddTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

type TransferTenancyRequest struct {
	TenantID        string `json:"tenant_id"`
	FromApartmentID string `json:"from_apartment_id"`
	ToApartmentID   string `json:"to_apartment_id"`
}

type ProcessBillingRequest struct {
	Period  string `json:"period"`
	DueDate string `json:"due_date"`
}

type MakePaymentRequest struct {
	BillingID   string          `json:"billing_id"`
	ApartmentID string          `json:"apartment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	Reference   string          `json:"reference"`
}

type ReconcileRequest struct {
	TenantID  string          `json:"tenant_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Reference string          `json:"reference"`
}

// PaymentInput is the resolved form of a payment, whoever submitted it.
type PaymentInput struct {
	BillingID   string
	ApartmentID string
	TenantID    string
	Amount      decimal.Decimal
	Method      PaymentMethod
	Reference   string
	RecordedBy  string
}

type NewContractRequest struct {
	ApartmentID string          `json:"apartment_id"`
	Rent        decimal.Decimal `json:"rent"`
	Utilities   Utilities       `json:"utilities"`
	Tenants     []string        `json:"tenants"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
}

type ContractUpdateRequest struct {
	Summary   string          `json:"summary"`
	Rent      decimal.Decimal `json:"rent"`
	Utilities Utilities       `json:"utilities"`
	Tenants   []string        `json:"tenants"`
	Revision  *int64          `json:"revision"`
}

type AppendixRequest struct {
	Amendment
	Revision *int64 `json:"revision"`
}

type CreateBidRequest struct {
	ApartmentID string          `json:"apartment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Message     string          `json:"message"`
}

type SendNotificationRequest struct {
	UserIDs []string       `json:"user_ids"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data"`
}

// ParseDate accepts "2006-01-02" or RFC3339 and returns UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), nil
}

// ParsePeriod validates a billing period in YYYY-MM form.
func ParsePeriod(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("period %q must be YYYY-MM", s)
	}
	return t, nil
}
