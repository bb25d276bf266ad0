package models

import "github.com/shopspring/decimal"

type Apartment struct {
	ID            string          `json:"id" db:"id"`
	OwnerID       string          `json:"owner_id" db:"owner_id"`
	Title         string          `json:"title" db:"title"`
	Description   string          `json:"description" db:"description"`
	Address       string          `json:"address" db:"address"`
	Location      *GeoPoint       `json:"location,omitempty" db:"location"`
	Rent          decimal.Decimal `json:"rent" db:"rent"`
	Utilities     Utilities       `json:"utilities" db:"utilities"`
	Images        StringList      `json:"images" db:"images"`
	PDFBlueprints StringList      `json:"pdf_blueprints" db:"pdf_blueprints"`
	Videos        StringList      `json:"videos" db:"videos"`
	Status        ApartmentStatus `json:"status" db:"status"`
	CreatedAt     int64           `json:"created_at" db:"created_at"`
	UpdatedAt     int64           `json:"updated_at" db:"updated_at"`
	Revision      int64           `json:"revision" db:"revision"`

	Tenants []string `json:"tenants" db:"-"`
}

func (a *Apartment) HasTenant(userID string) bool {
	for _, t := range a.Tenants {
		if t == userID {
			return true
		}
	}
	return false
}

// MonthlyTotal is rent plus every utility.
func (a *Apartment) MonthlyTotal() decimal.Decimal {
	return a.Rent.Add(a.Utilities.Total())
}

// ApartmentFilter narrows get-all-apartments. Zero values mean no filter.
type ApartmentFilter struct {
	Status   ApartmentStatus
	OwnerID  string
	MaxRent  *decimal.Decimal
	Near     *GeoPoint
	RadiusKm float64
	Page     int
	Limit    int
}
