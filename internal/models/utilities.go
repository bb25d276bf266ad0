package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"

	utils "rental-service/shared/utils"
)

// Utilities is the fixed monthly utility breakdown of a listing or a
// contract version. A field absent from input is zero.
type Utilities struct {
	Electricity decimal.Decimal `json:"electricity"`
	Water       decimal.Decimal `json:"water"`
	Gas         decimal.Decimal `json:"gas"`
	Heating     decimal.Decimal `json:"heating"`
	Internet    decimal.Decimal `json:"internet"`
	Maintenance decimal.Decimal `json:"maintenance"`
	Trash       decimal.Decimal `json:"trash"`
}

type utilityField struct {
	name  string
	value *decimal.Decimal
}

func (u *Utilities) fields() []utilityField {
	return []utilityField{
		{"electricity", &u.Electricity},
		{"water", &u.Water},
		{"gas", &u.Gas},
		{"heating", &u.Heating},
		{"internet", &u.Internet},
		{"maintenance", &u.Maintenance},
		{"trash", &u.Trash},
	}
}

func (u Utilities) Total() decimal.Decimal {
	total := decimal.Zero
	for _, f := range u.fields() {
		total = total.Add(*f.value)
	}
	return total
}

// Breakdown maps each non-zero utility to its amount.
func (u Utilities) Breakdown() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, f := range u.fields() {
		if !f.value.IsZero() {
			out[f.name] = *f.value
		}
	}
	return out
}

// BreakdownLines renders the non-zero utilities as "name amount" in a fixed
// order.
func (u Utilities) BreakdownLines() []string {
	var lines []string
	for _, f := range u.fields() {
		if !f.value.IsZero() {
			lines = append(lines, f.name+" "+f.value.StringFixed(2))
		}
	}
	return lines
}

func (u Utilities) Validate() error {
	for _, f := range u.fields() {
		if f.value.IsNegative() {
			return fmt.Errorf("utility %s must not be negative", f.name)
		}
	}
	return nil
}

func (u Utilities) Equal(o Utilities) bool {
	of := o.fields()
	for i, f := range u.fields() {
		if !f.value.Equal(*of[i].value) {
			return false
		}
	}
	return true
}

func (u Utilities) Value() (driver.Value, error) {
	return utils.JSONValue(u)
}

func (u *Utilities) Scan(value any) error {
	*u = Utilities{}
	return utils.ScanJSON(value, u)
}

// UtilitiesPatch updates only the fields that are present.
type UtilitiesPatch struct {
	Electricity *decimal.Decimal `json:"electricity"`
	Water       *decimal.Decimal `json:"water"`
	Gas         *decimal.Decimal `json:"gas"`
	Heating     *decimal.Decimal `json:"heating"`
	Internet    *decimal.Decimal `json:"internet"`
	Maintenance *decimal.Decimal `json:"maintenance"`
	Trash       *decimal.Decimal `json:"trash"`
}

func (p UtilitiesPatch) Apply(u Utilities) Utilities {
	patch := []*decimal.Decimal{p.Electricity, p.Water, p.Gas, p.Heating, p.Internet, p.Maintenance, p.Trash}
	for i, f := range u.fields() {
		if patch[i] != nil {
			*f.value = *patch[i]
		}
	}
	return u
}

func (p UtilitiesPatch) Empty() bool {
	return p.Electricity == nil && p.Water == nil && p.Gas == nil && p.Heating == nil &&
		p.Internet == nil && p.Maintenance == nil && p.Trash == nil
}
