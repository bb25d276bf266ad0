package models

import (
	"database/sql/driver"

	utils "rental-service/shared/utils"
)

// StringList is a list of ids kept in a JSONB column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return utils.JSONValue([]string{})
	}
	return utils.JSONValue([]string(s))
}

func (s *StringList) Scan(value any) error {
	*s = StringList{}
	return utils.ScanJSON(value, (*[]string)(s))
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanManage reports whether the actor owns the resource or is an admin.
func (a Actor) CanManage(ownerID string) bool {
	return a.IsAdmin() || a.UserID == ownerID
}
