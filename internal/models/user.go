package models

import (
	"github.com/shopspring/decimal"
)

type User struct {
	ID                  string          `json:"id" db:"id"`
	Email               string          `json:"email" db:"email"`
	PasswordHash        string          `json:"-" db:"password_hash"`
	FullName            string          `json:"full_name" db:"full_name"`
	Role                UserRole        `json:"role" db:"role"`
	Status              UserStatus      `json:"status" db:"status"`
	PhoneEncrypted      string          `json:"-" db:"phone_encrypted"`
	NationalIDEncrypted string          `json:"-" db:"national_id_encrypted"`
	Balance             decimal.Decimal `json:"balance" db:"balance"`
	LoginAttempts       int             `json:"-" db:"login_attempts"`
	LockedUntil         int64           `json:"-" db:"locked_until"`
	LastLoginAt         *int64          `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt           int64           `json:"created_at" db:"created_at"`
	UpdatedAt           int64           `json:"updated_at" db:"updated_at"`

	// decrypted on read, never persisted in clear
	Phone      string `json:"phone,omitempty" db:"-"`
	NationalID string `json:"national_id,omitempty" db:"-"`
}

func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}
