package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const userColumns = `id, email, password_hash, full_name, role, status, phone_encrypted, national_id_encrypted,
	balance, login_attempts, locked_until, last_login_at, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (
			:id, :email, :password_hash, :full_name, :role, :status, :phone_encrypted, :national_id_encrypted,
			:balance, :login_attempts, :locked_until, :last_login_at, :created_at, :updated_at
		)`
	if _, err := namedExec(ctx, r.db, query, user); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *UserRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.User, error) {
	return r.getByID(ctx, tx, id)
}

func (r *UserRepository) getByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.User, error) {
	var user models.User
	if err := get(ctx, q, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := get(ctx, r.db, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := selectIn(ctx, r.db, &users, `SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// List returns one page of users, optionally of a single role, and the
// total number matching.
func (r *UserRepository) List(ctx context.Context, role models.UserRole, limit, offset int) ([]models.User, int, error) {
	where, args := "", []any{}
	if role != "" {
		where, args = " WHERE role = ?", append(args, role)
	}

	var total int
	if err := get(ctx, r.db, &total, `SELECT COUNT(*) FROM users`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	if err := selectAll(ctx, r.db, &users, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			full_name = ?, role = ?, status = ?, phone_encrypted = ?, national_id_encrypted = ?,
			password_hash = ?, updated_at = ?
		WHERE id = ?`
	err := utils.ExecWithCheck(ctx, r.db, query, utils.ExecUpdate,
		user.FullName, user.Role, user.Status, user.PhoneEncrypted, user.NationalIDEncrypted,
		user.PasswordHash, user.UpdatedAt, user.ID)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, attempts int, lockedUntil, now int64) error {
	query := `UPDATE users SET login_attempts = ?, locked_until = ?, updated_at = ? WHERE id = ?`
	if err := utils.ExecWithCheck(ctx, r.db, query, utils.ExecUpdate, attempts, lockedUntil, now, id); err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}
	return nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string, now int64) error {
	query := `UPDATE users SET login_attempts = 0, locked_until = 0, last_login_at = ?, updated_at = ? WHERE id = ?`
	if err := utils.ExecWithCheck(ctx, r.db, query, utils.ExecUpdate, now, now, id); err != nil {
		return fmt.Errorf("failed to record login success: %w", err)
	}
	return nil
}

// CreditBalanceTx adds amount to the user's account balance.
func (r *UserRepository) CreditBalanceTx(ctx context.Context, tx *sqlx.Tx, id string, amount decimal.Decimal, now int64) error {
	query := `UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecUpdate, amount, now, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

// DebitBalanceTx subtracts amount only when the balance covers it. A short
// balance reports ErrStaleRevision.
func (r *UserRepository) DebitBalanceTx(ctx context.Context, tx *sqlx.Tx, id string, amount decimal.Decimal, now int64) error {
	query := `UPDATE users SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecUpdate, amount, now, id, amount)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	return nil
}
