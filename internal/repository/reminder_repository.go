package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	utils "rental-service/shared/utils"
)

// ReminderRepository keeps one row per bill, tenant and day a reminder went
// out, so repeated sweeps on the same day stay silent.
type ReminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// TryRecord reports true only for the first call with a given key.
func (r *ReminderRepository) TryRecord(ctx context.Context, billingID, tenantID, day string, now int64) (bool, error) {
	query := `
		INSERT INTO reminder_log (billing_id, tenant_id, sent_on, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (billing_id, tenant_id, sent_on) DO NOTHING`
	n, err := utils.ExecAffected(ctx, r.db, query, billingID, tenantID, day, now)
	if err != nil {
		return false, fmt.Errorf("failed to record reminder: %w", err)
	}
	return n == 1, nil
}

// Forget drops a recorded reminder so the next sweep retries it.
func (r *ReminderRepository) Forget(ctx context.Context, billingID, tenantID, day string) error {
	query := `DELETE FROM reminder_log WHERE billing_id = ? AND tenant_id = ? AND sent_on = ?`
	if _, err := utils.ExecAffected(ctx, r.db, query, billingID, tenantID, day); err != nil {
		return fmt.Errorf("failed to forget reminder: %w", err)
	}
	return nil
}
