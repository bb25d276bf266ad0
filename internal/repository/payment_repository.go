package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/models"
)

const paymentColumns = `id, billing_id, tenant_id, amount_paid, applied_amount, overpayment, method,
	reference, recorded_by, created_at`

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :billing_id, :tenant_id, :amount_paid, :applied_amount, :overpayment, :method,
			:reference, :recorded_by, :created_at)`
	if _, err := namedExec(ctx, tx, query, p); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := get(ctx, r.db, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByBilling(ctx context.Context, billingID string) ([]models.Payment, error) {
	payments := []models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE billing_id = ? ORDER BY created_at, id`
	if err := selectAll(ctx, r.db, &payments, query, billingID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Payment, error) {
	payments := []models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = ? ORDER BY created_at DESC, id`
	if err := selectAll(ctx, r.db, &payments, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
