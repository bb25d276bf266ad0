package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const billingColumns = `id, apartment_id, owner_id, contract_id, contract_version, period, due_date, rent,
	utilities, total_amount, amount_remaining, status, created_at, updated_at, revision`

const subBillColumns = `billing_id, tenant_id, share, amount, paid_amount, status, updated_at, revision`

type BillingRepository struct {
	db *sqlx.DB
}

func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// CreateTx inserts a bill with its sub-bills. A second bill for the same
// apartment and period reports ErrDuplicate.
func (r *BillingRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, b *models.Billing) error {
	query := `
		INSERT INTO billings (` + billingColumns + `)
		VALUES (:id, :apartment_id, :owner_id, :contract_id, :contract_version, :period, :due_date, :rent,
			:utilities, :total_amount, :amount_remaining, :status, :created_at, :updated_at, :revision)`
	if _, err := namedExec(ctx, tx, query, b); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create billing: %w", err)
	}

	subQuery := `
		INSERT INTO sub_bills (` + subBillColumns + `)
		VALUES (:billing_id, :tenant_id, :share, :amount, :paid_amount, :status, :updated_at, :revision)`
	for i := range b.SubBills {
		if _, err := namedExec(ctx, tx, subQuery, &b.SubBills[i]); err != nil {
			return fmt.Errorf("failed to create sub-bill for %s: %w", b.SubBills[i].TenantID, err)
		}
	}
	return nil
}

func (r *BillingRepository) GetByID(ctx context.Context, id string) (*models.Billing, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *BillingRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Billing, error) {
	return r.getByID(ctx, tx, id)
}

func (r *BillingRepository) getByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Billing, error) {
	var b models.Billing
	if err := get(ctx, q, &b, `SELECT `+billingColumns+` FROM billings WHERE id = ?`, id); err != nil {
		return nil, err
	}
	subs := []models.SubBill{}
	query := `SELECT ` + subBillColumns + ` FROM sub_bills WHERE billing_id = ? ORDER BY share DESC, tenant_id`
	if err := selectAll(ctx, q, &subs, query, id); err != nil {
		return nil, fmt.Errorf("failed to load sub-bills: %w", err)
	}
	b.SubBills = subs
	return &b, nil
}

func (r *BillingRepository) ListByApartment(ctx context.Context, apartmentID string) ([]models.Billing, error) {
	bills := []models.Billing{}
	query := `SELECT ` + billingColumns + ` FROM billings WHERE apartment_id = ? ORDER BY period DESC`
	if err := selectAll(ctx, r.db, &bills, query, apartmentID); err != nil {
		return nil, fmt.Errorf("failed to list billings: %w", err)
	}
	return bills, r.attachSubBills(ctx, bills)
}

// ListByTenant returns bills holding a sub-bill for tenantID, newest first.
func (r *BillingRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Billing, error) {
	bills := []models.Billing{}
	query := `
		SELECT ` + prefixColumns("b", billingColumns) + `
		FROM billings b JOIN sub_bills s ON s.billing_id = b.id
		WHERE s.tenant_id = ?
		ORDER BY b.due_date DESC, b.id`
	if err := selectAll(ctx, r.db, &bills, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list tenant billings: %w", err)
	}
	return bills, r.attachSubBills(ctx, bills)
}

func (r *BillingRepository) attachSubBills(ctx context.Context, bills []models.Billing) error {
	if len(bills) == 0 {
		return nil
	}
	ids := make([]string, len(bills))
	for i := range bills {
		ids[i] = bills[i].ID
	}
	var subs []models.SubBill
	query := `SELECT ` + subBillColumns + ` FROM sub_bills WHERE billing_id IN (?) ORDER BY share DESC, tenant_id`
	if err := selectIn(ctx, r.db, &subs, query, ids); err != nil {
		return fmt.Errorf("failed to load sub-bills: %w", err)
	}
	byBill := make(map[string][]models.SubBill, len(bills))
	for _, s := range subs {
		byBill[s.BillingID] = append(byBill[s.BillingID], s)
	}
	for i := range bills {
		bills[i].SubBills = byBill[bills[i].ID]
		if bills[i].SubBills == nil {
			bills[i].SubBills = []models.SubBill{}
		}
	}
	return nil
}

// EarliestOpenForTenantTx finds the oldest unsettled bill of the apartment in
// which tenantID still owes something.
func (r *BillingRepository) EarliestOpenForTenantTx(ctx context.Context, tx *sqlx.Tx, apartmentID, tenantID string) (*models.Billing, error) {
	var id string
	query := `
		SELECT b.id FROM billings b JOIN sub_bills s ON s.billing_id = b.id
		WHERE b.apartment_id = ? AND s.tenant_id = ? AND b.status <> ? AND s.amount > 0
		ORDER BY b.due_date, b.period
		LIMIT 1`
	if err := get(ctx, tx, &id, query, apartmentID, tenantID, models.BillingPaid); err != nil {
		return nil, err
	}
	return r.getByID(ctx, tx, id)
}

// UpdateBalanceTx writes the bill's remaining amount and status, guarded by
// the revision the caller read.
func (r *BillingRepository) UpdateBalanceTx(ctx context.Context, tx *sqlx.Tx, b *models.Billing) error {
	query := `
		UPDATE billings SET amount_remaining = ?, status = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecUpdate,
		b.AmountRemaining, b.Status, b.UpdatedAt, b.ID, b.Revision)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("failed to update billing: %w", err)
	}
	b.Revision++
	return nil
}

func (r *BillingRepository) UpdateSubBillTx(ctx context.Context, tx *sqlx.Tx, s *models.SubBill) error {
	query := `
		UPDATE sub_bills SET amount = ?, paid_amount = ?, status = ?, updated_at = ?, revision = revision + 1
		WHERE billing_id = ? AND tenant_id = ? AND revision = ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecUpdate,
		s.Amount, s.PaidAmount, s.Status, s.UpdatedAt, s.BillingID, s.TenantID, s.Revision)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("failed to update sub-bill: %w", err)
	}
	s.Revision++
	return nil
}

// ListPastDue returns bills still owing whose due date is before now,
// including the ones an earlier sweep already flagged overdue.
func (r *BillingRepository) ListPastDue(ctx context.Context, now int64) ([]models.Billing, error) {
	bills := []models.Billing{}
	query := `
		SELECT ` + billingColumns + ` FROM billings
		WHERE status IN (?, ?, ?) AND due_date < ? AND amount_remaining > 0
		ORDER BY due_date, id`
	err := selectAll(ctx, r.db, &bills, query,
		models.BillingUnpaid, models.BillingPartial, models.BillingOverdue, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list past-due billings: %w", err)
	}
	return bills, r.attachSubBills(ctx, bills)
}

// MarkOverdue flips an unpaid or partial bill to overdue. It reports false
// when the bill moved on since it was read.
func (r *BillingRepository) MarkOverdue(ctx context.Context, b *models.Billing, now int64) (bool, error) {
	query := `
		UPDATE billings SET status = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ? AND status IN (?, ?)`
	n, err := utils.ExecAffected(ctx, r.db, query,
		models.BillingOverdue, now, b.ID, b.Revision, models.BillingUnpaid, models.BillingPartial)
	if err != nil {
		return false, fmt.Errorf("failed to mark billing overdue: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	b.Status = models.BillingOverdue
	b.UpdatedAt = now
	b.Revision++
	return true, nil
}
