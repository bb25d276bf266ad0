package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const bidColumns = `id, apartment_id, bidder_id, amount, message, status, decided_by, decided_at,
	created_at, updated_at`

type BidRepository struct {
	db *sqlx.DB
}

func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES (:id, :apartment_id, :bidder_id, :amount, :message, :status, :decided_by, :decided_at,
			:created_at, :updated_at)`
	if _, err := namedExec(ctx, r.db, query, bid); err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

func (r *BidRepository) GetByID(ctx context.Context, id string) (*models.Bid, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *BidRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Bid, error) {
	return r.getByID(ctx, tx, id)
}

func (r *BidRepository) getByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Bid, error) {
	var bid models.Bid
	if err := get(ctx, q, &bid, `SELECT `+bidColumns+` FROM bids WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepository) ListByApartment(ctx context.Context, apartmentID string) ([]models.Bid, error) {
	bids := []models.Bid{}
	query := `SELECT ` + bidColumns + ` FROM bids WHERE apartment_id = ? ORDER BY created_at DESC, id`
	if err := selectAll(ctx, r.db, &bids, query, apartmentID); err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

func (r *BidRepository) ListByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	bids := []models.Bid{}
	query := `SELECT ` + bidColumns + ` FROM bids WHERE bidder_id = ? ORDER BY created_at DESC, id`
	if err := selectAll(ctx, r.db, &bids, query, bidderID); err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

// HasPending reports whether bidderID already has an open bid on the apartment.
func (r *BidRepository) HasPending(ctx context.Context, apartmentID, bidderID string) (bool, error) {
	var n int
	query := `SELECT COUNT(*) FROM bids WHERE apartment_id = ? AND bidder_id = ? AND status = ?`
	if err := get(ctx, r.db, &n, query, apartmentID, bidderID, models.BidPending); err != nil {
		return false, fmt.Errorf("failed to check pending bids: %w", err)
	}
	return n > 0, nil
}

// DecideTx moves a bid out of from. A bid no longer in that state reports
// ErrStaleRevision.
func (r *BidRepository) DecideTx(ctx context.Context, tx *sqlx.Tx, bid *models.Bid, from models.BidStatus) error {
	query := `
		UPDATE bids SET status = ?, decided_by = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecUpdate,
		bid.Status, bid.DecidedBy, bid.DecidedAt, bid.UpdatedAt, bid.ID, from)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}
	return nil
}

// PendingOthersTx lists the other open bids on the apartment.
func (r *BidRepository) PendingOthersTx(ctx context.Context, tx *sqlx.Tx, apartmentID, exceptID string) ([]models.Bid, error) {
	bids := []models.Bid{}
	query := `SELECT ` + bidColumns + ` FROM bids WHERE apartment_id = ? AND status = ? AND id <> ? ORDER BY created_at`
	if err := selectAll(ctx, tx, &bids, query, apartmentID, models.BidPending, exceptID); err != nil {
		return nil, fmt.Errorf("failed to list pending bids: %w", err)
	}
	return bids, nil
}

// RejectOthersTx rejects every other open bid on the apartment.
func (r *BidRepository) RejectOthersTx(ctx context.Context, tx *sqlx.Tx, apartmentID, exceptID, decidedBy string, now int64) (int64, error) {
	query := `
		UPDATE bids SET status = ?, decided_by = ?, decided_at = ?, updated_at = ?
		WHERE apartment_id = ? AND status = ? AND id <> ?`
	n, err := utils.ExecAffected(ctx, tx, query,
		models.BidRejected, decidedBy, now, now, apartmentID, models.BidPending, exceptID)
	if err != nil {
		return 0, fmt.Errorf("failed to reject other bids: %w", err)
	}
	return n, nil
}
