package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const contractColumns = `id, apartment_id, owner_id, status, current_version, start_date, end_date,
	created_at, updated_at, revision`

const contractVersionColumns = `contract_id, version_number, minor_version, rent, utilities, tenants,
	changelog, appendices, created_at, updated_at`

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// CreateTx inserts the contract row and every version it carries.
func (r *ContractRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, c *models.Contract) error {
	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES (:id, :apartment_id, :owner_id, :status, :current_version, :start_date, :end_date,
			:created_at, :updated_at, :revision)`
	if _, err := namedExec(ctx, tx, query, c); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create contract: %w", err)
	}
	for i := range c.Versions {
		if err := r.insertVersion(ctx, tx, &c.Versions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ContractRepository) insertVersion(ctx context.Context, q sqlx.ExtContext, v *models.ContractVersion) error {
	query := `
		INSERT INTO contract_versions (` + contractVersionColumns + `)
		VALUES (:contract_id, :version_number, :minor_version, :rent, :utilities, :tenants,
			:changelog, :appendices, :created_at, :updated_at)`
	if _, err := namedExec(ctx, q, query, v); err != nil {
		if isUniqueViolation(err) {
			return ErrStaleRevision
		}
		return fmt.Errorf("failed to insert contract version %s: %w", v.Label(), err)
	}
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id string) (*models.Contract, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *ContractRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Contract, error) {
	return r.getByID(ctx, tx, id)
}

func (r *ContractRepository) getByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Contract, error) {
	var c models.Contract
	if err := get(ctx, q, &c, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := r.loadVersions(ctx, q, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepository) loadVersions(ctx context.Context, q sqlx.ExtContext, c *models.Contract) error {
	versions := []models.ContractVersion{}
	query := `SELECT ` + contractVersionColumns + ` FROM contract_versions WHERE contract_id = ? ORDER BY version_number`
	if err := selectAll(ctx, q, &versions, query, c.ID); err != nil {
		return fmt.Errorf("failed to load contract versions: %w", err)
	}
	c.Versions = versions
	return nil
}

// GetActiveByApartmentTx returns the apartment's active contract, if any.
func (r *ContractRepository) GetActiveByApartmentTx(ctx context.Context, tx *sqlx.Tx, apartmentID string) (*models.Contract, error) {
	return r.getActiveByApartment(ctx, tx, apartmentID)
}

func (r *ContractRepository) GetActiveByApartment(ctx context.Context, apartmentID string) (*models.Contract, error) {
	return r.getActiveByApartment(ctx, r.db, apartmentID)
}

func (r *ContractRepository) getActiveByApartment(ctx context.Context, q sqlx.ExtContext, apartmentID string) (*models.Contract, error) {
	var c models.Contract
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE apartment_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1`
	if err := get(ctx, q, &c, query, apartmentID, models.ContractActive); err != nil {
		return nil, err
	}
	if err := r.loadVersions(ctx, q, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepository) ListByApartment(ctx context.Context, apartmentID string) ([]models.Contract, error) {
	contracts := []models.Contract{}
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE apartment_id = ? ORDER BY created_at DESC, id`
	if err := selectAll(ctx, r.db, &contracts, query, apartmentID); err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	for i := range contracts {
		if err := r.loadVersions(ctx, r.db, &contracts[i]); err != nil {
			return nil, err
		}
	}
	return contracts, nil
}

// SaveTx persists a contract whose in-memory state was loaded at revision
// c.Revision. The version carrying the change is inserted when it is new and
// rewritten in place when an appendix amended it.
func (r *ContractRepository) SaveTx(ctx context.Context, tx *sqlx.Tx, c *models.Contract, changed *models.ContractVersion, isNew bool) error {
	query := `
		UPDATE contracts SET status = ?, current_version = ?, end_date = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecUpdate,
		c.Status, c.CurrentVersion, c.EndDate, c.UpdatedAt, c.ID, c.Revision)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}

	if changed != nil {
		if isNew {
			if err := r.insertVersion(ctx, tx, changed); err != nil {
				return err
			}
		} else if err := r.updateVersion(ctx, tx, changed); err != nil {
			return err
		}
	}
	c.Revision++
	return nil
}

func (r *ContractRepository) updateVersion(ctx context.Context, q sqlx.ExtContext, v *models.ContractVersion) error {
	query := `
		UPDATE contract_versions SET
			minor_version = ?, rent = ?, utilities = ?, tenants = ?, changelog = ?, appendices = ?, updated_at = ?
		WHERE contract_id = ? AND version_number = ?`
	err := utils.ExecWithCheck(ctx, q, query, utils.ExecUpdate,
		v.MinorVersion, v.Rent, v.Utilities, v.Tenants, v.Changelog, v.Appendices, v.UpdatedAt,
		v.ContractID, v.VersionNumber)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update contract version %s: %w", v.Label(), err)
	}
	return nil
}
