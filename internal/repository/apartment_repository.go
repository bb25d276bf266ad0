package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const apartmentColumns = `id, owner_id, title, description, address, location, rent, utilities,
	images, pdf_blueprints, videos, status, created_at, updated_at, revision`

type ApartmentRepository struct {
	db *sqlx.DB
}

func NewApartmentRepository(db *sqlx.DB) *ApartmentRepository {
	return &ApartmentRepository{db: db}
}

func (r *ApartmentRepository) Create(ctx context.Context, apt *models.Apartment) error {
	query := `
		INSERT INTO apartments (` + apartmentColumns + `)
		VALUES (
			:id, :owner_id, :title, :description, :address, :location, :rent, :utilities,
			:images, :pdf_blueprints, :videos, :status, :created_at, :updated_at, :revision
		)`
	if _, err := namedExec(ctx, r.db, query, apt); err != nil {
		return fmt.Errorf("failed to create apartment: %w", err)
	}
	return nil
}

func (r *ApartmentRepository) GetByID(ctx context.Context, id string) (*models.Apartment, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *ApartmentRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Apartment, error) {
	return r.getByID(ctx, tx, id)
}

func (r *ApartmentRepository) getByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Apartment, error) {
	var apt models.Apartment
	if err := get(ctx, q, &apt, `SELECT `+apartmentColumns+` FROM apartments WHERE id = ?`, id); err != nil {
		return nil, err
	}
	tenants, err := r.tenantsOf(ctx, q, id)
	if err != nil {
		return nil, err
	}
	apt.Tenants = tenants
	return &apt, nil
}

// List applies the SQL-expressible parts of filter. Distance filtering is
// left to the caller because locations are stored as plain WKT.
func (r *ApartmentRepository) List(ctx context.Context, filter models.ApartmentFilter) ([]models.Apartment, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		conds, args = append(conds, "status = ?"), append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		conds, args = append(conds, "owner_id = ?"), append(args, filter.OwnerID)
	}
	if filter.MaxRent != nil {
		conds, args = append(conds, "rent <= ?"), append(args, *filter.MaxRent)
	}
	if filter.Near != nil {
		conds = append(conds, "location IS NOT NULL")
	}

	query := `SELECT ` + apartmentColumns + ` FROM apartments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	apts := []models.Apartment{}
	if err := selectAll(ctx, r.db, &apts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list apartments: %w", err)
	}
	if err := r.attachTenants(ctx, apts); err != nil {
		return nil, err
	}
	return apts, nil
}

func (r *ApartmentRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Apartment, error) {
	query := `
		SELECT ` + prefixColumns("a", apartmentColumns) + `
		FROM apartments a JOIN apartment_tenants t ON t.apartment_id = a.id
		WHERE t.tenant_id = ?
		ORDER BY t.joined_at`
	apts := []models.Apartment{}
	if err := selectAll(ctx, r.db, &apts, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list tenant apartments: %w", err)
	}
	if err := r.attachTenants(ctx, apts); err != nil {
		return nil, err
	}
	return apts, nil
}

func (r *ApartmentRepository) attachTenants(ctx context.Context, apts []models.Apartment) error {
	if len(apts) == 0 {
		return nil
	}
	ids := make([]string, len(apts))
	for i := range apts {
		ids[i] = apts[i].ID
	}

	var rows []struct {
		ApartmentID string `db:"apartment_id"`
		TenantID    string `db:"tenant_id"`
	}
	query := `SELECT apartment_id, tenant_id FROM apartment_tenants WHERE apartment_id IN (?) ORDER BY joined_at, tenant_id`
	if err := selectIn(ctx, r.db, &rows, query, ids); err != nil {
		return fmt.Errorf("failed to load tenants: %w", err)
	}

	byApt := make(map[string][]string, len(apts))
	for _, row := range rows {
		byApt[row.ApartmentID] = append(byApt[row.ApartmentID], row.TenantID)
	}
	for i := range apts {
		apts[i].Tenants = byApt[apts[i].ID]
		if apts[i].Tenants == nil {
			apts[i].Tenants = []string{}
		}
	}
	return nil
}

func (r *ApartmentRepository) tenantsOf(ctx context.Context, q sqlx.ExtContext, apartmentID string) ([]string, error) {
	tenants := []string{}
	query := `SELECT tenant_id FROM apartment_tenants WHERE apartment_id = ? ORDER BY joined_at, tenant_id`
	if err := selectAll(ctx, q, &tenants, query, apartmentID); err != nil {
		return nil, fmt.Errorf("failed to load tenants: %w", err)
	}
	return tenants, nil
}

// UpdateTx writes every mutable column when the stored revision still equals
// apt.Revision, then bumps the revision.
func (r *ApartmentRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, apt *models.Apartment) error {
	return r.update(ctx, tx, apt)
}

func (r *ApartmentRepository) Update(ctx context.Context, apt *models.Apartment) error {
	return r.update(ctx, r.db, apt)
}

func (r *ApartmentRepository) update(ctx context.Context, q sqlx.ExtContext, apt *models.Apartment) error {
	query := `
		UPDATE apartments SET
			title = ?, description = ?, address = ?, location = ?, rent = ?, utilities = ?,
			images = ?, pdf_blueprints = ?, videos = ?, status = ?, updated_at = ?,
			revision = revision + 1
		WHERE id = ? AND revision = ?`
	err := utils.ExecWithCheck(ctx, q, query, utils.ExecUpdate,
		apt.Title, apt.Description, apt.Address, apt.Location, apt.Rent, apt.Utilities,
		apt.Images, apt.PDFBlueprints, apt.Videos, apt.Status, apt.UpdatedAt,
		apt.ID, apt.Revision)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("failed to update apartment: %w", err)
	}
	apt.Revision++
	return nil
}

// TouchTx bumps the revision and status without other changes. Tenancy
// changes use it so concurrent edits to the same listing conflict.
func (r *ApartmentRepository) TouchTx(ctx context.Context, tx *sqlx.Tx, apt *models.Apartment) error {
	query := `UPDATE apartments SET status = ?, updated_at = ?, revision = revision + 1 WHERE id = ? AND revision = ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecUpdate, apt.Status, apt.UpdatedAt, apt.ID, apt.Revision)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("failed to touch apartment: %w", err)
	}
	apt.Revision++
	return nil
}

func (r *ApartmentRepository) Delete(ctx context.Context, id string) error {
	err := utils.ExecWithCheck(ctx, r.db, `DELETE FROM apartments WHERE id = ?`, utils.ExecDelete, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete apartment: %w", err)
	}
	return nil
}

func (r *ApartmentRepository) AddTenantTx(ctx context.Context, tx *sqlx.Tx, apartmentID, tenantID string, now int64) error {
	query := `INSERT INTO apartment_tenants (apartment_id, tenant_id, joined_at) VALUES (?, ?, ?)`
	if err := utils.ExecWithCheck(ctx, tx, query, utils.ExecInsert, apartmentID, tenantID, now); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to add tenant: %w", err)
	}
	return nil
}

func (r *ApartmentRepository) RemoveTenantTx(ctx context.Context, tx *sqlx.Tx, apartmentID, tenantID string) error {
	query := `DELETE FROM apartment_tenants WHERE apartment_id = ? AND tenant_id = ?`
	err := utils.ExecWithCheck(ctx, tx, query, utils.ExecDelete, apartmentID, tenantID)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove tenant: %w", err)
	}
	return nil
}

// HasHistory reports whether billings or contracts reference the apartment.
func (r *ApartmentRepository) HasHistory(ctx context.Context, id string) (bool, error) {
	var n int
	query := `SELECT (SELECT COUNT(*) FROM billings WHERE apartment_id = ?) + (SELECT COUNT(*) FROM contracts WHERE apartment_id = ?)`
	if err := get(ctx, r.db, &n, query, id, id); err != nil {
		return false, fmt.Errorf("failed to check apartment history: %w", err)
	}
	return n > 0, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
