package services

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

// MediaUploads are multipart files keyed by form field name.
type MediaUploads map[string][]*multipart.FileHeader

type ApartmentService struct {
	db            *sqlx.DB
	apartmentRepo *repository.ApartmentRepository
	userRepo      *repository.UserRepository
	contractRepo  *repository.ContractRepository
	fileService   *FileService
	now           func() time.Time
}

func NewApartmentService(db *sqlx.DB, apartmentRepo *repository.ApartmentRepository, userRepo *repository.UserRepository,
	contractRepo *repository.ContractRepository, fileService *FileService) *ApartmentService {
	return &ApartmentService{
		db:            db,
		apartmentRepo: apartmentRepo,
		userRepo:      userRepo,
		contractRepo:  contractRepo,
		fileService:   fileService,
		now:           time.Now,
	}
}

func (s *ApartmentService) Create(ctx context.Context, actor models.Actor, req models.CreateApartmentRequest, media MediaUploads) (*models.Apartment, error) {
	if actor.Role != models.RoleOwner && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only owners can list apartments")
	}
	ownerID := actor.UserID
	if actor.IsAdmin() && req.OwnerID != "" {
		ownerID = req.OwnerID
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.InvalidInput("title is required")
	}
	if req.Rent.IsNegative() {
		return nil, apperr.InvalidInput("rent must not be negative")
	}
	if err := req.Utilities.Validate(); err != nil {
		return nil, apperr.InvalidInput("%s", err.Error())
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, apperr.InvalidInput("%s", err.Error())
		}
	}

	now := s.now().Unix()
	apt := &models.Apartment{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Address:       req.Address,
		Location:      req.Location,
		Rent:          req.Rent,
		Utilities:     req.Utilities,
		Images:        models.StringList{},
		PDFBlueprints: models.StringList{},
		Videos:        models.StringList{},
		Status:        models.ApartmentAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
		Tenants:       []string{},
	}

	uploaded, err := s.storeMedia(ctx, ownerID, apt, media)
	if err != nil {
		return nil, err
	}
	if err := s.apartmentRepo.Create(ctx, apt); err != nil {
		s.discardMedia(ctx, uploaded)
		return nil, apperr.Unexpected(err, "failed to create apartment")
	}
	slog.Info("apartment created", "apartment_id", apt.ID, "owner_id", ownerID, "media", len(uploaded))
	return apt, nil
}

// storeMedia uploads every file and appends its id to the matching list.
// On a failed upload the files stored so far are removed again.
func (s *ApartmentService) storeMedia(ctx context.Context, ownerID string, apt *models.Apartment, media MediaUploads) ([]string, error) {
	var uploaded []string
	fields := make([]string, 0, len(media))
	for field := range media {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		kind, err := KindForField(field)
		if err != nil {
			s.discardMedia(ctx, uploaded)
			return nil, apperr.InvalidInput("%s", err.Error())
		}
		for _, fh := range media[field] {
			stored, err := s.fileService.Upload(ctx, ownerID, kind, fh)
			if err != nil {
				s.discardMedia(ctx, uploaded)
				return nil, err
			}
			uploaded = append(uploaded, stored.ID)
			switch kind {
			case models.FileImage:
				apt.Images = append(apt.Images, stored.ID)
			case models.FilePDFBlueprint:
				apt.PDFBlueprints = append(apt.PDFBlueprints, stored.ID)
			case models.FileVideo:
				apt.Videos = append(apt.Videos, stored.ID)
			}
		}
	}
	return uploaded, nil
}

func (s *ApartmentService) discardMedia(ctx context.Context, ids []string) {
	system := models.Actor{Role: models.RoleAdmin}
	for _, id := range ids {
		if err := s.fileService.Delete(ctx, system, id); err != nil {
			slog.Warn("failed to discard uploaded media", "file_id", id, "error", err)
		}
	}
}

func (s *ApartmentService) Get(ctx context.Context, id string) (*models.Apartment, error) {
	apt, err := s.apartmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "apartment "+id)
	}
	return apt, nil
}

// List filters listings and pages through them. With a near point only
// listings inside the radius are kept, closest first.
func (s *ApartmentService) List(ctx context.Context, filter models.ApartmentFilter) ([]models.Apartment, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.InvalidInput("status %q is not valid", filter.Status)
	}
	if filter.Near != nil {
		if err := filter.Near.Validate(); err != nil {
			return nil, 0, apperr.InvalidInput("%s", err.Error())
		}
		if filter.RadiusKm <= 0 {
			return nil, 0, apperr.InvalidInput("radius_km must be positive")
		}
	}

	apts, err := s.apartmentRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Unexpected(err, "failed to list apartments")
	}

	if filter.Near != nil {
		near := *filter.Near
		kept := apts[:0]
		for _, a := range apts {
			if a.Location != nil && near.DistanceKm(*a.Location) <= filter.RadiusKm {
				kept = append(kept, a)
			}
		}
		apts = kept
		sort.SliceStable(apts, func(i, j int) bool {
			return near.DistanceKm(*apts[i].Location) < near.DistanceKm(*apts[j].Location)
		})
	}

	total := len(apts)
	if filter.Limit <= 0 {
		return apts, total, nil
	}
	page := max(filter.Page, 1)
	start := (page - 1) * filter.Limit
	if start >= total {
		return []models.Apartment{}, total, nil
	}
	end := min(start+filter.Limit, total)
	return apts[start:end], total, nil
}

func (s *ApartmentService) ListForTenant(ctx context.Context, tenantID string) ([]models.Apartment, error) {
	apts, err := s.apartmentRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list tenant apartments")
	}
	return apts, nil
}

func (s *ApartmentService) loadManaged(ctx context.Context, actor models.Actor, id string) (*models.Apartment, error) {
	apt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(apt.OwnerID) {
		return nil, apperr.Forbidden("apartment %s belongs to another owner", id)
	}
	return apt, nil
}

func checkRevision(current int64, expected *int64, what string) error {
	if expected != nil && *expected != current {
		return apperr.Conflict("%s is at revision %d, not %d", what, current, *expected)
	}
	return nil
}

func (s *ApartmentService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateApartmentRequest) (*models.Apartment, error) {
	apt, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(apt.Revision, req.Revision, "apartment "+id); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperr.InvalidInput("title must not be empty")
		}
		apt.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		apt.Description = *req.Description
	}
	if req.Address != nil {
		apt.Address = *req.Address
	}
	if req.Rent != nil {
		if req.Rent.IsNegative() {
			return nil, apperr.InvalidInput("rent must not be negative")
		}
		apt.Rent = *req.Rent
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, apperr.InvalidInput("%s", err.Error())
		}
		apt.Location = req.Location
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperr.InvalidInput("status %q is not valid", *req.Status)
		}
		apt.Status = *req.Status
	}
	apt.UpdatedAt = s.now().Unix()

	if err := s.apartmentRepo.Update(ctx, apt); err != nil {
		return nil, translate(err, "apartment "+id)
	}
	return apt, nil
}

// UpdateUtilities changes only the utility fields present in patch.
func (s *ApartmentService) UpdateUtilities(ctx context.Context, actor models.Actor, id string, patch models.UtilitiesPatch, revision *int64) (*models.Apartment, error) {
	if patch.Empty() {
		return nil, apperr.InvalidInput("no utility fields to update")
	}
	apt, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(apt.Revision, revision, "apartment "+id); err != nil {
		return nil, err
	}
	next := patch.Apply(apt.Utilities)
	if err := next.Validate(); err != nil {
		return nil, apperr.InvalidInput("%s", err.Error())
	}
	apt.Utilities = next
	apt.UpdatedAt = s.now().Unix()
	if err := s.apartmentRepo.Update(ctx, apt); err != nil {
		return nil, translate(err, "apartment "+id)
	}
	return apt, nil
}

// Delete removes a listing that never had contracts or bills.
func (s *ApartmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	apt, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return err
	}
	has, err := s.apartmentRepo.HasHistory(ctx, id)
	if err != nil {
		return apperr.Unexpected(err, "failed to check apartment history")
	}
	if has {
		return apperr.Conflict("apartment %s has contracts or billings; unlist it instead", id)
	}
	if err := s.apartmentRepo.Delete(ctx, id); err != nil {
		return translate(err, "apartment "+id)
	}
	media := append(append(append([]string{}, apt.Images...), apt.PDFBlueprints...), apt.Videos...)
	s.discardMedia(ctx, media)
	return nil
}

func (s *ApartmentService) AddMedia(ctx context.Context, actor models.Actor, id string, media MediaUploads) (*models.Apartment, error) {
	if len(media) == 0 {
		return nil, apperr.InvalidInput("no media files provided")
	}
	apt, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	uploaded, err := s.storeMedia(ctx, apt.OwnerID, apt, media)
	if err != nil {
		return nil, err
	}
	apt.UpdatedAt = s.now().Unix()
	if err := s.apartmentRepo.Update(ctx, apt); err != nil {
		s.discardMedia(ctx, uploaded)
		return nil, translate(err, "apartment "+id)
	}
	return apt, nil
}

func (s *ApartmentService) requireTenant(ctx context.Context, tenantID string) error {
	user, err := s.userRepo.GetByID(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user %s not found", tenantID)
	}
	if err != nil {
		return apperr.Unexpected(err, "failed to load user %s", tenantID)
	}
	if user.Role != models.RoleTenant {
		return apperr.InvalidInput("user %s is not a tenant", tenantID)
	}
	if user.Status != models.UserActive {
		return apperr.InvalidInput("user %s is not active", tenantID)
	}
	return nil
}

func (s *ApartmentService) AddTenant(ctx context.Context, actor models.Actor, apartmentID, tenantID string) (*models.Apartment, error) {
	if tenantID == "" {
		return nil, apperr.InvalidInput("tenant_id is required")
	}
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	var apt *models.Apartment
	err := repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		apt, err = s.addTenantTx(ctx, tx, actor, apartmentID, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("tenant added", "apartment_id", apartmentID, "tenant_id", tenantID)
	return apt, nil
}

// addTenantTx is shared with bid acceptance and tenancy transfer.
func (s *ApartmentService) addTenantTx(ctx context.Context, tx *sqlx.Tx, actor models.Actor, apartmentID, tenantID string) (*models.Apartment, error) {
	apt, err := s.apartmentRepo.GetByIDTx(ctx, tx, apartmentID)
	if err != nil {
		return nil, translate(err, "apartment "+apartmentID)
	}
	if !actor.CanManage(apt.OwnerID) {
		return nil, apperr.Forbidden("apartment %s belongs to another owner", apartmentID)
	}
	if tenantID == apt.OwnerID {
		return nil, apperr.InvalidInput("the owner cannot be a tenant of their own apartment")
	}
	now := s.now().Unix()
	if err := s.apartmentRepo.AddTenantTx(ctx, tx, apartmentID, tenantID, now); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("user %s is already a tenant of %s", tenantID, apartmentID)
		}
		return nil, translate(err, "apartment "+apartmentID)
	}
	apt.Tenants = append(apt.Tenants, tenantID)
	apt.Status = models.ApartmentOccupied
	apt.UpdatedAt = now
	if err := s.apartmentRepo.TouchTx(ctx, tx, apt); err != nil {
		return nil, translate(err, "apartment "+apartmentID)
	}
	err = s.syncContractTenantsTx(ctx, tx, actor, apartmentID, "tenant "+tenantID+" moved in", func(tenants []string) []string {
		if slices.Contains(tenants, tenantID) {
			return tenants
		}
		return append(tenants, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return apt, nil
}

func (s *ApartmentService) RemoveTenant(ctx context.Context, actor models.Actor, apartmentID, tenantID string) (*models.Apartment, error) {
	var apt *models.Apartment
	err := repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		apt, err = s.removeTenantTx(ctx, tx, actor, apartmentID, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("tenant removed", "apartment_id", apartmentID, "tenant_id", tenantID)
	return apt, nil
}

func (s *ApartmentService) removeTenantTx(ctx context.Context, tx *sqlx.Tx, actor models.Actor, apartmentID, tenantID string) (*models.Apartment, error) {
	apt, err := s.apartmentRepo.GetByIDTx(ctx, tx, apartmentID)
	if err != nil {
		return nil, translate(err, "apartment "+apartmentID)
	}
	if !actor.CanManage(apt.OwnerID) {
		return nil, apperr.Forbidden("apartment %s belongs to another owner", apartmentID)
	}
	if err := s.apartmentRepo.RemoveTenantTx(ctx, tx, apartmentID, tenantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user %s is not a tenant of %s", tenantID, apartmentID)
		}
		return nil, translate(err, "apartment "+apartmentID)
	}

	remaining := apt.Tenants[:0]
	for _, t := range apt.Tenants {
		if t != tenantID {
			remaining = append(remaining, t)
		}
	}
	apt.Tenants = remaining
	if len(apt.Tenants) == 0 && apt.Status == models.ApartmentOccupied {
		apt.Status = models.ApartmentAvailable
	}
	apt.UpdatedAt = s.now().Unix()
	if err := s.apartmentRepo.TouchTx(ctx, tx, apt); err != nil {
		return nil, translate(err, "apartment "+apartmentID)
	}
	err = s.syncContractTenantsTx(ctx, tx, actor, apartmentID, "tenant "+tenantID+" moved out", func(tenants []string) []string {
		return slices.DeleteFunc(tenants, func(t string) bool { return t == tenantID })
	})
	if err != nil {
		return nil, err
	}
	return apt, nil
}

// syncContractTenantsTx records a tenancy change as an appendix on the
// apartment's active contract so billing from the contract follows who
// actually lives there. Apartments without an active contract are left alone.
func (s *ApartmentService) syncContractTenantsTx(ctx context.Context, tx *sqlx.Tx, actor models.Actor, apartmentID, description string,
	edit func(tenants []string) []string) error {
	if s.contractRepo == nil {
		return nil
	}
	c, err := s.contractRepo.GetActiveByApartmentTx(ctx, tx, apartmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Unexpected(err, "failed to load active contract of %s", apartmentID)
	}
	latest, err := c.LatestVersion()
	if err != nil {
		return apperr.Unexpected(err, "contract %s has no versions", c.ID)
	}
	current := []string(latest.Tenants)
	tenants := edit(slices.Clone(current))
	if slices.Equal(tenants, current) {
		return nil
	}
	if tenants == nil {
		tenants = []string{}
	}

	v, err := c.ApplyMinorUpdate(models.Amendment{Description: description, Tenants: tenants}, actor.UserID, s.now().Unix())
	if err != nil {
		return apperr.Unexpected(err, "failed to amend contract %s", c.ID)
	}
	if err := s.contractRepo.SaveTx(ctx, tx, c, v, false); err != nil {
		return translate(err, "contract "+c.ID)
	}
	slog.Info("contract tenants amended", "contract_id", c.ID, "version", c.CurrentVersion, "change", description)
	return nil
}

// TransferTenancy moves a tenant between two apartments in one transaction.
// Either both moves happen or neither does.
func (s *ApartmentService) TransferTenancy(ctx context.Context, actor models.Actor, req models.TransferTenancyRequest) (from, to *models.Apartment, err error) {
	if req.TenantID == "" || req.FromApartmentID == "" || req.ToApartmentID == "" {
		return nil, nil, apperr.InvalidInput("tenant_id, from_apartment_id and to_apartment_id are required")
	}
	if req.FromApartmentID == req.ToApartmentID {
		return nil, nil, apperr.InvalidInput("source and destination apartments must differ")
	}
	if err := s.requireTenant(ctx, req.TenantID); err != nil {
		return nil, nil, err
	}

	err = repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		if from, err = s.removeTenantTx(ctx, tx, actor, req.FromApartmentID, req.TenantID); err != nil {
			return err
		}
		to, err = s.addTenantTx(ctx, tx, actor, req.ToApartmentID, req.TenantID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	slog.Info("tenancy transferred", "tenant_id", req.TenantID, "from", req.FromApartmentID, "to", req.ToApartmentID)
	return from, to, nil
}
