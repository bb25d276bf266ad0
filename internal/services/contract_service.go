package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

type ContractService struct {
	db            *sqlx.DB
	contractRepo  *repository.ContractRepository
	apartmentRepo *repository.ApartmentRepository
	notifier      *NotificationService
	now           func() time.Time
}

func NewContractService(db *sqlx.DB, contractRepo *repository.ContractRepository, apartmentRepo *repository.ApartmentRepository, notifier *NotificationService) *ContractService {
	return &ContractService{
		db:            db,
		contractRepo:  contractRepo,
		apartmentRepo: apartmentRepo,
		notifier:      notifier,
		now:           time.Now,
	}
}

func (s *ContractService) Create(ctx context.Context, actor models.Actor, req models.NewContractRequest) (*models.Contract, error) {
	if req.ApartmentID == "" {
		return nil, apperr.InvalidInput("apartment_id is required")
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, apperr.InvalidInput("start_date: %s", err.Error())
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, apperr.InvalidInput("end_date: %s", err.Error())
	}
	if !end.After(start) {
		return nil, apperr.InvalidInput("end_date must be after start_date")
	}

	var contract *models.Contract
	err = repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		apt, err := s.apartmentRepo.GetByIDTx(ctx, tx, req.ApartmentID)
		if err != nil {
			return translate(err, "apartment "+req.ApartmentID)
		}
		if !actor.CanManage(apt.OwnerID) {
			return apperr.Forbidden("apartment %s belongs to another owner", apt.ID)
		}

		if _, err := s.contractRepo.GetActiveByApartmentTx(ctx, tx, apt.ID); err == nil {
			return apperr.Conflict("apartment %s already has an active contract", apt.ID)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return apperr.Unexpected(err, "failed to check active contract")
		}

		terms := models.Terms{Rent: req.Rent, Utilities: req.Utilities, Tenants: req.Tenants}
		if len(terms.Tenants) == 0 {
			terms.Tenants = slices.Clone(apt.Tenants)
		}
		if err := s.validateTerms(terms, apt); err != nil {
			return err
		}

		contract = models.NewContract(uuid.NewString(), apt.ID, apt.OwnerID, terms,
			start.Unix(), end.Unix(), actor.UserID, s.now().Unix())
		return translate(s.contractRepo.CreateTx(ctx, tx, contract), "contract")
	})
	if err != nil {
		return nil, err
	}

	slog.Info("contract created", "contract_id", contract.ID, "apartment_id", contract.ApartmentID)
	s.notifyParties(ctx, contract, fmt.Sprintf("A new lease (version %s) was created for your apartment.", contract.CurrentVersion))
	return contract, nil
}

// validateTerms checks amounts and that every named tenant lives in the
// apartment.
func (s *ContractService) validateTerms(terms models.Terms, apt *models.Apartment) error {
	if err := terms.Validate(); err != nil {
		return apperr.InvalidInput("%s", err.Error())
	}
	for _, t := range terms.Tenants {
		if !apt.HasTenant(t) {
			return apperr.InvalidInput("user %s is not a tenant of apartment %s", t, apt.ID)
		}
	}
	return nil
}

func (s *ContractService) canView(actor models.Actor, c *models.Contract) bool {
	if actor.CanManage(c.OwnerID) {
		return true
	}
	for _, v := range c.Versions {
		if slices.Contains([]string(v.Tenants), actor.UserID) {
			return true
		}
	}
	return false
}

func (s *ContractService) Get(ctx context.Context, actor models.Actor, id string) (*models.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "contract "+id)
	}
	if !s.canView(actor, c) {
		return nil, apperr.Forbidden("contract %s is not yours", id)
	}
	return c, nil
}

func (s *ContractService) Versions(ctx context.Context, actor models.Actor, id string) ([]models.ContractVersion, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return c.Versions, nil
}

// Version resolves an exact label such as "2.00" or "1.03". A minor label an
// appendix has since replaced answers NotFound naming the current label.
func (s *ContractService) Version(ctx context.Context, actor models.Actor, id, label string) (*models.ContractVersion, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := models.ParseVersion(label); err != nil {
		return nil, apperr.InvalidInput("%s", err.Error())
	}
	v, err := c.Version(label)
	if errors.Is(err, models.ErrSupersededVersion) {
		return nil, apperr.NotFound("contract %s: %s", id, err.Error())
	}
	if err != nil {
		return nil, apperr.NotFound("contract %s has no version %s", id, label)
	}
	return v, nil
}

func (s *ContractService) ListByApartment(ctx context.Context, actor models.Actor, apartmentID string) ([]models.Contract, error) {
	apt, err := s.apartmentRepo.GetByID(ctx, apartmentID)
	if err != nil {
		return nil, translate(err, "apartment "+apartmentID)
	}
	if !actor.CanManage(apt.OwnerID) && !apt.HasTenant(actor.UserID) {
		return nil, apperr.Forbidden("apartment %s is not yours", apartmentID)
	}
	contracts, err := s.contractRepo.ListByApartment(ctx, apartmentID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list contracts")
	}
	return contracts, nil
}

// mutate loads a contract inside a transaction, lets change edit it and
// saves the result with a revision check.
func (s *ContractService) mutate(ctx context.Context, actor models.Actor, id string, expected *int64,
	change func(tx *sqlx.Tx, c *models.Contract) (*models.ContractVersion, bool, error)) (*models.Contract, error) {
	var contract *models.Contract
	err := repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		c, err := s.contractRepo.GetByIDTx(ctx, tx, id)
		if err != nil {
			return translate(err, "contract "+id)
		}
		if !actor.CanManage(c.OwnerID) {
			return apperr.Forbidden("contract %s belongs to another owner", id)
		}
		if err := checkRevision(c.Revision, expected, "contract "+id); err != nil {
			return err
		}
		if c.Status == models.ContractTerminated {
			return apperr.InvalidInput("contract %s is terminated", id)
		}

		changed, isNew, err := change(tx, c)
		if err != nil {
			return err
		}
		if err := s.contractRepo.SaveTx(ctx, tx, c, changed, isNew); err != nil {
			return translate(err, "contract "+id)
		}
		contract = c
		return nil
	})
	return contract, err
}

// MajorUpdate appends a new version carrying the full replacement terms.
func (s *ContractService) MajorUpdate(ctx context.Context, actor models.Actor, id string, req models.ContractUpdateRequest) (*models.Contract, error) {
	c, err := s.mutate(ctx, actor, id, req.Revision, func(tx *sqlx.Tx, c *models.Contract) (*models.ContractVersion, bool, error) {
		apt, err := s.apartmentRepo.GetByIDTx(ctx, tx, c.ApartmentID)
		if err != nil {
			return nil, false, translate(err, "apartment "+c.ApartmentID)
		}
		terms := models.Terms{Rent: req.Rent, Utilities: req.Utilities, Tenants: req.Tenants}
		if terms.Tenants == nil {
			latest, err := c.LatestVersion()
			if err != nil {
				return nil, false, apperr.Unexpected(err, "contract %s has no versions", id)
			}
			terms.Tenants = slices.Clone([]string(latest.Tenants))
		}
		if err := s.validateTerms(terms, apt); err != nil {
			return nil, false, err
		}
		v, err := c.ApplyMajorUpdate(terms, strings.TrimSpace(req.Summary), actor.UserID, s.now().Unix())
		if err != nil {
			return nil, false, apperr.Unexpected(err, "failed to apply update")
		}
		return v, true, nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("contract major update", "contract_id", id, "version", c.CurrentVersion)
	s.notifyParties(ctx, c, fmt.Sprintf("Your lease was updated to version %s.", c.CurrentVersion))
	return c, nil
}

// Appendix amends the latest version in place and bumps its minor number.
func (s *ContractService) Appendix(ctx context.Context, actor models.Actor, id string, req models.AppendixRequest) (*models.Contract, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, apperr.InvalidInput("description is required")
	}
	if req.Rent != nil && req.Rent.IsNegative() {
		return nil, apperr.InvalidInput("rent must not be negative")
	}
	if req.Utilities != nil {
		if err := req.Utilities.Validate(); err != nil {
			return nil, apperr.InvalidInput("%s", err.Error())
		}
	}

	c, err := s.mutate(ctx, actor, id, req.Revision, func(tx *sqlx.Tx, c *models.Contract) (*models.ContractVersion, bool, error) {
		if req.Tenants != nil {
			apt, err := s.apartmentRepo.GetByIDTx(ctx, tx, c.ApartmentID)
			if err != nil {
				return nil, false, translate(err, "apartment "+c.ApartmentID)
			}
			for _, t := range req.Tenants {
				if !apt.HasTenant(t) {
					return nil, false, apperr.InvalidInput("user %s is not a tenant of apartment %s", t, apt.ID)
				}
			}
		}
		v, err := c.ApplyMinorUpdate(req.Amendment, actor.UserID, s.now().Unix())
		if err != nil {
			return nil, false, apperr.Unexpected(err, "failed to apply appendix")
		}
		return v, false, nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("contract appendix", "contract_id", id, "version", c.CurrentVersion)
	s.notifyParties(ctx, c, fmt.Sprintf("An appendix was added to your lease (version %s): %s", c.CurrentVersion, req.Description))
	return c, nil
}

func (s *ContractService) Terminate(ctx context.Context, actor models.Actor, id string) (*models.Contract, error) {
	c, err := s.mutate(ctx, actor, id, nil, func(_ *sqlx.Tx, c *models.Contract) (*models.ContractVersion, bool, error) {
		now := s.now().Unix()
		c.Status = models.ContractTerminated
		c.EndDate = min(c.EndDate, now)
		c.UpdatedAt = now
		return nil, false, nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("contract terminated", "contract_id", id)
	s.notifyParties(ctx, c, "Your lease was terminated.")
	return c, nil
}

func (s *ContractService) notifyParties(ctx context.Context, c *models.Contract, body string) {
	if s.notifier == nil {
		return
	}
	latest, err := c.LatestVersion()
	if err != nil {
		return
	}
	msg := models.Message{
		Type:  models.NotificationContractUpdated,
		Title: "Lease " + c.CurrentVersion,
		Body:  body,
		Data:  map[string]any{"contract_id": c.ID, "version": c.CurrentVersion},
	}
	s.notifier.NotifyMany(ctx, latest.Tenants, msg)
}
