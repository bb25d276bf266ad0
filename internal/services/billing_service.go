package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rental-service/internal/apperr"
	"rental-service/internal/billing"
	"rental-service/internal/metrics"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

type BillingService struct {
	db            *sqlx.DB
	billingRepo   *repository.BillingRepository
	contractRepo  *repository.ContractRepository
	apartmentRepo *repository.ApartmentRepository
	notifier      *NotificationService
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewBillingService(
	db *sqlx.DB,
	billingRepo *repository.BillingRepository,
	contractRepo *repository.ContractRepository,
	apartmentRepo *repository.ApartmentRepository,
	notifier *NotificationService,
	m *metrics.Metrics,
) *BillingService {
	return &BillingService{
		db:            db,
		billingRepo:   billingRepo,
		contractRepo:  contractRepo,
		apartmentRepo: apartmentRepo,
		notifier:      notifier,
		metrics:       m,
		now:           time.Now,
	}
}

// billingWindow validates the period and resolves the due date. Without an
// explicit date the bill falls due at the last second of the period month.
func billingWindow(req models.ProcessBillingRequest) (string, int64, error) {
	period := strings.TrimSpace(req.Period)
	start, err := models.ParsePeriod(period)
	if err != nil {
		return "", 0, apperr.InvalidInput("%s", err.Error())
	}
	if req.DueDate == "" {
		return period, start.AddDate(0, 1, 0).Add(-time.Second).Unix(), nil
	}
	due, err := models.ParseDate(req.DueDate)
	if err != nil {
		return "", 0, apperr.InvalidInput("due_date: %s", err.Error())
	}
	return period, due.Unix(), nil
}

func contractSource(c *models.Contract) (models.BillingSource, error) {
	latest, err := c.LatestVersion()
	if err != nil {
		return models.BillingSource{}, apperr.Unexpected(err, "contract %s has no versions", c.ID)
	}
	id, label := c.ID, latest.Label()
	return models.BillingSource{
		ApartmentID:     c.ApartmentID,
		OwnerID:         c.OwnerID,
		ContractID:      &id,
		ContractVersion: &label,
		Rent:            latest.Rent,
		Utilities:       latest.Utilities,
		Tenants:         []string(latest.Tenants),
	}, nil
}

func apartmentSource(apt *models.Apartment) models.BillingSource {
	return models.BillingSource{
		ApartmentID: apt.ID,
		OwnerID:     apt.OwnerID,
		Rent:        apt.Rent,
		Utilities:   apt.Utilities,
		Tenants:     apt.Tenants,
	}
}

// GenerateFromContract bills the latest version of an active contract.
func (s *BillingService) GenerateFromContract(ctx context.Context, actor models.Actor, contractID string, req models.ProcessBillingRequest) (*models.Billing, error) {
	period, due, err := billingWindow(req)
	if err != nil {
		return nil, err
	}

	var bill *models.Billing
	err = repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		c, err := s.contractRepo.GetByIDTx(ctx, tx, contractID)
		if err != nil {
			return translate(err, "contract "+contractID)
		}
		if c.Status != models.ContractActive {
			return apperr.NotFound("contract %s is no longer active", contractID)
		}
		if !actor.CanManage(c.OwnerID) {
			return apperr.Forbidden("contract %s belongs to another owner", contractID)
		}
		src, err := contractSource(c)
		if err != nil {
			return err
		}
		bill, err = s.create(ctx, tx, src, period, due)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, bill)
	return bill, nil
}

// GenerateFromApartment bills the apartment's active contract when it has
// one, otherwise its listing snapshot.
func (s *BillingService) GenerateFromApartment(ctx context.Context, actor models.Actor, apartmentID string, req models.ProcessBillingRequest) (*models.Billing, error) {
	period, due, err := billingWindow(req)
	if err != nil {
		return nil, err
	}

	var bill *models.Billing
	err = repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		apt, err := s.apartmentRepo.GetByIDTx(ctx, tx, apartmentID)
		if err != nil {
			return translate(err, "apartment "+apartmentID)
		}
		if !actor.CanManage(apt.OwnerID) {
			return apperr.Forbidden("apartment %s belongs to another owner", apartmentID)
		}

		src := apartmentSource(apt)
		c, err := s.contractRepo.GetActiveByApartmentTx(ctx, tx, apt.ID)
		switch {
		case err == nil:
			if src, err = contractSource(c); err != nil {
				return err
			}
		case !errors.Is(err, repository.ErrNotFound):
			return apperr.Unexpected(err, "failed to load active contract")
		}

		bill, err = s.create(ctx, tx, src, period, due)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, bill)
	return bill, nil
}

func (s *BillingService) create(ctx context.Context, tx *sqlx.Tx, src models.BillingSource, period string, due int64) (*models.Billing, error) {
	b, err := billing.NewBilling(uuid.NewString(), src, period, due, s.now().Unix())
	switch {
	case errors.Is(err, billing.ErrNoPayers):
		return nil, apperr.InvalidInput("apartment %s has nobody to bill", src.ApartmentID)
	case errors.Is(err, billing.ErrNegativeTotal):
		return nil, apperr.InvalidInput("bill total must not be negative")
	case err != nil:
		return nil, apperr.Unexpected(err, "failed to compute bill")
	}
	if err := s.billingRepo.CreateTx(ctx, tx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("apartment %s is already billed for %s", src.ApartmentID, period)
		}
		return nil, apperr.Unexpected(err, "failed to save bill")
	}
	return b, nil
}

// announce counts the bill and tells every payer their share.
func (s *BillingService) announce(ctx context.Context, b *models.Billing) {
	slog.Info("billing generated", "billing_id", b.ID, "apartment_id", b.ApartmentID,
		"period", b.Period, "total", b.TotalAmount.StringFixed(2), "payers", len(b.SubBills))
	if s.metrics != nil {
		s.metrics.BillingsGenerated.Inc()
	}
	if s.notifier == nil {
		return
	}

	breakdown := make(map[string]string)
	for name, amount := range b.Utilities.Breakdown() {
		breakdown[name] = amount.StringFixed(2)
	}
	utilities := "none"
	if lines := b.Utilities.BreakdownLines(); len(lines) > 0 {
		utilities = strings.Join(lines, ", ")
	}

	due := time.Unix(b.DueDate, 0).UTC().Format(time.DateOnly)
	for _, sub := range b.SubBills {
		msg := models.Message{
			Type:  models.NotificationNewBill,
			Title: "New bill for " + b.Period,
			Body: fmt.Sprintf("Rent %s, utilities: %s. Total %s, your share %s, due %s.",
				b.Rent.StringFixed(2), utilities, b.TotalAmount.StringFixed(2), sub.Share.StringFixed(2), due),
			Data: map[string]any{
				"billing_id": b.ID,
				"period":     b.Period,
				"rent":       b.Rent.StringFixed(2),
				"utilities":  breakdown,
				"total":      b.TotalAmount.StringFixed(2),
				"share":      sub.Share.StringFixed(2),
				"due_date":   due,
			},
		}
		if _, err := s.notifier.Notify(ctx, sub.TenantID, msg); err != nil {
			slog.Warn("new bill notification failed", "billing_id", b.ID, "user_id", sub.TenantID, "error", err)
		}
	}
}

func canViewBilling(actor models.Actor, b *models.Billing) bool {
	return actor.CanManage(b.OwnerID) || b.SubBillFor(actor.UserID) != nil
}

func (s *BillingService) Get(ctx context.Context, actor models.Actor, id string) (*models.Billing, error) {
	b, err := s.billingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "billing "+id)
	}
	if !canViewBilling(actor, b) {
		return nil, apperr.Forbidden("billing %s is not yours", id)
	}
	return b, nil
}

func (s *BillingService) ListForApartment(ctx context.Context, actor models.Actor, apartmentID string) ([]models.Billing, error) {
	apt, err := s.apartmentRepo.GetByID(ctx, apartmentID)
	if err != nil {
		return nil, translate(err, "apartment "+apartmentID)
	}
	if !actor.CanManage(apt.OwnerID) && !apt.HasTenant(actor.UserID) {
		return nil, apperr.Forbidden("apartment %s is not yours", apartmentID)
	}
	bills, err := s.billingRepo.ListByApartment(ctx, apartmentID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list billings")
	}
	return bills, nil
}

func (s *BillingService) ListMine(ctx context.Context, userID string) ([]models.Billing, error) {
	bills, err := s.billingRepo.ListByTenant(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list billings")
	}
	return bills, nil
}
