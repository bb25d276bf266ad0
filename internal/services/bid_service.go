package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

type BidService struct {
	db            *sqlx.DB
	bidRepo       *repository.BidRepository
	apartmentRepo *repository.ApartmentRepository
	apartments    *ApartmentService
	notifier      *NotificationService
	now           func() time.Time
}

func NewBidService(db *sqlx.DB, bidRepo *repository.BidRepository, apartmentRepo *repository.ApartmentRepository, apartments *ApartmentService, notifier *NotificationService) *BidService {
	return &BidService{
		db:            db,
		bidRepo:       bidRepo,
		apartmentRepo: apartmentRepo,
		apartments:    apartments,
		notifier:      notifier,
		now:           time.Now,
	}
}

func (s *BidService) Create(ctx context.Context, actor models.Actor, req models.CreateBidRequest) (*models.Bid, error) {
	if actor.Role != models.RoleTenant {
		return nil, apperr.Forbidden("only tenants can bid")
	}
	if req.ApartmentID == "" {
		return nil, apperr.InvalidInput("apartment_id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.InvalidInput("amount must be greater than zero")
	}

	apt, err := s.apartmentRepo.GetByID(ctx, req.ApartmentID)
	if err != nil {
		return nil, translate(err, "apartment "+req.ApartmentID)
	}
	if apt.Status != models.ApartmentAvailable {
		return nil, apperr.InvalidInput("apartment %s is not open for bids", apt.ID)
	}
	if apt.HasTenant(actor.UserID) {
		return nil, apperr.Conflict("you already rent apartment %s", apt.ID)
	}
	pending, err := s.bidRepo.HasPending(ctx, apt.ID, actor.UserID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to check bids")
	}
	if pending {
		return nil, apperr.Conflict("you already have a pending bid on apartment %s", apt.ID)
	}

	now := s.now().Unix()
	bid := &models.Bid{
		ID:          uuid.NewString(),
		ApartmentID: apt.ID,
		BidderID:    actor.UserID,
		Amount:      req.Amount,
		Message:     strings.TrimSpace(req.Message),
		Status:      models.BidPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		return nil, apperr.Unexpected(err, "failed to save bid")
	}
	slog.Info("bid created", "bid_id", bid.ID, "apartment_id", apt.ID, "bidder_id", actor.UserID)
	return bid, nil
}

func (s *BidService) decide(bid *models.Bid, status models.BidStatus, by string) {
	now := s.now().Unix()
	bid.Status = status
	bid.DecidedBy = &by
	bid.DecidedAt = &now
	bid.UpdatedAt = now
}

// Accept moves the bidder into the apartment and rejects every other open
// bid on it, all in one transaction.
func (s *BidService) Accept(ctx context.Context, actor models.Actor, id string) (*models.Bid, error) {
	bid, err := s.bidRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "bid "+id)
	}
	if bid.Status != models.BidPending {
		return nil, apperr.Conflict("bid %s is already %s", id, bid.Status)
	}
	if err := s.apartments.requireTenant(ctx, bid.BidderID); err != nil {
		return nil, err
	}

	var rejected []models.Bid
	err = repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		current, err := s.bidRepo.GetByIDTx(ctx, tx, id)
		if err != nil {
			return translate(err, "bid "+id)
		}
		if _, err := s.apartments.addTenantTx(ctx, tx, actor, current.ApartmentID, current.BidderID); err != nil {
			return err
		}
		s.decide(current, models.BidAccepted, actor.UserID)
		if err := s.bidRepo.DecideTx(ctx, tx, current, models.BidPending); err != nil {
			return translate(err, "bid "+id)
		}
		if rejected, err = s.bidRepo.PendingOthersTx(ctx, tx, current.ApartmentID, id); err != nil {
			return apperr.Unexpected(err, "failed to load competing bids")
		}
		if _, err := s.bidRepo.RejectOthersTx(ctx, tx, current.ApartmentID, id, actor.UserID, current.UpdatedAt); err != nil {
			return apperr.Unexpected(err, "failed to reject competing bids")
		}
		bid = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("bid accepted", "bid_id", id, "apartment_id", bid.ApartmentID, "rejected", len(rejected))
	s.notifyOutcome(ctx, bid, "Your bid was accepted. Welcome to your new home.")
	for i := range rejected {
		rejected[i].Status = models.BidRejected
		s.notifyOutcome(ctx, &rejected[i], "The apartment was let to another applicant.")
	}
	return bid, nil
}

func (s *BidService) Reject(ctx context.Context, actor models.Actor, id string) (*models.Bid, error) {
	bid, err := s.bidRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "bid "+id)
	}
	apt, err := s.apartmentRepo.GetByID(ctx, bid.ApartmentID)
	if err != nil {
		return nil, translate(err, "apartment "+bid.ApartmentID)
	}
	if !actor.CanManage(apt.OwnerID) {
		return nil, apperr.Forbidden("apartment %s belongs to another owner", apt.ID)
	}
	if err := s.close(ctx, bid, models.BidRejected, actor.UserID); err != nil {
		return nil, err
	}
	s.notifyOutcome(ctx, bid, "Your bid was declined by the owner.")
	return bid, nil
}

// Withdraw is the bidder taking back their own open bid.
func (s *BidService) Withdraw(ctx context.Context, actor models.Actor, id string) (*models.Bid, error) {
	bid, err := s.bidRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "bid "+id)
	}
	if bid.BidderID != actor.UserID {
		return nil, apperr.Forbidden("bid %s is not yours", id)
	}
	if err := s.close(ctx, bid, models.BidWithdrawn, actor.UserID); err != nil {
		return nil, err
	}
	return bid, nil
}

func (s *BidService) close(ctx context.Context, bid *models.Bid, status models.BidStatus, by string) error {
	if bid.Status != models.BidPending {
		return apperr.Conflict("bid %s is already %s", bid.ID, bid.Status)
	}
	s.decide(bid, status, by)
	return repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.bidRepo.DecideTx(ctx, tx, bid, models.BidPending); err != nil {
			return translate(err, "bid "+bid.ID)
		}
		slog.Info("bid closed", "bid_id", bid.ID, "status", status)
		return nil
	})
}

func (s *BidService) notifyOutcome(ctx context.Context, bid *models.Bid, body string) {
	if s.notifier == nil {
		return
	}
	msg := models.Message{
		Type:  models.NotificationBidOutcome,
		Title: fmt.Sprintf("Bid %s", bid.Status),
		Body:  body,
		Data:  map[string]any{"bid_id": bid.ID, "apartment_id": bid.ApartmentID, "status": string(bid.Status)},
	}
	if _, err := s.notifier.Notify(ctx, bid.BidderID, msg); err != nil {
		slog.Warn("bid outcome notification failed", "bid_id", bid.ID, "error", err)
	}
}

func (s *BidService) ListMine(ctx context.Context, userID string) ([]models.Bid, error) {
	bids, err := s.bidRepo.ListByBidder(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list bids")
	}
	return bids, nil
}

func (s *BidService) ListByApartment(ctx context.Context, actor models.Actor, apartmentID string) ([]models.Bid, error) {
	apt, err := s.apartmentRepo.GetByID(ctx, apartmentID)
	if err != nil {
		return nil, translate(err, "apartment "+apartmentID)
	}
	if !actor.CanManage(apt.OwnerID) {
		return nil, apperr.Forbidden("apartment %s belongs to another owner", apartmentID)
	}
	bids, err := s.bidRepo.ListByApartment(ctx, apartmentID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list bids")
	}
	return bids, nil
}
