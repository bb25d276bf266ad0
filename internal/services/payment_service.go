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
	"github.com/shopspring/decimal"

	"rental-service/internal/apperr"
	"rental-service/internal/billing"
	"rental-service/internal/metrics"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

// PaymentService applies payments to sub-bills. Every write of one payment
// lands in a single transaction guarded by the bill and sub-bill revisions.
type PaymentService struct {
	db          *sqlx.DB
	paymentRepo *repository.PaymentRepository
	billingRepo *repository.BillingRepository
	userRepo    *repository.UserRepository
	notifier    *NotificationService
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewPaymentService(
	db *sqlx.DB,
	paymentRepo *repository.PaymentRepository,
	billingRepo *repository.BillingRepository,
	userRepo *repository.UserRepository,
	notifier *NotificationService,
	m *metrics.Metrics,
) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		billingRepo: billingRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		metrics:     m,
		now:         time.Now,
	}
}

// Reconcile applies one payment. Money above the payer's share is credited
// to their account balance.
func (s *PaymentService) Reconcile(ctx context.Context, in models.PaymentInput) (*models.ReconcileResult, error) {
	if !in.Amount.IsPositive() {
		return nil, apperr.InvalidInput("amount must be greater than zero")
	}
	if in.TenantID == "" {
		return nil, apperr.InvalidInput("tenant_id is required")
	}
	if in.BillingID == "" && in.ApartmentID == "" {
		return nil, apperr.InvalidInput("billing_id or apartment_id is required")
	}
	if in.Method == "" {
		in.Method = models.PaymentTransfer
	}
	if !in.Method.Valid() || in.Method == models.PaymentCredit {
		return nil, apperr.InvalidInput("payment method %q is not accepted", in.Method)
	}

	var result *models.ReconcileResult
	err := repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		b, err := s.resolveBillTx(ctx, tx, in)
		if err != nil {
			return err
		}
		now := s.now().Unix()
		result, err = s.settleTx(ctx, tx, b, in, now)
		if err != nil {
			return err
		}
		if result.Payment.Overpayment.IsPositive() {
			if err := s.userRepo.CreditBalanceTx(ctx, tx, in.TenantID, result.Payment.Overpayment, now); err != nil {
				return translate(err, "user "+in.TenantID)
			}
			result.Credited = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, result)
	return result, nil
}

func (s *PaymentService) resolveBillTx(ctx context.Context, tx *sqlx.Tx, in models.PaymentInput) (*models.Billing, error) {
	if in.BillingID != "" {
		b, err := s.billingRepo.GetByIDTx(ctx, tx, in.BillingID)
		if err != nil {
			return nil, translate(err, "billing "+in.BillingID)
		}
		return b, nil
	}
	b, err := s.billingRepo.EarliestOpenForTenantTx(ctx, tx, in.ApartmentID, in.TenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("no open bill for tenant %s in apartment %s", in.TenantID, in.ApartmentID)
	}
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to find open bill")
	}
	return b, nil
}

// settleTx applies amount to the tenant's sub-bill, writes both balances with
// a revision check and records the payment.
func (s *PaymentService) settleTx(ctx context.Context, tx *sqlx.Tx, b *models.Billing, in models.PaymentInput, now int64) (*models.ReconcileResult, error) {
	sub, app, err := billing.Settle(b, in.TenantID, in.Amount, now)
	switch {
	case errors.Is(err, billing.ErrNoSubBill):
		return nil, apperr.NotFound("tenant %s has no share in billing %s", in.TenantID, b.ID)
	case errors.Is(err, billing.ErrNonPositiveAmount):
		return nil, apperr.InvalidInput("amount must be greater than zero")
	case errors.Is(err, billing.ErrSubBillSettled):
		return nil, apperr.InvalidInput("share of tenant %s in billing %s is already paid", in.TenantID, b.ID)
	case err != nil:
		return nil, apperr.Unexpected(err, "failed to apply payment")
	}

	if err := s.billingRepo.UpdateSubBillTx(ctx, tx, sub); err != nil {
		return nil, translate(err, "sub-bill of billing "+b.ID)
	}
	if err := s.billingRepo.UpdateBalanceTx(ctx, tx, b); err != nil {
		return nil, translate(err, "billing "+b.ID)
	}

	p := &models.Payment{
		ID:            uuid.NewString(),
		BillingID:     b.ID,
		TenantID:      in.TenantID,
		AmountPaid:    in.Amount,
		AppliedAmount: app.Applied,
		Overpayment:   app.Overpayment,
		Method:        in.Method,
		Reference:     strings.TrimSpace(in.Reference),
		RecordedBy:    in.RecordedBy,
		CreatedAt:     now,
	}
	if err := s.paymentRepo.CreateTx(ctx, tx, p); err != nil {
		return nil, apperr.Unexpected(err, "failed to record payment")
	}
	return &models.ReconcileResult{Payment: p, Billing: b, SubBill: sub}, nil
}

// MakePayment is a tenant paying their own share.
func (s *PaymentService) MakePayment(ctx context.Context, actor models.Actor, req models.MakePaymentRequest) (*models.ReconcileResult, error) {
	return s.Reconcile(ctx, models.PaymentInput{
		BillingID:   req.BillingID,
		ApartmentID: req.ApartmentID,
		TenantID:    actor.UserID,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		RecordedBy:  actor.UserID,
	})
}

// ReconcileFor lets the owner record a payment received outside the system.
func (s *PaymentService) ReconcileFor(ctx context.Context, actor models.Actor, billingID string, req models.ReconcileRequest) (*models.ReconcileResult, error) {
	b, err := s.billingRepo.GetByID(ctx, billingID)
	if err != nil {
		return nil, translate(err, "billing "+billingID)
	}
	if !actor.CanManage(b.OwnerID) {
		return nil, apperr.Forbidden("billing %s belongs to another owner", billingID)
	}
	return s.Reconcile(ctx, models.PaymentInput{
		BillingID:  billingID,
		TenantID:   req.TenantID,
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  req.Reference,
		RecordedBy: actor.UserID,
	})
}

// ApplyCredit pays the caller's share from their account balance. It never
// takes more than is owed, so it cannot overpay.
func (s *PaymentService) ApplyCredit(ctx context.Context, actor models.Actor, billingID string) (*models.ReconcileResult, error) {
	var result *models.ReconcileResult
	err := repository.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		user, err := s.userRepo.GetByIDTx(ctx, tx, actor.UserID)
		if err != nil {
			return translate(err, "user "+actor.UserID)
		}
		b, err := s.billingRepo.GetByIDTx(ctx, tx, billingID)
		if err != nil {
			return translate(err, "billing "+billingID)
		}
		sub := b.SubBillFor(actor.UserID)
		if sub == nil {
			return apperr.NotFound("you have no share in billing %s", billingID)
		}
		if !sub.Amount.IsPositive() {
			return apperr.InvalidInput("your share of billing %s is already paid", billingID)
		}
		amount := decimal.Min(user.Balance, sub.Amount)
		if !amount.IsPositive() {
			return apperr.InvalidInput("account balance is empty")
		}

		now := s.now().Unix()
		if err := s.userRepo.DebitBalanceTx(ctx, tx, user.ID, amount, now); err != nil {
			return translate(err, "balance of user "+user.ID)
		}
		result, err = s.settleTx(ctx, tx, b, models.PaymentInput{
			BillingID:  billingID,
			TenantID:   actor.UserID,
			Amount:     amount,
			Method:     models.PaymentCredit,
			Reference:  "account credit",
			RecordedBy: actor.UserID,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, result)
	return result, nil
}

func (s *PaymentService) record(ctx context.Context, r *models.ReconcileResult) {
	p := r.Payment
	slog.Info("payment reconciled", "payment_id", p.ID, "billing_id", p.BillingID, "tenant_id", p.TenantID,
		"applied", p.AppliedAmount.StringFixed(2), "overpayment", p.Overpayment.StringFixed(2), "status", r.Billing.Status)
	if s.metrics != nil {
		s.metrics.Payments.WithLabelValues(string(p.Method)).Inc()
		if p.Overpayment.IsPositive() {
			s.metrics.OverpaymentCredited.Add(p.Overpayment.InexactFloat64())
		}
	}
	if s.notifier == nil {
		return
	}
	msg := models.Message{
		Type:  models.NotificationPaymentReceived,
		Title: "Payment received for " + r.Billing.Period,
		Body: fmt.Sprintf("%s paid %s by %s. Remaining on the bill: %s.",
			p.TenantID, p.AppliedAmount.StringFixed(2), p.Method, r.Billing.AmountRemaining.StringFixed(2)),
		Data: map[string]any{
			"payment_id": p.ID,
			"billing_id": p.BillingID,
			"tenant_id":  p.TenantID,
			"applied":    p.AppliedAmount.StringFixed(2),
			"status":     string(r.Billing.Status),
		},
	}
	if _, err := s.notifier.Notify(ctx, r.Billing.OwnerID, msg); err != nil {
		slog.Warn("payment notification failed", "payment_id", p.ID, "error", err)
	}
}

func (s *PaymentService) Get(ctx context.Context, actor models.Actor, id string) (*models.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "payment "+id)
	}
	if p.TenantID == actor.UserID || actor.IsAdmin() {
		return p, nil
	}
	b, err := s.billingRepo.GetByID(ctx, p.BillingID)
	if err != nil {
		return nil, translate(err, "billing "+p.BillingID)
	}
	if !actor.CanManage(b.OwnerID) {
		return nil, apperr.Forbidden("payment %s is not yours", id)
	}
	return p, nil
}

// ListByBilling returns every payment of the bill to its owner and only the
// caller's own payments to a tenant.
func (s *PaymentService) ListByBilling(ctx context.Context, actor models.Actor, billingID string) ([]models.Payment, error) {
	b, err := s.billingRepo.GetByID(ctx, billingID)
	if err != nil {
		return nil, translate(err, "billing "+billingID)
	}
	if !canViewBilling(actor, b) {
		return nil, apperr.Forbidden("billing %s is not yours", billingID)
	}
	payments, err := s.paymentRepo.ListByBilling(ctx, billingID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list payments")
	}
	if actor.CanManage(b.OwnerID) {
		return payments, nil
	}
	own := payments[:0]
	for _, p := range payments {
		if p.TenantID == actor.UserID {
			own = append(own, p)
		}
	}
	return own, nil
}

func (s *PaymentService) ListMine(ctx context.Context, userID string) ([]models.Payment, error) {
	payments, err := s.paymentRepo.ListByTenant(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to list payments")
	}
	return payments, nil
}
