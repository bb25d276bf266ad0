package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rental-service/internal/apperr"
	redisdb "rental-service/internal/database/redis"
	"rental-service/internal/metrics"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

const sweepLockKey = "overdue-sweep"

// ErrSweepLocked is returned when another instance holds the sweep lock.
var ErrSweepLocked = errors.New("overdue sweep already running elsewhere")

type Releaser interface {
	Release(ctx context.Context) error
}

// Locker hands out a lease that keeps two instances from sweeping at once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Releaser, error)
}

type redisLocker struct {
	client *redisdb.Client
}

func NewRedisLocker(client *redisdb.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Releaser, error) {
	lock, err := l.client.Acquire(ctx, key, ttl)
	if errors.Is(err, redisdb.ErrLockHeld) {
		return nil, ErrSweepLocked
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

type SweepResult struct {
	Scanned       int `json:"scanned"`
	MarkedOverdue int `json:"marked_overdue"`
	RemindersSent int `json:"reminders_sent"`
}

// SweepService flags past-due bills as overdue and reminds whoever still
// owes on them. A reminder goes out at most once per bill, tenant and day.
type SweepService struct {
	billingRepo  *repository.BillingRepository
	reminderRepo *repository.ReminderRepository
	notifier     *NotificationService
	locker       Locker
	lockTTL      time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewSweepService accepts a nil locker for single-instance deployments.
func NewSweepService(
	billingRepo *repository.BillingRepository,
	reminderRepo *repository.ReminderRepository,
	notifier *NotificationService,
	locker Locker,
	lockTTL time.Duration,
	m *metrics.Metrics,
) *SweepService {
	return &SweepService{
		billingRepo:  billingRepo,
		reminderRepo: reminderRepo,
		notifier:     notifier,
		locker:       locker,
		lockTTL:      lockTTL,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, sweepLockKey, s.lockTTL)
		if errors.Is(err, ErrSweepLocked) {
			s.countRun("skipped")
			slog.Info("overdue sweep skipped, lock held elsewhere")
			return SweepResult{}, ErrSweepLocked
		}
		if err != nil {
			s.countRun("failure")
			return SweepResult{}, fmt.Errorf("failed to take sweep lock: %w", err)
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("failed to release sweep lock", "error", err)
			}
		}()
	}

	res, err := s.sweep(ctx)
	if err != nil {
		s.countRun("failure")
		return res, err
	}
	s.countRun("success")
	slog.Info("overdue sweep finished", "scanned", res.Scanned, "marked_overdue", res.MarkedOverdue, "reminders", res.RemindersSent)
	return res, nil
}

func (s *SweepService) sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()
	day := now.UTC().Format(time.DateOnly)

	bills, err := s.billingRepo.ListPastDue(ctx, now.Unix())
	if err != nil {
		return res, err
	}
	res.Scanned = len(bills)

	for i := range bills {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		b := &bills[i]
		if !b.AmountRemaining.IsPositive() {
			continue
		}
		if b.Status != models.BillingOverdue {
			flipped, err := s.billingRepo.MarkOverdue(ctx, b, now.Unix())
			if err != nil {
				slog.Error("failed to mark billing overdue", "billing_id", b.ID, "error", err)
				continue
			}
			if !flipped {
				slog.Debug("billing changed during sweep, skipped", "billing_id", b.ID)
				continue
			}
			res.MarkedOverdue++
			if s.metrics != nil {
				s.metrics.BillingsOverdue.Inc()
			}
		}
		res.RemindersSent += s.remind(ctx, b, day, now.Unix())
	}
	return res, nil
}

// remind sends one reminder per tenant still owing. The reminder log entry
// is written first so a rerun on the same day finds it and sends nothing.
func (s *SweepService) remind(ctx context.Context, b *models.Billing, day string, now int64) int {
	sent := 0
	for _, sub := range b.SubBills {
		if !sub.Amount.IsPositive() {
			continue
		}
		fresh, err := s.reminderRepo.TryRecord(ctx, b.ID, sub.TenantID, day, now)
		if err != nil {
			slog.Error("failed to record reminder", "billing_id", b.ID, "tenant_id", sub.TenantID, "error", err)
			continue
		}
		if !fresh {
			continue
		}
		msg := models.Message{
			Type:  models.NotificationOverdueReminder,
			Title: "Overdue bill for " + b.Period,
			Body: fmt.Sprintf("Your share of the %s bill is overdue. Still owed: %s.",
				b.Period, sub.Amount.StringFixed(2)),
			Data: map[string]any{
				"billing_id": b.ID,
				"period":     b.Period,
				"owed":       sub.Amount.StringFixed(2),
				"due_date":   time.Unix(b.DueDate, 0).UTC().Format(time.DateOnly),
			},
		}
		if _, err := s.notifier.Notify(ctx, sub.TenantID, msg); err != nil {
			slog.Warn("overdue reminder failed", "billing_id", b.ID, "tenant_id", sub.TenantID, "error", err)
			if err := s.reminderRepo.Forget(ctx, b.ID, sub.TenantID, day); err != nil {
				slog.Error("failed to clear reminder log", "billing_id", b.ID, "tenant_id", sub.TenantID, "error", err)
			}
			continue
		}
		sent++
		if s.metrics != nil {
			s.metrics.RemindersSent.Inc()
		}
	}
	return sent
}

func (s *SweepService) countRun(result string) {
	if s.metrics != nil {
		s.metrics.SweepRuns.WithLabelValues(result).Inc()
	}
}

// Trigger is the admin endpoint's entry to a sweep run.
func (s *SweepService) Trigger(ctx context.Context, actor models.Actor) (SweepResult, error) {
	if !actor.IsAdmin() {
		return SweepResult{}, apperr.Forbidden("only admins can run the sweep")
	}
	res, err := s.Run(ctx)
	if errors.Is(err, ErrSweepLocked) {
		return res, apperr.Conflict("%s", err.Error())
	}
	if err != nil {
		return res, apperr.Unexpected(err, "overdue sweep failed")
	}
	return res, nil
}
