package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rental-service/internal/apperr"
	"rental-service/internal/event"
	"rental-service/internal/metrics"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

type EmailSender interface {
	Send(to, name, title, body string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt event.NotificationEvent) error
}

// NotificationService records notifications and pushes them out over email
// and the broker. Only the record write can fail a call.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	userRepo         *repository.UserRepository
	email            EmailSender
	publisher        EventPublisher
	metrics          *metrics.Metrics
	now              func() time.Time
}

// NewNotificationService accepts nil email and publisher to disable those
// channels.
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	email EmailSender,
	publisher EventPublisher,
	m *metrics.Metrics,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		email:            email,
		publisher:        publisher,
		metrics:          m,
		now:              time.Now,
	}
}

func (s *NotificationService) Notify(ctx context.Context, userID string, msg models.Message) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      msg.Type,
		Title:     msg.Title,
		Body:      msg.Body,
		Data:      msg.Data,
		CreatedAt: s.now().Unix(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.count("record", "failure")
		return nil, apperr.Unexpected(err, "failed to record notification for %s", userID)
	}
	s.count("record", "success")

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		slog.Warn("notification recipient lookup failed", "user_id", userID, "error", err)
	}
	s.sendEmail(ctx, n, user)
	s.publish(ctx, n, user)
	return n, nil
}

// NotifyMany delivers msg to every recipient independently and reports how
// many records were written.
func (s *NotificationService) NotifyMany(ctx context.Context, userIDs []string, msg models.Message) int {
	sent := 0
	for _, id := range userIDs {
		if _, err := s.Notify(ctx, id, msg); err != nil {
			slog.Error("notification dispatch failed", "user_id", id, "type", msg.Type, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func (s *NotificationService) sendEmail(ctx context.Context, n *models.Notification, user *models.User) {
	if s.email == nil || user == nil || user.Email == "" {
		return
	}
	if err := s.email.Send(user.Email, user.FullName, n.Title, n.Body); err != nil {
		s.count("email", "failure")
		slog.Warn("notification email failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
		return
	}
	s.count("email", "success")
	n.EmailSent = true
	if err := s.notificationRepo.MarkEmailSent(ctx, n.ID); err != nil {
		slog.Warn("failed to flag notification email", "notification_id", n.ID, "error", err)
	}
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification, user *models.User) {
	if s.publisher == nil {
		return
	}
	evt := event.NotificationEvent{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           string(n.Type),
		Title:          n.Title,
		Body:           n.Body,
		Data:           n.Data,
		CreatedAt:      time.Unix(n.CreatedAt, 0).UTC(),
	}
	if user != nil {
		evt.Email = user.Email
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.count("broker", "failure")
		slog.Warn("notification publish failed", "notification_id", n.ID, "error", err)
		return
	}
	s.count("broker", "success")
}

func (s *NotificationService) count(channel, result string) {
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(channel, result).Inc()
	}
}

// Send is the admin broadcast of a general notification.
func (s *NotificationService) Send(ctx context.Context, actor models.Actor, req models.SendNotificationRequest) (int, error) {
	if !actor.IsAdmin() {
		return 0, apperr.Forbidden("only admins can send notifications")
	}
	if len(req.UserIDs) == 0 {
		return 0, apperr.InvalidInput("user_ids is required")
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		return 0, apperr.InvalidInput("title and body are required")
	}
	msg := models.Message{Type: models.NotificationGeneral, Title: req.Title, Body: req.Body, Data: req.Data}
	return s.NotifyMany(ctx, req.UserIDs, msg), nil
}

func (s *NotificationService) ListMine(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]models.Notification, int, error) {
	items, total, err := s.notificationRepo.ListByUser(ctx, userID, unreadOnly, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, apperr.Unexpected(err, "failed to list notifications")
	}
	return items, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	err := s.notificationRepo.MarkRead(ctx, id, userID, s.now().Unix())
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("notification %s not found", id)
	}
	if err != nil {
		return apperr.Unexpected(err, "failed to mark notification read")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notificationRepo.MarkAllRead(ctx, userID, s.now().Unix())
	if err != nil {
		return 0, apperr.Unexpected(err, "failed to mark notifications read")
	}
	return n, nil
}
