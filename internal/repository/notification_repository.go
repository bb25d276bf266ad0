package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const notificationColumns = `id, user_id, type, title, body, data, is_read, email_sent, created_at, read_at`

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :user_id, :type, :title, :body, :data, :is_read, :email_sent, :created_at, :read_at)`
	if _, err := namedExec(ctx, r.db, query, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := get(ctx, r.db, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) MarkEmailSent(ctx context.Context, id string) error {
	query := `UPDATE notifications SET email_sent = ? WHERE id = ?`
	if err := utils.ExecWithCheck(ctx, r.db, query, utils.ExecUpdate, true, id); err != nil {
		return fmt.Errorf("failed to flag notification email: %w", err)
	}
	return nil
}

// ListByUser returns one page of the user's notifications, newest first, and
// the total matching.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error) {
	where, args := " WHERE user_id = ?", []any{userID}
	if unreadOnly {
		where, args = where+" AND is_read = ?", append(args, false)
	}

	var total int
	if err := get(ctx, r.db, &total, `SELECT COUNT(*) FROM notifications`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	items := []models.Notification{}
	query := `SELECT ` + notificationColumns + ` FROM notifications` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	if err := selectAll(ctx, r.db, &items, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead flags one of userID's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, now int64) error {
	query := `UPDATE notifications SET is_read = ?, read_at = ? WHERE id = ? AND user_id = ?`
	err := utils.ExecWithCheck(ctx, r.db, query, utils.ExecUpdate, true, now, id, userID)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, now int64) (int64, error) {
	query := `UPDATE notifications SET is_read = ?, read_at = ? WHERE user_id = ? AND is_read = ?`
	n, err := utils.ExecAffected(ctx, r.db, query, true, now, userID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
