package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/jackc/pgx/v5"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notifColumns = `id, title, message, status, notification_type, receiver_id, created_at, updated_at`

const (
	qNotifInsert = `
INSERT INTO notifications (id, title, message, status, notification_type, receiver_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING ` + notifColumns + `;`

	qNotifByID = `SELECT ` + notifColumns + ` FROM notifications WHERE id = $1;`

	qNotifByReceiver = `
SELECT ` + notifColumns + `
FROM notifications
WHERE receiver_id = $1 AND ($2::notification_status IS NULL OR status = $2)
ORDER BY created_at DESC, id DESC;`

	qNotifMarkRead = `
UPDATE notifications
SET status = 'read',
    updated_at = CASE WHEN status = 'read' THEN updated_at ELSE now() END
WHERE id = $1
RETURNING ` + notifColumns + `;`

	qNotifMarkAllRead = `
UPDATE notifications
SET status = 'read', updated_at = now()
WHERE receiver_id = $1 AND status = 'unread';`
)

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n            notification.Notification
		status, kind string
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Message, &status, &kind, &n.ReceiverID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Status = notification.Status(status)
	n.Type = notification.Type(kind)
	return &n, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.execQueryer(ctx).QueryRow(ctx, qNotifInsert,
		n.ID, n.Title, n.Message, string(n.Status), string(n.Type), n.ReceiverID, n.CreatedAt)
	out, err := scanNotification(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return notification.ErrUnknownReceiver
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	*n = *out
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanNotification(r.db.execQueryer(ctx).QueryRow(ctx, qNotifByID, id))
}

func (r *NotificationRepo) ListByReceiver(ctx context.Context, receiverID string, status *notification.Status) ([]*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}

	rows, err := r.db.execQueryer(ctx).Query(ctx, qNotifByReceiver, receiverID, filter)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanNotification(r.db.execQueryer(ctx).QueryRow(ctx, qNotifMarkRead, id))
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qNotifMarkAllRead, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}
