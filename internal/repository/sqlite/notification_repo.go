package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NordCoder/tifi/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notifColumns = `id, title, message, status, notification_type, receiver_id, created_at, updated_at`

const (
	qNotifInsert = `
INSERT INTO notifications (id, title, message, status, notification_type, receiver_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`

	qNotifByID = `SELECT ` + notifColumns + ` FROM notifications WHERE id = ?;`

	qNotifByReceiver = `
SELECT ` + notifColumns + `
FROM notifications
WHERE receiver_id = ? AND (? IS NULL OR status = ?)
ORDER BY created_at DESC, rowid DESC;`

	qNotifMarkRead = `
UPDATE notifications
SET status = 'read',
    updated_at = CASE WHEN status = 'read' THEN updated_at ELSE ? END
WHERE id = ?
RETURNING ` + notifColumns + `;`

	qNotifMarkAllRead = `
UPDATE notifications
SET status = 'read', updated_at = ?
WHERE receiver_id = ? AND status = 'unread';`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var (
		n                notification.Notification
		status, kind     string
		created, updated int64
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Message, &status, &kind, &n.ReceiverID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Status = notification.Status(status)
	n.Type = notification.Type(kind)
	n.CreatedAt = fromNanos(created)
	n.UpdatedAt = fromNanos(updated)
	return &n, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = fromNanos(r.db.nowNanos())
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.CreatedAt
	ts := n.CreatedAt.UnixNano()

	_, err := r.db.querier(ctx).ExecContext(ctx, qNotifInsert,
		n.ID, n.Title, n.Message, string(n.Status), string(n.Type), n.ReceiverID, ts, ts)
	if err != nil {
		if isForeignKeyViolation(err) {
			return notification.ErrUnknownReceiver
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanNotification(r.db.querier(ctx).QueryRowContext(ctx, qNotifByID, id))
}

func (r *NotificationRepo) ListByReceiver(ctx context.Context, receiverID string, status *notification.Status) ([]*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var filter any
	if status != nil {
		filter = string(*status)
	}

	rows, err := r.db.querier(ctx).QueryContext(ctx, qNotifByReceiver, receiverID, filter, filter)
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

	return scanNotification(r.db.querier(ctx).QueryRowContext(ctx, qNotifMarkRead, r.db.nowNanos(), id))
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.querier(ctx).ExecContext(ctx, qNotifMarkAllRead, r.db.nowNanos(), receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}
