// Package ledger records per-user notifications and their read state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/tifi/internal/domain/ident"
	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/NordCoder/tifi/internal/domain/user"
	"go.uber.org/zap"
)

var ErrEmptyTitle = errors.New("notification title is required")

// Spawner runs fn detached from the caller. dispatcher.Dispatcher implements it.
type Spawner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}

type Usecase struct {
	repo   notification.Repo
	users  user.Repo
	events notification.Events
	spawn  Spawner
	log    *zap.Logger
	clk    func() time.Time
}

type Option func(*Usecase)

// WithEvents publishes a recorded event after every successful Record.
func WithEvents(e notification.Events, s Spawner) Option {
	return func(u *Usecase) {
		u.events = e
		u.spawn = s
	}
}

func WithClock(clk func() time.Time) Option {
	return func(u *Usecase) { u.clk = clk }
}

func New(repo notification.Repo, users user.Repo, log *zap.Logger, opts ...Option) *Usecase {
	u := &Usecase{
		repo:  repo,
		users: users,
		log:   log.With(zap.String("component", "ledger")),
		clk:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Record stores a new unread notification for receiverID.
// An empty type takes the default; an unknown receiver yields ErrUnknownReceiver.
func (u *Usecase) Record(ctx context.Context, receiverID, title, message string, typ notification.Type) (*notification.Notification, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	if typ == "" {
		typ = notification.TypeSuccess
	}
	if !typ.Valid() {
		return nil, notification.ErrInvalidType
	}

	if _, err := u.users.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, notification.ErrUnknownReceiver
		}
		return nil, fmt.Errorf("lookup receiver: %w", err)
	}

	now := u.clk()
	n := &notification.Notification{
		ID:         ident.New(),
		Title:      title,
		Message:    message,
		Status:     notification.StatusUnread,
		Type:       typ,
		ReceiverID: receiverID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.repo.Create(ctx, n); err != nil {
		if errors.Is(err, notification.ErrUnknownReceiver) {
			return nil, err
		}
		return nil, fmt.Errorf("record notification: %w", err)
	}

	u.publish(ctx, n)
	return n, nil
}

func (u *Usecase) publish(ctx context.Context, n *notification.Notification) {
	if u.events == nil || u.spawn == nil {
		return
	}
	ev := *n
	u.spawn.Go(ctx, "event:notification.recorded", func(ctx context.Context) error {
		return u.events.PublishRecorded(ctx, &ev)
	})
}

// MarkRead flips id to read on behalf of requesterID. Re-marking a read row is a no-op.
func (u *Usecase) MarkRead(ctx context.Context, id, requesterID string) (*notification.Notification, error) {
	cur, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.ReceiverID != requesterID {
		return nil, notification.ErrForbidden
	}
	if cur.IsRead() {
		return cur, nil
	}
	n, err := u.repo.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	u.log.Debug("notification read", zap.String("id", id), zap.String("receiver", requesterID))
	return n, nil
}

// MarkAllRead flips every unread notification of userID and returns how many changed.
func (u *Usecase) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return u.repo.MarkAllRead(ctx, userID)
}

// ListForUser returns userID's notifications newest first, optionally filtered by status.
func (u *Usecase) ListForUser(ctx context.Context, userID string, status *notification.Status) ([]*notification.Notification, error) {
	if status != nil && !status.Valid() {
		return nil, notification.ErrInvalidStatus
	}
	return u.repo.ListByReceiver(ctx, userID, status)
}
