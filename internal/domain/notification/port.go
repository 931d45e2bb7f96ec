package notification

import "context"

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListByReceiver(ctx context.Context, receiverID string, status *Status) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) (*Notification, error)
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
}

// Events publishes ledger changes to downstream consumers.
type Events interface {
	PublishRecorded(ctx context.Context, n *Notification) error
}
