package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/tifi/internal/domain/notification"
	"google.golang.org/protobuf/types/known/structpb"
)

const EventNotificationRecorded = "notification.recorded"

// NotificationEvents publishes ledger events as google.protobuf.Struct values keyed by receiver.
type NotificationEvents struct {
	p *Producer
}

func NewNotificationEvents(p *Producer) *NotificationEvents { return &NotificationEvents{p: p} }

var _ notification.Events = (*NotificationEvents)(nil)

func (e *NotificationEvents) PublishRecorded(ctx context.Context, n *notification.Notification) error {
	msg, err := RecordedEvent(n)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, []byte(n.ReceiverID), msg)
}

func RecordedEvent(n *notification.Notification) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"event":             EventNotificationRecorded,
		"id":                n.ID,
		"receiver_id":       n.ReceiverID,
		"title":             n.Title,
		"message":           n.Message,
		"status":            string(n.Status),
		"notification_type": string(n.Type),
		"created_at":        n.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("build recorded event: %w", err)
	}
	return msg, nil
}
