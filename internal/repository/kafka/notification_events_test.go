package kafka

import (
	"testing"
	"time"

	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRecordedEvent_RoundTrip(t *testing.T) {
	n := &notification.Notification{
		ID:         "0190a0b0c0d07e8f9a0b1c2d3e4f5a6b",
		Title:      "Welcome to TiFi",
		Message:    "hello",
		Status:     notification.StatusUnread,
		Type:       notification.TypeSuccess,
		ReceiverID: "u1",
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	msg, err := RecordedEvent(n)
	require.NoError(t, err)

	raw, err := proto.Marshal(msg)
	require.NoError(t, err)
	var back structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &back))

	fields := back.AsMap()
	assert.Equal(t, EventNotificationRecorded, fields["event"])
	assert.Equal(t, "u1", fields["receiver_id"])
	assert.Equal(t, "success", fields["notification_type"])
	assert.Equal(t, "2024-05-01T12:00:00Z", fields["created_at"])
}

func TestHeaderCarrier(t *testing.T) {
	c := &headerCarrier{}
	assert.Empty(t, c.Get("traceparent"))

	c.Set("traceparent", "00-abc-def-01")
	c.Set("tracestate", "k=v")
	c.Set("traceparent", "00-abc-fed-01")

	assert.Equal(t, "00-abc-fed-01", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent", "tracestate"}, c.Keys())
	assert.Equal(t, []kafka.Header{
		{Key: "traceparent", Value: []byte("00-abc-fed-01")},
		{Key: "tracestate", Value: []byte("k=v")},
	}, c.headers)
}
