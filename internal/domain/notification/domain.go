package notification

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("notification not found")
	ErrForbidden       = errors.New("notification belongs to another user")
	ErrUnknownReceiver = errors.New("receiver does not exist")
	ErrInvalidStatus   = errors.New("invalid notification status")
	ErrInvalidType     = errors.New("invalid notification type")
)

// Status is the read state of a notification. Only unread -> read is allowed.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

func (s Status) Valid() bool { return s == StatusUnread || s == StatusRead }

// ParseStatus maps an empty string to StatusUnread.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusUnread, nil
	}
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

type Type string

const (
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
)

func (t Type) Valid() bool {
	switch t {
	case TypeWarning, TypeInfo, TypeSuccess:
		return true
	}
	return false
}

// ParseType maps an empty string to TypeSuccess.
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeSuccess, nil
	}
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

type Notification struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Status     Status    `json:"status"`
	Type       Type      `json:"notification_type"`
	ReceiverID string    `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (n *Notification) IsRead() bool { return n.Status == StatusRead }
