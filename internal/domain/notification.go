package domain

import (
	"fmt"
	"time"
)

// NotificationType is what the backend reports during a notification poll.
type NotificationType string

const (
	NotificationRejected   NotificationType = "rejected"
	NotificationNoResponse NotificationType = "no_response"
)

func (t NotificationType) Valid() bool {
	return t == NotificationRejected || t == NotificationNoResponse
}

func (t NotificationType) Title() string {
	switch t {
	case NotificationRejected:
		return "Application Rejected"
	case NotificationNoResponse:
		return "No Response"
	}
	return string(t)
}

func (t NotificationType) Icon() string {
	switch t {
	case NotificationRejected:
		return "xmark.circle.fill"
	case NotificationNoResponse:
		return "clock.badge.exclamationmark.fill"
	}
	return "bell"
}

func (t NotificationType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown notification type %q", string(t))
	}
	return []byte(t), nil
}

func (t *NotificationType) UnmarshalText(b []byte) error {
	v := NotificationType(b)
	if !v.Valid() {
		return fmt.Errorf("unknown notification type %q", string(b))
	}
	*t = v
	return nil
}

// AppNotification is owned by the notification scheduler. IsRead is local
// only and never sent back to the server.
type AppNotification struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"applicationId"`
	Type          NotificationType `json:"type"`
	OccurredAt    time.Time        `json:"occurredAt"`
	Note          string           `json:"note"`
	IsRead        bool             `json:"isRead"`
}

// ActivityLogged is emitted after the server accepted a new activity.
type ActivityLogged struct {
	ApplicationID string       `json:"applicationId"`
	Type          ActivityType `json:"type"`
	OccurredAt    time.Time    `json:"occurredAt"`
	Company       string       `json:"company"`
	Role          string       `json:"role"`
}
