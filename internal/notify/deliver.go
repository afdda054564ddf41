package notify

import (
	"context"
	"log"

	"trackra-engine/internal/events"
)

// Alert is what gets shown to the user for a new notification or a due
// reminder.
type Alert struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"` // notification | reminder
	Title string `json:"title"`
	Body  string `json:"body"`
	Badge int    `json:"badge"`
}

// Deliverer surfaces alerts outside the engine, e.g. as desktop
// notifications rendered by the UI.
type Deliverer interface {
	Deliver(ctx context.Context, a Alert) error
}

// HubDeliverer publishes alerts as notification_received events; the UI
// picks them up from the SSE stream.
type HubDeliverer struct {
	Hub *events.Hub
}

func (d HubDeliverer) Deliver(_ context.Context, a Alert) error {
	d.Hub.Publish(events.MakeEvent("", events.TypeNotificationReceived, 1, a))
	return nil
}

// LogDeliverer only writes alerts to the log.
type LogDeliverer struct {
	Logger Logger
}

func (d LogDeliverer) Deliver(_ context.Context, a Alert) error {
	l := d.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("[notify] %s %q: %s (badge=%d)", a.Kind, a.Title, a.Body, a.Badge)
	return nil
}

// Multi delivers to every deliverer and returns the first error.
type Multi []Deliverer

func (m Multi) Deliver(ctx context.Context, a Alert) error {
	var first error
	for _, d := range m {
		if err := d.Deliver(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}
