package events

import (
	"encoding/json"
	"time"
)

const (
	TypePing                 = "ping"
	TypeStateChanged         = "state_changed"
	TypeActivityLogged       = "activity_logged"
	TypeNotificationReceived = "notification_received"
	TypeSessionChanged       = "session_changed"
	TypeConfigReloaded       = "config_reloaded"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// Parse decodes an envelope produced by MakeEvent.
func Parse(msg string) (Event, error) {
	var e Event
	err := json.Unmarshal([]byte(msg), &e)
	return e, err
}
