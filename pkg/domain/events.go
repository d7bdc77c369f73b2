package domain

import (
	"encoding/json"
	"fmt"
)

// EventEnvelope is the wire shape of every message published from the outbox.
// EventID is filled in by the outbox worker.
type EventEnvelope struct {
	Event   string          `json:"event"`
	EventID int64           `json:"event_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload under the event name, ready to be stored in
// the outbox.
func NewEnvelope(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("event payload marshal error: %w", err)
	}

	return json.Marshal(EventEnvelope{
		Event:   event,
		Payload: raw,
	})
}
