package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

const (
	// SchemaVersionV1 is the first version of the envelope schema.
	SchemaVersionV1 = 1

	// EventTypeRelayed marks an opencode server event forwarded by the relay.
	EventTypeRelayed = "opencode.event.relayed"
)

// Envelope is a transport-neutral wrapper around one server event.
type Envelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Source        EventSource    `json:"source"`
	SessionID     string         `json:"session_id,omitempty"`
	Event         opencode.Event `json:"event"`
}

// EventSource identifies the server an event was read from.
type EventSource struct {
	BaseURL   string `json:"base_url"`
	Directory string `json:"directory,omitempty"`
}

// NewEnvelope wraps event with a fresh id and the current time.
func NewEnvelope(event opencode.Event, source EventSource) *Envelope {
	return &Envelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRelayed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		SessionID:     event.SessionID(),
		Event:         event,
	}
}

// Key returns the partitioning key for the envelope: the session id when the
// event belongs to a session, otherwise the event type.
func (e *Envelope) Key() string {
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.Event.Type
}
