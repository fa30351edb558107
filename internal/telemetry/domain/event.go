package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the web server.
const (
	TypeCodeSent    = "verification.code_sent"
	TypeCodeChecked = "verification.code_checked"
	TypeCallPlaced  = "call.placed"
	TypeCallStatus  = "call.status"
	TypeLogout      = "session.logout"
)

// Event is a best-effort domain event. It is serialized as JSON onto Kafka.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	SessionID string          `json:"sessionId,omitempty"`
	CallSID   string          `json:"callSid,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent returns an event with a fresh ID and the current time. Metadata that fails to
// marshal is dropped.
func NewEvent(eventType, source string, metadata map[string]any) *Event {
	e := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			e.Metadata = b
		}
	}
	return e
}
