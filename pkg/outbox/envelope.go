package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// TaskMessage is what the publisher hands to the task queue for one outbox row.
type TaskMessage struct {
	OutboxID      uuid.UUID                 `json:"outboxId"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
	Envelope      PayloadEnvelope           `json:"envelope"`
}
