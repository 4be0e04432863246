package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who or what produced the event.
type ActorRef struct {
	Subject string `json:"subject"`
	Kind    string `json:"kind,omitempty"`
}

// SystemActor marks events produced by background jobs.
func SystemActor(job string) *ActorRef {
	return &ActorRef{Subject: job, Kind: "system"}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
