package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EnvelopeVersion = 1
	Producer        = "campus-coord"
)

// Routing keys for messages written to the outbox.
const (
	RKReservationConfirmed  = "reservation.confirmed"
	RKEventCreated          = "event.created"
	RKEventApproved         = "event.approved"
	RKEventRejected         = "event.rejected"
	RKEventDeleted          = "event.deleted"
	RKRegistrationCreated   = "registration.created"
	RKRegistrationCancelled = "registration.cancelled"
)

// Envelope is the wire contract for every published domain event.
type Envelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	MessageID  string    `json:"message_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

// OutboxMessage is written in the same transaction as the state change it describes.
type OutboxMessage struct {
	MessageID  string
	RoutingKey string
	Body       []byte
	CreatedAt  time.Time
}

func NewOutboxMessage[T any](routingKey, traceID string, payload T, now time.Time) (OutboxMessage, error) {
	env := Envelope[T]{
		Version:    EnvelopeVersion,
		Producer:   Producer,
		MessageID:  uuid.NewString(),
		TraceID:    traceID,
		OccurredAt: now.UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return OutboxMessage{}, ErrInternal(err)
	}
	return OutboxMessage{
		MessageID:  env.MessageID,
		RoutingKey: routingKey,
		Body:       body,
		CreatedAt:  env.OccurredAt,
	}, nil
}

type ReservationPayload struct {
	ReservationID string    `json:"reservation_id"`
	ResourceID    string    `json:"resource_id"`
	UserID        string    `json:"user_id"`
	EventID       string    `json:"event_id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

type EventPayload struct {
	EventID     string    `json:"event_id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	ActorID     string    `json:"actor_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

func NewEventPayload(e *Event, actorID string) EventPayload {
	p := EventPayload{
		EventID:     e.ID,
		OrganizerID: e.OrganizerID,
		Title:       e.Title,
		Status:      string(e.Status),
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		ActorID:     actorID,
	}
	if e.RejectionReason != nil {
		p.Reason = *e.RejectionReason
	}
	return p
}

type RegistrationPayload struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
}
