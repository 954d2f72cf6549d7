package domain

import (
	"time"

	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// Registration rows are never deleted; cancelling keeps the history.
type Registration struct {
	ID           string
	EventID      string
	UserID       string
	Status       RegistrationStatus
	RegisteredAt time.Time
	CancelledAt  *time.Time
}

func NewRegistration(eventID, userID string, now time.Time) *Registration {
	return &Registration{
		ID:           uuid.NewString(),
		EventID:      eventID,
		UserID:       userID,
		Status:       RegistrationActive,
		RegisteredAt: now.UTC(),
	}
}

func (r *Registration) Cancel(now time.Time) {
	t := now.UTC()
	r.Status = RegistrationCancelled
	r.CancelledAt = &t
}

// RosterEntry is an active registration joined with the registrant's identity.
type RosterEntry struct {
	RegistrationID string    `json:"registration_id"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	UserEmail      string    `json:"user_email"`
	RegisteredAt   time.Time `json:"registered_at"`
}
