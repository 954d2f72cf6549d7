package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

// Reservations are confirmed on creation; there is no pending state.
const ReservationConfirmed ReservationStatus = "confirmed"

type Reservation struct {
	ID         string
	ResourceID string
	UserID     string
	EventID    *string
	Interval   Interval
	Status     ReservationStatus
	CreatedAt  time.Time
}

func NewReservation(userID, resourceID string, iv Interval, eventID *string, now time.Time) (*Reservation, error) {
	userID = strings.TrimSpace(userID)
	resourceID = strings.TrimSpace(resourceID)
	if userID == "" {
		return nil, ErrMissingField("userId")
	}
	if resourceID == "" {
		return nil, ErrMissingField("resourceId")
	}
	if eventID != nil && strings.TrimSpace(*eventID) == "" {
		eventID = nil
	}
	return &Reservation{
		ID:         uuid.NewString(),
		ResourceID: resourceID,
		UserID:     userID,
		EventID:    eventID,
		Interval:   iv,
		Status:     ReservationConfirmed,
		CreatedAt:  now.UTC(),
	}, nil
}

// Resource is a bookable asset. The core only reads it.
type Resource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Capacity  *int      `json:"capacity,omitempty"`
	Location  string    `json:"location"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
