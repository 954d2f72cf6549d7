package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventApproved EventStatus = "approved"
	EventRejected EventStatus = "rejected"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventPending, EventApproved, EventRejected:
		return true
	}
	return false
}

type Event struct {
	ID          string
	Title       string
	Description string
	OrganizerID string
	StartTime   time.Time
	EndTime     time.Time
	Venue       string
	Status      EventStatus
	CreatedAt   time.Time

	ReviewedBy      *string
	ReviewedAt      *time.Time
	RejectionReason *string
	DeletedAt       *time.Time
}

// EventDraft is the organizer's input for a new event.
type EventDraft struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Venue       string
}

// NewPendingEvent validates the draft and returns an event awaiting review.
// All field problems are reported together.
func NewPendingEvent(organizerID string, d EventDraft, now time.Time) (*Event, error) {
	organizerID = strings.TrimSpace(organizerID)
	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	venue := strings.TrimSpace(d.Venue)

	fields := map[string]string{}
	if organizerID == "" {
		fields["organizerId"] = "Organizer ID is required"
	}
	if n := utf8.RuneCountInString(title); n < 3 || n > 255 {
		fields["title"] = "Title must be between 3 and 255 characters"
	}
	if n := utf8.RuneCountInString(description); n < 10 || n > 5000 {
		fields["description"] = "Description must be between 10 and 5000 characters"
	}
	if venue == "" {
		fields["venue"] = "Venue is required"
	} else if utf8.RuneCountInString(venue) > 255 {
		fields["venue"] = "Venue must not exceed 255 characters"
	}
	switch {
	case d.StartTime.IsZero():
		fields["startTime"] = "Start time is required"
	case d.EndTime.IsZero():
		fields["endTime"] = "End time is required"
	case !d.EndTime.After(d.StartTime):
		fields["endTime"] = "End time must be after start time"
	}
	if len(fields) > 0 {
		return nil, ErrValidationFailed(fields)
	}

	return &Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		OrganizerID: organizerID,
		StartTime:   d.StartTime.UTC(),
		EndTime:     d.EndTime.UTC(),
		Venue:       venue,
		Status:      EventPending,
		CreatedAt:   now.UTC(),
	}, nil
}

// Approve is idempotent. It reports whether the status changed.
func (e *Event) Approve(reviewerID string, now time.Time) bool {
	changed := e.Status != EventApproved
	t := now.UTC()
	e.Status = EventApproved
	e.ReviewedBy = &reviewerID
	e.ReviewedAt = &t
	e.RejectionReason = nil
	return changed
}

// Reject records the advisory reason. It reports whether the status changed.
func (e *Event) Reject(reviewerID, reason string, now time.Time) bool {
	changed := e.Status != EventRejected
	t := now.UTC()
	e.Status = EventRejected
	e.ReviewedBy = &reviewerID
	e.ReviewedAt = &t
	if r := strings.TrimSpace(reason); r != "" {
		e.RejectionReason = &r
	} else {
		e.RejectionReason = nil
	}
	return changed
}

func (e *Event) IsApproved() bool { return e.Status == EventApproved }

func (e *Event) IsDeleted() bool { return e.DeletedAt != nil }
