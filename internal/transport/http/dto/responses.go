package dto

import (
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

type AuthResp struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type TokenResp struct {
	Token string `json:"token"`
}

type BookingCreatedResp struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}

type BookingResp struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resourceId"`
	UserID     string    `json:"userId"`
	EventID    *string   `json:"eventId,omitempty"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

type EventResp struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	OrganizerID     string     `json:"organizerId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	Venue           string     `json:"venue"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
}

type EventCreatedResp struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type ReviewResp struct {
	Message    string `json:"message"`
	EventID    string `json:"event_id"`
	EventTitle string `json:"event_title"`
	Reason     string `json:"reason,omitempty"`
}

type DeleteEventResp struct {
	Message                string `json:"message"`
	CancelledRegistrations int    `json:"cancelled_registrations"`
}

type RegisteredResp struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	EventTitle string `json:"event_title"`
}

type MessageResp struct {
	Message string `json:"message"`
}

func ToAuthResp(u *domain.User, token string) AuthResp {
	return AuthResp{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role.String(),
		Token: token,
	}
}

func ToBookingResp(r *domain.Reservation) BookingResp {
	return BookingResp{
		ID:         r.ID,
		ResourceID: r.ResourceID,
		UserID:     r.UserID,
		EventID:    r.EventID,
		StartTime:  r.Interval.Start,
		EndTime:    r.Interval.End,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}

func ToBookingResps(in []*domain.Reservation) []BookingResp {
	out := make([]BookingResp, 0, len(in))
	for _, r := range in {
		out = append(out, ToBookingResp(r))
	}
	return out
}

func ToEventResp(e *domain.Event) EventResp {
	return EventResp{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		OrganizerID:     e.OrganizerID,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		Venue:           e.Venue,
		Status:          string(e.Status),
		CreatedAt:       e.CreatedAt,
		ReviewedAt:      e.ReviewedAt,
		RejectionReason: e.RejectionReason,
	}
}

func ToEventResps(in []*domain.Event) []EventResp {
	out := make([]EventResp, 0, len(in))
	for _, e := range in {
		out = append(out, ToEventResp(e))
	}
	return out
}
