package dto

type LoginReq struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type RegisterReq struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128,password_rule"`
	Role     string `json:"role" validate:"omitempty,max=32"`
}

type RefreshReq struct {
	Token string `json:"token"`
}

// CreateBookingReq takes times as RFC 3339 or zone-less local ISO-8601.
// UserID is accepted from older clients and ignored; the caller's token decides.
type CreateBookingReq struct {
	ResourceID string  `json:"resourceId" validate:"required"`
	StartTime  string  `json:"startTime" validate:"required"`
	EndTime    string  `json:"endTime" validate:"required"`
	EventID    *string `json:"eventId,omitempty"`
	UserID     any     `json:"userId,omitempty"`
}

// CreateEventReq field rules live in domain.NewPendingEvent.
type CreateEventReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Venue       string `json:"venue"`
	OrganizerID any    `json:"organizerId,omitempty"`
}

type RejectEventReq struct {
	Reason string `json:"reason" validate:"max=1000"`
}
