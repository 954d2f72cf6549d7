package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/campus-coord/internal/application/approval"
	"github.com/baechuer/campus-coord/internal/application/registration"
	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/transport/http/dto"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
	"github.com/baechuer/campus-coord/internal/transport/http/validate"
)

type EventsHandler struct {
	events        *approval.Service
	registrations *registration.Service
	loc           *time.Location
}

func NewEventsHandler(events *approval.Service, registrations *registration.Service, loc *time.Location) *EventsHandler {
	return &EventsHandler{events: events, registrations: registrations, loc: loc}
}

// List shows students approved events only; organizers and admins see all.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	items, err := h.events.List(r.Context(), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.ToEventResps(items))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.CreateEventReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	times, err := validate.Times(h.loc, map[string]string{
		"startTime": req.StartTime,
		"endTime":   req.EndTime,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}

	ev, err := h.events.Create(r.Context(), p, domain.EventDraft{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   times["startTime"],
		EndTime:     times["endTime"],
		Venue:       req.Venue,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.EventCreatedResp{
		ID:      ev.ID,
		Message: "Event created successfully and pending approval",
	})
}

func (h *EventsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.events.Approve(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.ReviewResp{
		Message:    "Event approved successfully",
		EventID:    res.EventID,
		EventTitle: res.EventTitle,
	})
}

// Reject takes an optional {"reason": "..."} body.
func (h *EventsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.RejectEventReq
	if err := validate.DecodeOptionalJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Err(w, r, err)
		return
	}

	res, err := h.events.Reject(r.Context(), chi.URLParam(r, "id"), p, req.Reason)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.ReviewResp{
		Message:    "Event rejected",
		EventID:    res.EventID,
		EventTitle: res.EventTitle,
		Reason:     res.Reason,
	})
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.events.Delete(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.DeleteEventResp{
		Message:                "Event deleted successfully",
		CancelledRegistrations: res.CancelledRegistrations,
	})
}

// Pending is the admin review queue.
func (h *EventsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	items, err := h.events.ListPending(r.Context(), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.ToEventResps(items))
}

func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.registrations.Register(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.RegisteredResp{
		ID:         res.ID,
		Message:    "Successfully registered for event",
		EventTitle: res.EventTitle,
	})
}

func (h *EventsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.registrations.Unregister(r.Context(), chi.URLParam(r, "id"), p); err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.MessageResp{Message: "Successfully unregistered from event"})
}

func (h *EventsHandler) Registered(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	items, err := h.registrations.ListMine(r.Context(), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.ToEventResps(items))
}

// Registrations is the roster, visible to the owning organizer or an admin.
func (h *EventsHandler) Registrations(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	roster, err := h.registrations.ListForEvent(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if roster.Registrations == nil {
		roster.Registrations = []domain.RosterEntry{}
	}
	response.OK(w, r, roster)
}
