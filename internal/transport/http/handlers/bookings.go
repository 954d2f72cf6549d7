package handlers

import (
	"net/http"
	"time"

	"github.com/baechuer/campus-coord/internal/application/reservation"
	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/metrics"
	"github.com/baechuer/campus-coord/internal/transport/http/dto"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
	"github.com/baechuer/campus-coord/internal/transport/http/validate"
)

type BookingsHandler struct {
	svc *reservation.Service
	loc *time.Location
}

func NewBookingsHandler(svc *reservation.Service, loc *time.Location) *BookingsHandler {
	return &BookingsHandler{svc: svc, loc: loc}
}

func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.CreateBookingReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
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

	res, err := h.svc.Create(r.Context(), p, reservation.CreateCmd{
		ResourceID: req.ResourceID,
		Start:      times["startTime"],
		End:        times["endTime"],
		EventID:    req.EventID,
	})
	if err != nil {
		metrics.RecordReservation(outcomeOf(err))
		response.Err(w, r, err)
		return
	}
	metrics.RecordReservation("created")
	response.OK(w, r, dto.BookingCreatedResp{BookingID: res.ID, Status: "CONFIRMED"})
}

func (h *BookingsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.ListMine(r.Context(), p)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.ToBookingResps(rows))
}

func outcomeOf(err error) string {
	switch domain.KindOf(err) {
	case domain.KindConflict:
		return "conflict"
	case domain.KindValidation, domain.KindNotFound, domain.KindForbidden:
		return "rejected"
	default:
		return "error"
	}
}
