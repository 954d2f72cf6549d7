package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/campus-coord/internal/application/catalog"
	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
)

type ResourcesHandler struct {
	svc *catalog.Service
}

func NewResourcesHandler(svc *catalog.Service) *ResourcesHandler {
	return &ResourcesHandler{svc: svc}
}

func (h *ResourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListResources(r.Context())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Resource{}
	}
	response.OK(w, r, items)
}

// Availability: GET /resources/{id}/availability?date=YYYY-MM-DD
func (h *ResourcesHandler) Availability(w http.ResponseWriter, r *http.Request) {
	av, err := h.svc.Availability(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("date"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, av)
}
