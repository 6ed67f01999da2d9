package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"venues-server/models/venue"
	services "venues-server/service"
)

// ID_PATH_VAR is the route variable holding a venue id.
const ID_PATH_VAR = "id"

// Pagination describes the page returned by a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// VenueListResponse is the body of GET /api/venues.
type VenueListResponse struct {
	Status     string        `json:"status"`
	Results    int           `json:"results"`
	Total      int64         `json:"total"`
	Data       []venue.Venue `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// VenueResponse wraps a single venue.
type VenueResponse struct {
	Status string       `json:"status"`
	Data   *venue.Venue `json:"data"`
}

type VenueHandler struct {
	venueService *services.VenueService
	responder    *Responder
}

func NewVenueHandler(venueService *services.VenueService, responder *Responder) *VenueHandler {
	return &VenueHandler{venueService: venueService, responder: responder}
}

// ListVenues handles GET /api/venues.
// Accepts category, lat, lng, radius, search, openNow, page and limit.
func (h *VenueHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	result, err := h.venueService.ListVenues(r.Context(), r.URL.Query())
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []venue.Venue{}
	}
	h.responder.WriteJSON(w, http.StatusOK, VenueListResponse{
		Status:  StatusSuccess,
		Results: len(items),
		Total:   result.TotalMatching,
		Data:    items,
		Pagination: Pagination{
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

// GetVenue handles GET /api/venues/{id}.
func (h *VenueHandler) GetVenue(w http.ResponseWriter, r *http.Request) {
	v, err := h.venueService.GetVenue(r.Context(), mux.Vars(r)[ID_PATH_VAR])
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	h.responder.WriteJSON(w, http.StatusOK, VenueResponse{Status: StatusSuccess, Data: v})
}

// CreateVenue handles POST /api/admin/venues.
func (h *VenueHandler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var input services.VenueInput
	if err := decodeBody(r, &input); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	v, err := h.venueService.CreateVenue(r.Context(), input)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	h.responder.WriteJSON(w, http.StatusCreated, VenueResponse{Status: StatusSuccess, Data: v})
}

// UpdateVenue handles PATCH /api/admin/venues/{id}.
func (h *VenueHandler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	var input services.VenueInput
	if err := decodeBody(r, &input); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	v, err := h.venueService.UpdateVenue(r.Context(), mux.Vars(r)[ID_PATH_VAR], input)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	h.responder.WriteJSON(w, http.StatusOK, VenueResponse{Status: StatusSuccess, Data: v})
}

// DeleteVenue handles DELETE /api/admin/venues/{id}.
func (h *VenueHandler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	if err := h.venueService.DeleteVenue(r.Context(), mux.Vars(r)[ID_PATH_VAR]); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
