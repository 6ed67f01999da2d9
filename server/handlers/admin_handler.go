package handlers

import (
	"net/http"

	"venues-server/auth"
	"venues-server/models/stats"
	services "venues-server/service"
	"venues-server/util"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status string    `json:"status"`
	Token  string    `json:"token"`
	Data   LoginData `json:"data"`
}

type LoginData struct {
	Admin *auth.Admin `json:"admin"`
}

type DashboardResponse struct {
	Status string           `json:"status"`
	Data   *stats.Dashboard `json:"data"`
}

type AdminHandler struct {
	admins    *auth.AdminAuthenticator
	refresher *services.VenueStatsRefresherService
	responder *Responder
}

func NewAdminHandler(
	admins *auth.AdminAuthenticator,
	refresher *services.VenueStatsRefresherService,
	responder *Responder) *AdminHandler {
	return &AdminHandler{
		admins:    admins,
		refresher: refresher,
		responder: responder,
	}
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	token, admin, err := h.admins.Login(req.Username, req.Password)
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	h.responder.WriteJSON(w, http.StatusOK, LoginResponse{
		Status: StatusSuccess,
		Token:  token,
		Data:   LoginData{Admin: admin},
	})
}

// DashboardStats handles GET /api/admin/dashboard-stats.
func (h *AdminHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.refresher.Snapshot(r.Context())
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}
	h.responder.WriteJSON(w, http.StatusOK, DashboardResponse{Status: StatusSuccess, Data: dashboard})
}

// DashboardChart handles GET /api/admin/dashboard-stats/chart and renders
// the per-category counts as an HTML bar chart.
func (h *AdminHandler) DashboardChart(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.refresher.Snapshot(r.Context())
	if err != nil {
		h.responder.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := util.RenderCategoryChart(w, dashboard); err != nil {
		h.responder.logger.Error().Err(err).Msg("Failed to render chart")
	}
}
