package handlers

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Time        time.Time `json:"time"`
	Environment string    `json:"environment"`
}

type HealthHandler struct {
	environment string
	responder   *Responder
	now         func() time.Time
}

func NewHealthHandler(environment string, responder *Responder) *HealthHandler {
	return &HealthHandler{environment: environment, responder: responder, now: time.Now}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.responder.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      StatusSuccess,
		Message:     "Server is healthy",
		Time:        h.now().UTC(),
		Environment: h.environment,
	})
}
