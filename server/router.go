package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venues-server/auth"
	"venues-server/config"
	"venues-server/logging"
	"venues-server/server/handlers"
)

type Router struct {
	venueHandler  *handlers.VenueHandler
	adminHandler  *handlers.AdminHandler
	healthHandler *handlers.HealthHandler
	authMW        *auth.Middleware
	responder     *handlers.Responder
	cfg           *config.Config
	router        *mux.Router
}

// NewRouter creates a router with the app's routes.
func NewRouter(
	venueHandler *handlers.VenueHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	authMW *auth.Middleware,
	responder *handlers.Responder,
	cfg *config.Config,
	router *mux.Router) *Router {
	return &Router{
		venueHandler:  venueHandler,
		adminHandler:  adminHandler,
		healthHandler: healthHandler,
		authMW:        authMW,
		responder:     responder,
		cfg:           cfg,
		router:        router,
	}
}

func (r *Router) RegisterRoutes() {
	r.router.Use(routeTemplate)
	r.router.NotFoundHandler = http.HandlerFunc(r.responder.NotFound)
	r.router.MethodNotAllowedHandler = http.HandlerFunc(r.responder.NotFound)

	r.router.HandleFunc("/health", r.healthHandler.Health).Methods(http.MethodGet)
	r.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.router.PathPrefix("/api").Subrouter()
	// expects ?category=&lat=&lng=&radius=&search=&openNow=&page=&limit=
	api.HandleFunc("/venues", r.venueHandler.ListVenues).Methods(http.MethodGet)
	api.HandleFunc("/venues/{id}", r.venueHandler.GetVenue).Methods(http.MethodGet)

	api.HandleFunc("/admin/login", r.adminHandler.Login).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMW.RequireAdmin)
	admin.HandleFunc("/dashboard-stats", r.adminHandler.DashboardStats).Methods(http.MethodGet)
	admin.HandleFunc("/dashboard-stats/chart", r.adminHandler.DashboardChart).Methods(http.MethodGet)

	writes := admin.PathPrefix("/venues").Subrouter()
	writes.Use(r.authMW.RestrictTo(auth.RoleAdmin, auth.RoleSuperAdmin))
	writes.HandleFunc("", r.venueHandler.CreateVenue).Methods(http.MethodPost)
	writes.HandleFunc("/{id}", r.venueHandler.UpdateVenue).Methods(http.MethodPatch)
	writes.HandleFunc("/{id}", r.venueHandler.DeleteVenue).Methods(http.MethodDelete)
}

// Handler returns the router wrapped in the middleware chain, outermost
// first: recovery, request logging, metrics, CORS, rate limit, body limit.
func (r *Router) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		Recovery(r.responder),
		RequestLogger(logging.Component("http")),
		PrometheusMetrics,
		CORS(r.cfg.Security.CORSOrigins),
		RateLimit(&r.cfg.Security, r.responder),
		MaxBody(r.cfg.Server.MaxBodyBytes),
	}

	var h http.Handler = r.router
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
