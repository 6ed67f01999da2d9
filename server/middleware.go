package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"venues-server/config"
	"venues-server/metrics"
	"venues-server/server/handlers"
)

const REQUEST_ID_HEADER = "X-Request-ID"

// unmatchedRoute labels requests no route matched, keeping the metric
// cardinality bounded.
const unmatchedRoute = "unmatched"

type routeKey struct{}

// statusRecorder captures the status code written downstream.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery turns a panic into a 500 envelope.
func Recovery(responder *handlers.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					responder.WriteError(w, r, fmt.Errorf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger assigns a request id and writes one log line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(REQUEST_ID_HEADER)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(REQUEST_ID_HEADER, requestID)

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			event := logger.Info()
			if rec.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.statusCode).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// PrometheusMetrics records request count and latency labelled by the
// matched route template.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := unmatchedRoute
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), routeKey{}, &route)))

		metrics.RecordAPIRequest(r.Method, route, rec.statusCode, time.Since(start))
	})
}

// routeTemplate is installed on the mux router and reports the matched
// template back to PrometheusMetrics.
func routeTemplate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route, ok := r.Context().Value(routeKey{}).(*string); ok {
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					*route = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CORS allows the configured origins for the admin dashboard and map client.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", REQUEST_ID_HEADER},
		ExposedHeaders:   []string{REQUEST_ID_HEADER},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// RateLimit limits requests per client IP over a fixed window.
func RateLimit(cfg *config.SecurityConfig, responder *handlers.Responder) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.Inc()
			responder.WriteJSON(w, http.StatusTooManyRequests, handlers.ErrorBody{
				Status:  handlers.StatusFail,
				Message: "Too many requests from this IP, please try again later.",
			})
		}),
	)
}

// MaxBody caps request bodies on write methods.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPatch, http.MethodPut:
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
