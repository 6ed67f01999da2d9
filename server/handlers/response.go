package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"venues-server/apperrors"
	"venues-server/logging"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// ErrorBody is the envelope of every non-2xx response.
type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Responder writes JSON envelopes. In development, 5xx bodies carry the
// underlying error text.
type Responder struct {
	dev    bool
	logger zerolog.Logger
}

func NewResponder(dev bool) *Responder {
	return &Responder{dev: dev, logger: logging.Component("http")}
}

func (rs *Responder) WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Error().Err(err).Msg("Error encoding response")
	}
}

// WriteError maps err to a status code and envelope. Errors outside the
// apperrors taxonomy are treated as internal.
func (rs *Responder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewStoreError("internal error", err)
	}

	status := appErr.StatusCode()
	if status < http.StatusInternalServerError {
		rs.WriteJSON(w, status, ErrorBody{Status: StatusFail, Message: appErr.Message, Field: appErr.Field})
		return
	}

	rs.logger.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Request failed")

	body := ErrorBody{Status: StatusError, Message: "Something went very wrong!"}
	if rs.dev {
		body.Error = err.Error()
	}
	rs.WriteJSON(w, status, body)
}

// NotFound is the catch-all for unknown routes.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.WriteJSON(w, http.StatusNotFound, ErrorBody{
		Status:  StatusFail,
		Message: "Can't find " + r.URL.Path + " on this server!",
	})
}

// decodeBody reads a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apperrors.NewValidationError("body", "Request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewValidationError("body", "Request body too large")
		}
		if appErr, ok := apperrors.As(err); ok {
			return appErr
		}
		return apperrors.NewValidationError("body", "Invalid JSON body")
	}
	return nil
}
