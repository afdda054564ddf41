package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"trackra-engine/internal/appstate"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/notify"
	"trackra-engine/internal/session"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeFailure maps engine and gateway errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, gateway.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, gateway.ErrServerRejected):
		status, code = http.StatusUnprocessableEntity, "server_rejected"
	case errors.Is(err, gateway.ErrUnreachable):
		status, code = http.StatusBadGateway, "unreachable"
	case errors.Is(err, gateway.ErrMalformedResponse):
		status, code = http.StatusBadGateway, "malformed_response"
	case errors.Is(err, gateway.ErrInvalidRequest), errors.Is(err, appstate.ErrInvalidInput),
		errors.Is(err, session.ErrMissingCredentials):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, appstate.ErrUnknownApplication), errors.Is(err, notify.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	}
	WriteError(w, r, status, code, gateway.Describe(err))
}
