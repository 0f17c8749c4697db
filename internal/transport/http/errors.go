package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"accountd/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error       string `json:"error"`
	Requires2FA bool   `json:"requires2FA,omitempty"`
}

// writeError maps domain errors onto the wire. Everything unrecognized is a
// 500 with a generic message; internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid credentials"})
	case errors.Is(err, domain.ErrInvalidCode):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid verification code"})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "User already exists"})
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid or expired token"})
	case errors.Is(err, domain.ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Token expired"})
	case errors.Is(err, domain.ErrTokenMalformed):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid token"})
	case errors.Is(err, domain.ErrNotPending):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "2FA not pending"})
	case errors.Is(err, domain.ErrTwoFactorConfigured):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "2FA is already configured"})
	case errors.Is(err, domain.ErrTwoFactorNotConfigured):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "2FA is not configured"})
	case errors.Is(err, domain.ErrUnknownTwoFactorMethod):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Unknown 2FA method"})
	case errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "User not found"})
	case errors.Is(err, domain.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "Authentication failed"})
	default:
		slog.Default().Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}
