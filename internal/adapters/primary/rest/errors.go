package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/pkg/api"
)

// mapDomainError traduit une erreur du domaine en statut HTTP + code stable.
func mapDomainError(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrMediaTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, api.CodePayloadTooLarge
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, api.CodeValidation
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, api.CodeUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, api.CodeNotFound
	case errors.Is(err, domain.ErrEmailAlreadyExists),
		errors.Is(err, domain.ErrUsernameAlreadyExists):
		return http.StatusConflict, api.CodeConflict
	default:
		return http.StatusInternalServerError, api.CodeInternal
	}
}

// writeError : les 5xx sont loggés avec le request id et masqués au client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, api.ErrorResponse{Message: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}
