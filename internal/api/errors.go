package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/impact"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// domainError maps the tracker's sentinel errors onto HTTP status codes.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, impact.ErrValidation):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, impact.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
