package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/finvault/vaultledger/internal/adapter/http/dto"
	"github.com/finvault/vaultledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrVaultStateNotFound),
		errors.Is(err, domain.ErrUserHoldingNotFound),
		errors.Is(err, domain.ErrAssetHoldingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrReversalConflict),
		errors.Is(err, domain.ErrReversalOfReversal),
		errors.Is(err, domain.ErrImmutableEntry):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConcurrencyTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseBoolQuery parses a boolean query parameter, false when absent or
// malformed.
func parseBoolQuery(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}
