package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/iho/clienttx/internal/adapter/http/dto"
	"github.com/iho/clienttx/internal/domain"
	"github.com/iho/clienttx/internal/usecase"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status and rejection code it maps to.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := mapDomainError(err)

	resp := dto.ErrorResponse{
		Error:   message,
		Message: err.Error(),
	}
	if status == http.StatusUnprocessableEntity {
		resp.Code = domain.RejectionReason(err)
	}

	var vErr *dto.ValidationError
	if errors.As(err, &vErr) {
		resp.Details = vErr.Fields
	}

	writeJSON(w, status, resp)
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	var vErr *dto.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrMissingIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrClientTransactionNotFound):
		return http.StatusNotFound
	case domain.RejectionReason(err) != domain.ReasonUnknown:
		return http.StatusUnprocessableEntity
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

// parseTimeQuery parses an optional RFC 3339 query parameter.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp: %w", key, err)
	}
	t = t.UTC()
	return &t, nil
}
