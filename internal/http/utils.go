package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/relaypost/relaypost/internal/domain"
)

// writeJSON writes a JSON response with the given status code and data.
// It sets the Content-Type header to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError writes an error response shaped {"error": kind,
// "message": text}. It sets the Content-Type header to application/json.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorKind(statusCode),
		"message": message,
	})
}

// writeServiceError maps a service error to its HTTP representation.
func writeServiceError(w http.ResponseWriter, err error) {
	WriteJSONError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr.Status
	}
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	var quotaErr *domain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return http.StatusTooManyRequests
	}
	var senderErr *domain.SenderDomainError
	if errors.As(err, &senderErr) {
		return http.StatusForbidden
	}
	var validationErr domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorKind(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "quota_exceeded"
	default:
		return "internal_error"
	}
}
