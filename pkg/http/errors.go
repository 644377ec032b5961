package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cbaird/gatehouse/internal/models"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable error code
	Message string `json:"message"`           // Human-readable message
	Details string `json:"details,omitempty"` // Optional additional context
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(resp)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// WriteDomainError maps a sentinel error from the service layer to its HTTP
// representation. Locked, deleted, and unverified accounts are reported with
// their own codes since they carry actionable remediation; invalid
// credentials stay deliberately vague.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, models.ErrAccountLocked):
		WriteError(w, http.StatusForbidden, "account_locked", "Account is temporarily locked due to failed login attempts. Try again later.")
	case errors.Is(err, models.ErrAccountDeleted):
		WriteError(w, http.StatusForbidden, "account_deleted", "This account has been deleted. Contact support for restoration.")
	case errors.Is(err, models.ErrAccountInactive):
		WriteError(w, http.StatusForbidden, "account_inactive", "Account is not active. Contact support.")
	case errors.Is(err, models.ErrEmailNotVerified):
		WriteError(w, http.StatusForbidden, "email_not_verified", "Please verify your email before logging in.")
	case errors.Is(err, models.ErrTokenExpired):
		WriteError(w, http.StatusUnauthorized, "token_expired", "This link has expired. Request a new one.")
	case errors.Is(err, models.ErrTokenPurposeMismatch), errors.Is(err, models.ErrTokenInvalid):
		WriteError(w, http.StatusUnauthorized, "token_invalid", "Invalid link")
	case errors.Is(err, models.ErrDispatchFailed):
		WriteError(w, http.StatusBadGateway, "dispatch_failed", "Failed to send email. Please try again.")
	case errors.Is(err, models.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "Validation failed")
	case errors.Is(err, models.ErrNotFound):
		WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		WriteConflict(w, "Resource already exists")
	default:
		WriteInternalError(w, "Internal server error")
	}
}
