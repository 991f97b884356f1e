package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes data as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteErrorWithDetails writes a structured JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

// Common error codes
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidState       = "INVALID_STATE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeRetryLater         = "RETRY_LATER"
	CodeNotificationFailed = "NOTIFICATION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidToken       = "INVALID_TOKEN"
)

// FromError maps a service error onto a status code and error body. Anything
// unrecognised is logged and reported as a generic 500.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *domain.ValidationError
		serr  *domain.StateError
		nferr *domain.NotFoundError
		perr  *domain.PersistenceError
		nerr  *domain.NotificationError
	)

	switch {
	case errors.As(err, &verr):
		WriteErrorWithDetails(w, http.StatusBadRequest, verr.Reason, CodeValidation, map[string]string{"field": verr.Field})
	case errors.Is(err, domain.ErrRoomUnavailable),
		errors.Is(err, domain.ErrConcurrentUpdate),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, err.Error(), CodeConflict)
	case errors.Is(err, domain.ErrAccountDeactivated):
		WriteError(w, http.StatusForbidden, domain.ErrAccountDeactivated.Error(), CodeAccountDeactivated)
	case errors.As(err, &serr):
		WriteError(w, http.StatusBadRequest, serr.Reason, CodeInvalidState)
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "Invalid email or password", CodeUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, domain.ErrForbidden.Error(), CodeForbidden)
	case errors.As(err, &nferr):
		WriteError(w, http.StatusNotFound, nferr.Error(), CodeNotFound)
	case errors.As(err, &perr):
		logger.ErrorContext(r.Context(), "Storage failure", "error", err, "op", perr.Op)
		WriteError(w, http.StatusServiceUnavailable, "We could not save your request, please try again", CodeRetryLater)
	case errors.As(err, &nerr):
		logger.ErrorContext(r.Context(), "Notification failure", "error", err, "kind", nerr.Kind)
		WriteError(w, http.StatusBadGateway, "We could not send the email, please try again", CodeNotificationFailed)
	default:
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		WriteError(w, http.StatusInternalServerError, "Something went wrong, please try again", CodeInternalError)
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
