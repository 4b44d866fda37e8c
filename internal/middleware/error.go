package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"agroweb-products/internal/domain"

	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	RespondWithJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errs []ValidationError) {
	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", map[string]interface{}{
		"validation_errors": errs,
	})
}

// RespondWithDomainError maps a service error to its HTTP status. Storage and
// unexpected failures are logged in full and answered with a generic message.
func RespondWithDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		validationErr *domain.ValidationError
		upstreamErr   *domain.UpstreamError
		storageErr    *domain.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		RespondWithValidationErrors(w, []ValidationError{*validationErr})
	case errors.As(err, &upstreamErr):
		logger.Warn("Upstream check failed", zap.Error(err))
		RespondWithErrorDetails(w, http.StatusBadRequest, "user not found", map[string]interface{}{
			"user_id": upstreamErr.Reference,
		})
	case errors.Is(err, domain.ErrProductNotFound):
		RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrDuplicateProductID):
		RespondWithError(w, http.StatusConflict, "a product with that ID already exists")
	case errors.As(err, &storageErr):
		logger.Error("Storage failure", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, "database error")
	default:
		logger.Error("Unhandled error", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Panic recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response. The payload is encoded before the
// status line is written, so an unencodable payload becomes a 500.
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   "failed to encode response",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}
