package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventease/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable maps domain errors to HTTP responses. The first match wins, so
// more specific sentinels come before broader ones.
var errorTable = []errorMapping{
	{domain.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrGuardMisconfigured, http.StatusInternalServerError, ErrCodeInternalError},
	{domain.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},

	{domain.ErrAlreadyRegistered, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAlreadyApproved, http.StatusConflict, ErrCodeConflict},
	{domain.ErrDuplicateFeedback, http.StatusConflict, ErrCodeConflict},
	{domain.ErrDuplicateEmail, http.StatusConflict, ErrCodeConflict},

	{domain.ErrCapacityReached, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrNotApproved, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrNotRegistered, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrEventNotConcluded, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidRating, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidTransition, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrLastAdmin, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},

	{domain.ErrStorage, http.StatusInternalServerError, ErrCodeStorageFailure},
}

// StatusFor returns the HTTP status and error code for err. Unknown errors map to 500.
func StatusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteDomainError writes err as a JSON error response. Server-side failures
// are logged with the request method and path; expected business outcomes are not.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		}
		if code == ErrCodeInternalError {
			message = "internal server error"
		}
	}
	WriteJSONError(w, status, code, message)
}
