package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/delivery/http/middleware"
	"eventease/internal/domain"
)

// currentUser returns the authenticated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

// decodeOptional is DecodeAndValidate for endpoints whose body may be omitted.
func decodeOptional(w http.ResponseWriter, r *http.Request, dest any) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	return helpers.DecodeAndValidate(w, r, dest)
}

var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseEventDate accepts RFC 3339 or a local date-time without zone, read as UTC.
func parseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q must be RFC 3339 or YYYY-MM-DDTHH:MM", s)
}

// MessageResponse is the success envelope for endpoints that only report an outcome.
type MessageResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    any               `json:"data"`
	Error   *helpers.APIError `json:"error"`
}
