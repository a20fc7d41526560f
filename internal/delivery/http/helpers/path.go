package helpers

import (
	"net/http"

	"github.com/google/uuid"
)

// PathID returns the path value name when it is a valid UUID. Otherwise it
// writes a 404, since no stored row can carry a malformed id, and returns false.
func PathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "resource not found")
		return "", false
	}
	return id.String(), true
}
