package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"eventease/internal/domain"
)

func TestAuthorize(t *testing.T) {
	admin := &domain.User{ID: "admin-1", Role: domain.RoleAdmin}
	student := &domain.User{ID: "student-1", Role: domain.RoleStudent}
	club := &domain.User{ID: "club-1", Role: domain.RoleClubAdmin}

	adminOnly := Roles(domain.RoleAdmin)
	adminOrSelf := Policy{Roles: []domain.Role{domain.RoleAdmin}, OwnerParam: "userID"}

	tests := []struct {
		name       string
		policy     Policy
		user       *domain.User
		path       string
		wantStatus int
	}{
		{"admin passes role check", adminOnly, admin, "/users/student-1", http.StatusOK},
		{"student denied", adminOnly, student, "/users/student-1", http.StatusForbidden},
		{"club admin in role list", Roles(domain.RoleClubAdmin, domain.RoleAdmin), club, "/users/club-1", http.StatusOK},
		{"owner passes via path", adminOrSelf, student, "/users/student-1", http.StatusOK},
		{"non owner denied", adminOrSelf, student, "/users/club-1", http.StatusForbidden},
		{"no user in context", adminOnly, nil, "/users/student-1", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /users/{userID}", Authorize(tt.policy, testLogger)(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != nil {
				req = req.WithContext(SetUser(req.Context(), tt.user))
			}
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			require.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
