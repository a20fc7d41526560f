package http

import (
	"context"
	"log/slog"
	"net/http"

	"eventease/internal/delivery/http/controllers"
	"eventease/internal/delivery/http/helpers"
	"eventease/internal/delivery/http/middleware"
	"eventease/internal/domain"
	"eventease/internal/metrics"

	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterDeps holds everything NewRouter wires into the mux.
type RouterDeps struct {
	Logger   *slog.Logger
	Resolver domain.IdentityResolver
	// Limiter may be nil to disable rate limiting.
	Limiter        middleware.Limiter
	AllowedOrigins []string
	// Health reports readiness for /healthz; nil always reports healthy.
	Health func(ctx context.Context) error

	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Feedback      *controllers.FeedbackController
}

// NewRouter initializes the HTTP router with all application routes and wraps
// it in the request logging, metrics, rate limit and CORS middleware.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(d.Resolver, d.Logger)
	maybeAuthed := middleware.OptionalAuth(d.Resolver, d.Logger)
	guard := func(policy middleware.Policy, h http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.Authorize(policy, d.Logger)(h))
	}
	var (
		adminOnly   = middleware.Roles(domain.RoleAdmin)
		organizers  = middleware.Roles(domain.RoleClubAdmin, domain.RoleAdmin)
		students    = middleware.Roles(domain.RoleStudent)
		adminOrSelf = middleware.Policy{Roles: []domain.Role{domain.RoleAdmin}, OwnerParam: "userID"}
	)

	// Auth
	mux.HandleFunc("POST /auth/signup", d.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", d.Auth.Login)

	// Users
	mux.HandleFunc("GET /users/me", authed(d.Users.GetMe))
	mux.HandleFunc("PATCH /users/me", authed(d.Users.UpdateMe))
	mux.HandleFunc("GET /users", guard(adminOnly, d.Users.List))
	mux.HandleFunc("POST /users", guard(adminOnly, d.Users.Create))
	mux.HandleFunc("GET /users/{userID}", guard(adminOrSelf, d.Users.Get))
	mux.HandleFunc("PUT /users/{userID}", guard(adminOrSelf, d.Users.Update))
	mux.HandleFunc("DELETE /users/{userID}", guard(adminOnly, d.Users.Delete))

	// Events; ownership of a specific event is checked by the service.
	mux.HandleFunc("GET /events", d.Events.List)
	mux.HandleFunc("GET /events/active", d.Events.ListActive)
	mux.HandleFunc("GET /events/pending", guard(adminOnly, d.Events.ListPending))
	mux.HandleFunc("GET /events/mine", guard(organizers, d.Events.ListMine))
	mux.HandleFunc("GET /events/{eventID}", maybeAuthed(d.Events.Get))
	mux.HandleFunc("POST /events", guard(organizers, d.Events.Create))
	mux.HandleFunc("PUT /events/{eventID}", guard(organizers, d.Events.Update))
	mux.HandleFunc("DELETE /events/{eventID}", guard(organizers, d.Events.Delete))
	mux.HandleFunc("PUT /events/{eventID}/approve", guard(adminOnly, d.Events.Approve))
	mux.HandleFunc("PUT /events/{eventID}/reject", guard(adminOnly, d.Events.Reject))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", guard(students, d.Registrations.Register))
	mux.HandleFunc("DELETE /events/{eventID}/registrations", guard(students, d.Registrations.Unregister))
	mux.HandleFunc("GET /events/{eventID}/registrations", guard(organizers, d.Registrations.ListForEvent))
	mux.HandleFunc("GET /registrations/mine", guard(students, d.Registrations.ListMine))
	mux.HandleFunc("GET /registrations", guard(adminOnly, d.Registrations.ListAll))
	mux.HandleFunc("GET /registrations/my-events", guard(organizers, d.Registrations.ListMyEvents))

	// Feedback
	mux.HandleFunc("POST /events/{eventID}/feedback", guard(students, d.Feedback.Submit))
	mux.HandleFunc("GET /events/{eventID}/feedback/status", authed(d.Feedback.Status))
	mux.HandleFunc("GET /feedback/mine", authed(d.Feedback.ListMine))
	mux.HandleFunc("GET /feedback", guard(adminOnly, d.Feedback.ListAll))
	mux.HandleFunc("GET /feedback/my-events", guard(middleware.Roles(domain.RoleClubAdmin), d.Feedback.ListMyEvents))

	// Operations
	mux.HandleFunc("GET /healthz", healthz(d.Health, d.Logger))
	mux.Handle("GET /metrics", metrics.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = middleware.CORS(d.AllowedOrigins, handler)
	handler = middleware.RateLimit(d.Limiter, handler)
	handler = metrics.HTTPMiddleware(handler)
	return middleware.LoggingMiddleware(d.Logger, handler)
}

func healthz(check func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "err", err)
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeStorageFailure, "database unavailable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
