package controllers

import (
	"log/slog"
	"net/http"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"
)

// RegistrationSuccessResponse is the success response envelope for POST /events/{eventID}/registrations.
// A failed confirmation email is reported in data.warning; the registration still stands.
type RegistrationSuccessResponse struct {
	Status  string                     `json:"status"`
	Message string                     `json:"message"`
	Data    *domain.RegistrationResult `json:"data"`
	Error   *helpers.APIError          `json:"error"`
}

// UnregistrationSuccessResponse is the success response envelope for DELETE /events/{eventID}/registrations.
type UnregistrationSuccessResponse struct {
	Status  string                       `json:"status"`
	Message string                       `json:"message"`
	Data    *domain.UnregistrationResult `json:"data"`
	Error   *helpers.APIError            `json:"error"`
}

// RegistrationDetailListResponse is the success response envelope for unpaginated registration lists.
type RegistrationDetailListResponse struct {
	Status string                       `json:"status"`
	Data   []*domain.RegistrationDetail `json:"data"`
	Error  *helpers.APIError            `json:"error"`
}

// RegistrationPageResponse is the success response envelope for GET /registrations.
type RegistrationPageResponse struct {
	Status string                                            `json:"status"`
	Data   helpers.PaginatedList[*domain.RegistrationDetail] `json:"data"`
	Error  *helpers.APIError                                 `json:"error"`
}

// MyRegistrationsResponse is the success response envelope for GET /registrations/mine.
type MyRegistrationsResponse struct {
	Status string                          `json:"status"`
	Data   []*domain.RegistrationWithEvent `json:"data"`
	Error  *helpers.APIError               `json:"error"`
}

// EventRegistrationsResponse is the success response envelope for GET /registrations/my-events.
type EventRegistrationsResponse struct {
	Status string                       `json:"status"`
	Data   []*domain.EventRegistrations `json:"data"`
	Error  *helpers.APIError            `json:"error"`
}

// RegistrationController handles event registration endpoints.
type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

// NewRegistrationController creates a RegistrationController with the given logger and service.
func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register for an event
// @Description Students only. The event must be approved, upcoming and have a free seat.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (not approved, past, full)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already registered)"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	result, err := c.Service.Register(r.Context(), actor.ID, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusCreated, "registered for event", result)
}

// Unregister godoc
// @Summary Cancel a registration
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.UnregistrationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (not registered)"
// @Router /events/{eventID}/registrations [delete]
func (c *RegistrationController) Unregister(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	result, err := c.Service.Unregister(r.Context(), actor.ID, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusOK, "registration cancelled", result)
}

// ListForEvent godoc
// @Summary List an event's registrants
// @Description Admins, or the club admin who created the event.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationDetailListResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations [get]
func (c *RegistrationController) ListForEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	regs, err := c.Service.ListForEvent(r.Context(), actor, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}

// ListMine godoc
// @Summary List my registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyRegistrationsResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /registrations/mine [get]
func (c *RegistrationController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	regs, err := c.Service.ListForUser(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}

// ListAll godoc
// @Summary List all registrations
// @Description Admin only. Search matches registrant name or event title.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param search query string false "Registrant name or event title substring"
// @Param event_id query string false "Restrict to one event"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.RegistrationPageResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /registrations [get]
func (c *RegistrationController) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RegistrationFilter{Search: q.Get("search"), EventID: q.Get("event_id")}
	params := helpers.ParsePagination(r)
	regs, total, err := c.Service.ListAll(r.Context(), filter, params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPaginatedList(regs, params, total))
}

// ListMyEvents godoc
// @Summary List registrations for my events
// @Description Registrations grouped per event created by the caller, including events nobody registered for.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.EventRegistrationsResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /registrations/my-events [get]
func (c *RegistrationController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	groups, err := c.Service.ListForCreator(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, groups)
}
