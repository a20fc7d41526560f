package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"eventease/internal/authz"
	"eventease/internal/delivery/http/helpers"
	"eventease/internal/delivery/http/middleware"
	"eventease/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Date        string `json:"date" validate:"required"`
	Location    string `json:"location" validate:"max=200"`
	// MaxSeats defaults to 100 when omitted.
	MaxSeats *int `json:"max_seats" validate:"omitempty,min=1"`

	date time.Time
}

// Validate implements Validator. It parses the event date.
func (c *CreateEventRequest) Validate() []string {
	if c.Date == "" {
		return nil
	}
	t, err := parseEventDate(c.Date)
	if err != nil {
		return []string{err.Error()}
	}
	c.date = t
	return nil
}

// UpdateEventRequest is the request body for PUT /events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Date        *string `json:"date"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
	MaxSeats    *int    `json:"max_seats" validate:"omitempty,min=1"`

	date *time.Time
}

// Validate implements Validator. It parses the event date when present.
func (u *UpdateEventRequest) Validate() []string {
	if u.Date == nil {
		return nil
	}
	t, err := parseEventDate(*u.Date)
	if err != nil {
		return []string{err.Error()}
	}
	u.date = &t
	return nil
}

// RejectEventRequest is the optional request body for PUT /events/{eventID}/reject.
type RejectEventRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    *domain.Event     `json:"data"`
	Error   *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for unpaginated event lists.
type EventListSuccessResponse struct {
	Status string            `json:"status"`
	Data   []*domain.Event   `json:"data"`
	Error  *helpers.APIError `json:"error"`
}

// EventPageSuccessResponse is the success response envelope for GET /events.
type EventPageSuccessResponse struct {
	Status string                                `json:"status"`
	Data   helpers.PaginatedList[*domain.Event] `json:"data"`
	Error  *helpers.APIError                     `json:"error"`
}

// EventController handles the event catalogue and the approval workflow.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

// NewEventController creates an EventController with the given logger and service.
func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// List godoc
// @Summary List approved events
// @Description Public, paginated catalogue of approved events, filtered by search (title or description) and location.
// @Tags events
// @Produce json
// @Param search query string false "Title or description substring"
// @Param location query string false "Location substring"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventPageSuccessResponse
// @Failure 500 {object} helpers.APIResponse "error.code: storage_failure"
// @Router /events [get]
func (c *EventController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{Search: q.Get("search"), Location: q.Get("location")}
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListApproved(r.Context(), filter, params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPaginatedList(events, params, total))
}

// ListActive godoc
// @Summary List upcoming approved events
// @Tags events
// @Produce json
// @Success 200 {object} controllers.EventListSuccessResponse
// @Router /events/active [get]
func (c *EventController) ListActive(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.ListActive(r.Context())
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListPending godoc
// @Summary List events awaiting approval
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /events/pending [get]
func (c *EventController) ListPending(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.ListPending(r.Context())
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListMine godoc
// @Summary List events created by the current user
// @Description Every status is included, with seats booked.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /events/mine [get]
func (c *EventController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListByCreator(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// Get godoc
// @Summary Get an event
// @Description Approved events are public. Pending and rejected events are visible to admins and to their creator only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (token sent but invalid)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) Get(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err == nil && !canView(r, event) {
		err = domain.ErrNotFound
	}
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// Create godoc
// @Summary Create an event
// @Description Club admins and admins create events; new events are pending until an admin approves them.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /events [post]
func (c *EventController) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	in := domain.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.date,
		Location:    req.Location,
	}
	if req.MaxSeats != nil {
		in.MaxSeats = *req.MaxSeats
	}
	event, err := c.Service.CreateEvent(r.Context(), actor, in)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusCreated, "event created and awaiting approval", event)
}

// Update godoc
// @Summary Update an event
// @Description Admins or the event's creator. max_seats cannot drop below seats already booked.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [put]
func (c *EventController) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), actor, eventID, domain.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.date,
		Location:    req.Location,
		MaxSeats:    req.MaxSeats,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusOK, "event updated", event)
}

// Delete godoc
// @Summary Delete an event
// @Description Admins or the event's creator. Registrations and feedback for the event are removed with it.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.MessageResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), actor, eventID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusOK, "event deleted", map[string]string{"id": eventID})
}

// Approve godoc
// @Summary Approve an event
// @Description Admin only. Approving an approved event reports a conflict and changes nothing.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (rejected events stay rejected)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already approved)"
// @Router /events/{eventID}/approve [put]
func (c *EventController) Approve(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.Approve(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusOK, "event approved", event)
}

// Reject godoc
// @Summary Reject an event
// @Description Admin only. The reason is stored on the event; it defaults to "No reason provided".
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RejectEventRequest false "Rejection reason"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/reject [put]
func (c *EventController) Reject(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req RejectEventRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	event, err := c.Service.Reject(r.Context(), eventID, req.Reason)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusOK, "event rejected", event)
}

// canView hides unapproved events from everyone but admins and the creator.
func canView(r *http.Request, event *domain.Event) bool {
	if event.Status == domain.EventStatusApproved {
		return true
	}
	actor, ok := middleware.UserFromContext(r.Context())
	return ok && authz.Authorize(actor, authz.AdminOrOwner(event.OwnerID())) == nil
}
