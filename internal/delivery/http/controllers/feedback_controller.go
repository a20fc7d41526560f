package controllers

import (
	"log/slog"
	"net/http"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"
)

// SubmitFeedbackRequest is the request body for POST /events/{eventID}/feedback.
// Rating bounds are enforced by the service after the eligibility checks.
type SubmitFeedbackRequest struct {
	Rating  int    `json:"rating"`
	Message string `json:"message" validate:"max=2000"`
}

// FeedbackSuccessResponse is the success response envelope for POST /events/{eventID}/feedback.
type FeedbackSuccessResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    *domain.Feedback  `json:"data"`
	Error   *helpers.APIError `json:"error"`
}

// FeedbackStatusResponse is the success response envelope for GET /events/{eventID}/feedback/status.
type FeedbackStatusResponse struct {
	Status string                 `json:"status"`
	Data   *domain.FeedbackStatus `json:"data"`
	Error  *helpers.APIError      `json:"error"`
}

// FeedbackListResponse is the success response envelope for unpaginated feedback lists.
type FeedbackListResponse struct {
	Status string                   `json:"status"`
	Data   []*domain.FeedbackDetail `json:"data"`
	Error  *helpers.APIError        `json:"error"`
}

// FeedbackPageResponse is the success response envelope for GET /feedback.
type FeedbackPageResponse struct {
	Status string                                        `json:"status"`
	Data   helpers.PaginatedList[*domain.FeedbackDetail] `json:"data"`
	Error  *helpers.APIError                             `json:"error"`
}

// FeedbackController handles post-event feedback.
type FeedbackController struct {
	Logger  *slog.Logger
	Service domain.FeedbackService
}

// NewFeedbackController creates a FeedbackController with the given logger and service.
func NewFeedbackController(logger *slog.Logger, svc domain.FeedbackService) *FeedbackController {
	return &FeedbackController{
		Logger:  logger,
		Service: svc,
	}
}

// Submit godoc
// @Summary Leave feedback for an event
// @Description Students who were registered may rate an event (1 to 5) once it has taken place, once per event.
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body SubmitFeedbackRequest true "Rating and optional message"
// @Success 201 {object} controllers.FeedbackSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (not registered, event not concluded, bad rating)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already submitted)"
// @Router /events/{eventID}/feedback [post]
func (c *FeedbackController) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req SubmitFeedbackRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	fb, err := c.Service.Submit(r.Context(), actor.ID, eventID, req.Rating, req.Message)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccessMessage(w, http.StatusCreated, "feedback submitted", fb)
}

// Status godoc
// @Summary Feedback status for an event
// @Description Whether the caller already left feedback and whether they may submit now.
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.FeedbackStatusResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/{eventID}/feedback/status [get]
func (c *FeedbackController) Status(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	status, err := c.Service.Status(r.Context(), actor.ID, eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, status)
}

// ListMine godoc
// @Summary List my feedback
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.FeedbackListResponse
// @Router /feedback/mine [get]
func (c *FeedbackController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := c.Service.ListMine(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}

// ListAll godoc
// @Summary List all feedback
// @Description Admin only, newest first.
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.FeedbackPageResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /feedback [get]
func (c *FeedbackController) ListAll(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	items, total, err := c.Service.ListAll(r.Context(), params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPaginatedList(items, params, total))
}

// ListMyEvents godoc
// @Summary List feedback on my events
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.FeedbackListResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /feedback/my-events [get]
func (c *FeedbackController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := c.Service.ListForCreator(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}
