package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/delivery/http/middleware"
	"eventease/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID = "4b3c1f9e-8d0a-4a55-9b8e-2f1d7c6e5a01"
	studentID   = "9a7e6d5c-4b3a-4c2d-8e1f-0a9b8c7d6e02"
	clubID      = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e03"
	adminID     = "7f6e5d4c-3b2a-4190-8f7e-6d5c4b3a2904"
)

var (
	student   = &domain.User{ID: studentID, Name: "Sam", Email: "sam@uni.test", Role: domain.RoleStudent}
	clubAdmin = &domain.User{ID: clubID, Name: "Cleo", Email: "cleo@uni.test", Role: domain.RoleClubAdmin}
	admin     = &domain.User{ID: adminID, Name: "Ada", Email: "ada@uni.test", Role: domain.RoleAdmin}
)

// newRequest builds a request with an optional JSON body, acting user and path values.
func newRequest(method, target, body string, actor *domain.User, pathValues ...string) *http.Request {
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(middleware.SetUser(req.Context(), actor))
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return req
}

// decodeEnvelope decodes the response envelope and, when out is non-nil, its data.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if out != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return envelope
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	signUpFn        func(in domain.SignUpInput) (*domain.User, error)
	loginFn         func(email, password string) (string, *domain.User, error)
	getByIDFn       func(id string) (*domain.User, error)
	updateProfileFn func(userID string, name, department *string) (*domain.User, error)
	updateUserFn    func(actor *domain.User, userID string, patch domain.UserPatch) (*domain.User, error)
	createUserFn    func(in domain.SignUpInput) (*domain.User, error)
	deleteErr       error
	listFn          func(filter domain.UserFilter, params domain.PaginationParams) ([]*domain.User, int, error)
	lastDeleteID    string
}

func (f *fakeUserService) SignUp(_ context.Context, in domain.SignUpInput) (*domain.User, error) {
	return f.signUpFn(in)
}

func (f *fakeUserService) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	return f.loginFn(email, password)
}

func (f *fakeUserService) GetByID(_ context.Context, id string) (*domain.User, error) {
	return f.getByIDFn(id)
}

func (f *fakeUserService) UpdateProfile(_ context.Context, userID string, name, department *string) (*domain.User, error) {
	return f.updateProfileFn(userID, name, department)
}

func (f *fakeUserService) UpdateUser(_ context.Context, actor *domain.User, userID string, patch domain.UserPatch) (*domain.User, error) {
	return f.updateUserFn(actor, userID, patch)
}

func (f *fakeUserService) CreateUser(_ context.Context, in domain.SignUpInput) (*domain.User, error) {
	return f.createUserFn(in)
}

func (f *fakeUserService) Delete(_ context.Context, userID string) error {
	f.lastDeleteID = userID
	return f.deleteErr
}

func (f *fakeUserService) List(_ context.Context, filter domain.UserFilter, params domain.PaginationParams) ([]*domain.User, int, error) {
	return f.listFn(filter, params)
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createFn        func(actor *domain.User, in domain.CreateEventInput) (*domain.Event, error)
	getFn           func(id string) (*domain.Event, error)
	updateFn        func(actor *domain.User, id string, patch domain.EventPatch) (*domain.Event, error)
	deleteErr       error
	listApprovedFn  func(filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error)
	listed          []*domain.Event
	listErr         error
	transitionFn    func(id, reason string, approve bool) (*domain.Event, error)
	lastCreatorID   string
	lastDeleteActor *domain.User
}

func (f *fakeEventService) CreateEvent(_ context.Context, actor *domain.User, in domain.CreateEventInput) (*domain.Event, error) {
	return f.createFn(actor, in)
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	return f.getFn(id)
}

func (f *fakeEventService) UpdateEvent(_ context.Context, actor *domain.User, id string, patch domain.EventPatch) (*domain.Event, error) {
	return f.updateFn(actor, id, patch)
}

func (f *fakeEventService) DeleteEvent(_ context.Context, actor *domain.User, _ string) error {
	f.lastDeleteActor = actor
	return f.deleteErr
}

func (f *fakeEventService) ListApproved(_ context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	return f.listApprovedFn(filter, params)
}

func (f *fakeEventService) ListActive(context.Context) ([]*domain.Event, error) {
	return f.listed, f.listErr
}

func (f *fakeEventService) ListPending(context.Context) ([]*domain.Event, error) {
	return f.listed, f.listErr
}

func (f *fakeEventService) ListByCreator(_ context.Context, creatorID string) ([]*domain.Event, error) {
	f.lastCreatorID = creatorID
	return f.listed, f.listErr
}

func (f *fakeEventService) Approve(_ context.Context, id string) (*domain.Event, error) {
	return f.transitionFn(id, "", true)
}

func (f *fakeEventService) Reject(_ context.Context, id, reason string) (*domain.Event, error) {
	return f.transitionFn(id, reason, false)
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	registerFn     func(userID, eventID string) (*domain.RegistrationResult, error)
	unregisterFn   func(userID, eventID string) (*domain.UnregistrationResult, error)
	forUser        []*domain.RegistrationWithEvent
	forEventFn     func(actor *domain.User, eventID string) ([]*domain.RegistrationDetail, error)
	listAllFn      func(filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.RegistrationDetail, int, error)
	forCreator     []*domain.EventRegistrations
	err            error
	lastListUserID string
	lastCreatorID  string
}

func (f *fakeRegistrationService) Register(_ context.Context, userID, eventID string) (*domain.RegistrationResult, error) {
	return f.registerFn(userID, eventID)
}

func (f *fakeRegistrationService) Unregister(_ context.Context, userID, eventID string) (*domain.UnregistrationResult, error) {
	return f.unregisterFn(userID, eventID)
}

func (f *fakeRegistrationService) ListForUser(_ context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	f.lastListUserID = userID
	return f.forUser, f.err
}

func (f *fakeRegistrationService) ListForEvent(_ context.Context, actor *domain.User, eventID string) ([]*domain.RegistrationDetail, error) {
	return f.forEventFn(actor, eventID)
}

func (f *fakeRegistrationService) ListAll(_ context.Context, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.RegistrationDetail, int, error) {
	return f.listAllFn(filter, params)
}

func (f *fakeRegistrationService) ListForCreator(_ context.Context, creatorID string) ([]*domain.EventRegistrations, error) {
	f.lastCreatorID = creatorID
	return f.forCreator, f.err
}

// fakeFeedbackService implements domain.FeedbackService for handler tests.
type fakeFeedbackService struct {
	submitFn      func(userID, eventID string, rating int, message string) (*domain.Feedback, error)
	status        *domain.FeedbackStatus
	details       []*domain.FeedbackDetail
	total         int
	err           error
	lastUserID    string
	lastCreatorID string
	lastParams    domain.PaginationParams
}

func (f *fakeFeedbackService) Submit(_ context.Context, userID, eventID string, rating int, message string) (*domain.Feedback, error) {
	return f.submitFn(userID, eventID, rating, message)
}

func (f *fakeFeedbackService) Status(_ context.Context, userID, _ string) (*domain.FeedbackStatus, error) {
	f.lastUserID = userID
	return f.status, f.err
}

func (f *fakeFeedbackService) ListMine(_ context.Context, userID string) ([]*domain.FeedbackDetail, error) {
	f.lastUserID = userID
	return f.details, f.err
}

func (f *fakeFeedbackService) ListAll(_ context.Context, params domain.PaginationParams) ([]*domain.FeedbackDetail, int, error) {
	f.lastParams = params
	return f.details, f.total, f.err
}

func (f *fakeFeedbackService) ListForCreator(_ context.Context, creatorID string) ([]*domain.FeedbackDetail, error) {
	f.lastCreatorID = creatorID
	return f.details, f.err
}
