package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-enrollment-api/internal/middleware"
	"github.com/noah-isme/training-enrollment-api/internal/models"
	"github.com/noah-isme/training-enrollment-api/internal/service"
)

type envelope struct {
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data"`
	Total       *int            `json:"total"`
	TotalPages  *int            `json:"totalPages"`
	CurrentPage *int            `json:"currentPage"`
	Stats       json.RawMessage `json:"stats"`
	Error       *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// newContext builds a gin test context; a non-nil claims value marks the
// request as authenticated.
func newContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

var adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "ops@example.com", FullName: "Ops"}

type fakeEnrollments struct {
	view *models.EnrollmentView
	list *service.EnrollmentList
	err  error

	lastFilter     models.EnrollmentFilter
	lastSubmit     models.PublicEnrollmentRequest
	lastCreate     models.CreateEnrollmentRequest
	lastUpdate     models.UpdateEnrollmentRequest
	lastTransition models.TransitionRequest
	lastID         string
	lastActor      string
	lastCall       string
}

func (f *fakeEnrollments) Submit(_ context.Context, req models.PublicEnrollmentRequest) (*models.EnrollmentView, error) {
	f.lastCall, f.lastSubmit = "submit", req
	return f.view, f.err
}

func (f *fakeEnrollments) Create(_ context.Context, req models.CreateEnrollmentRequest, actorID string) (*models.EnrollmentView, error) {
	f.lastCall, f.lastCreate, f.lastActor = "create", req, actorID
	return f.view, f.err
}

func (f *fakeEnrollments) Get(_ context.Context, id string) (*models.EnrollmentView, error) {
	f.lastCall, f.lastID = "get", id
	return f.view, f.err
}

func (f *fakeEnrollments) List(_ context.Context, filter models.EnrollmentFilter) (*service.EnrollmentList, error) {
	f.lastCall, f.lastFilter = "list", filter
	return f.list, f.err
}

func (f *fakeEnrollments) Update(_ context.Context, id string, req models.UpdateEnrollmentRequest) (*models.EnrollmentView, error) {
	f.lastCall, f.lastID, f.lastUpdate = "update", id, req
	return f.view, f.err
}

func (f *fakeEnrollments) Approve(_ context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error) {
	f.lastCall, f.lastID, f.lastActor, f.lastTransition = "approve", id, actorID, req
	return f.view, f.err
}

func (f *fakeEnrollments) Reject(_ context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error) {
	f.lastCall, f.lastID, f.lastActor, f.lastTransition = "reject", id, actorID, req
	return f.view, f.err
}

func (f *fakeEnrollments) Complete(_ context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error) {
	f.lastCall, f.lastID, f.lastActor, f.lastTransition = "complete", id, actorID, req
	return f.view, f.err
}

func (f *fakeEnrollments) Delete(_ context.Context, id, actorID string) error {
	f.lastCall, f.lastID, f.lastActor = "delete", id, actorID
	return f.err
}

type fakeStudents struct {
	list       *service.StudentList
	err        error
	lastFilter models.StudentFilter
}

func (f *fakeStudents) List(_ context.Context, filter models.StudentFilter) (*service.StudentList, error) {
	f.lastFilter = filter
	return f.list, f.err
}

type fakeExports struct {
	file       *service.ExportFile
	err        error
	lastFilter models.EnrollmentFilter
	lastFormat service.ExportFormat
}

func (f *fakeExports) Enrollments(_ context.Context, filter models.EnrollmentFilter, format service.ExportFormat) (*service.ExportFile, error) {
	f.lastFilter, f.lastFormat = filter, format
	return f.file, f.err
}

type fakeTrainings struct {
	training   *models.Training
	items      []models.Training
	total      int
	err        error
	lastFilter models.TrainingFilter
	lastSlug   string
	lastCreate models.CreateTrainingRequest
	lastUpdate models.UpdateTrainingRequest
	deletedID  string
}

func (f *fakeTrainings) List(_ context.Context, filter models.TrainingFilter) ([]models.Training, int, error) {
	f.lastFilter = filter
	return f.items, f.total, f.err
}

func (f *fakeTrainings) ListPublic(_ context.Context, filter models.TrainingFilter) ([]models.Training, int, error) {
	f.lastFilter = filter
	return f.items, f.total, f.err
}

func (f *fakeTrainings) GetPublic(_ context.Context, slug string) (*models.Training, error) {
	f.lastSlug = slug
	return f.training, f.err
}

func (f *fakeTrainings) Get(_ context.Context, id string) (*models.Training, error) {
	return f.training, f.err
}

func (f *fakeTrainings) Create(_ context.Context, req models.CreateTrainingRequest) (*models.Training, error) {
	f.lastCreate = req
	return f.training, f.err
}

func (f *fakeTrainings) Update(_ context.Context, id string, req models.UpdateTrainingRequest) (*models.Training, error) {
	f.lastUpdate = req
	return f.training, f.err
}

func (f *fakeTrainings) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return f.err
}

type fakeAuth struct {
	res     *models.LoginResponse
	err     error
	lastReq models.LoginRequest
}

func (f *fakeAuth) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastReq = req
	return f.res, f.err
}

type fakeTokens struct {
	claims *models.JWTClaims
	err    error
}

func (f fakeTokens) ValidateToken(string) (*models.JWTClaims, error) {
	return f.claims, f.err
}
