package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/newdaybreak/careers/internal/logging"
	"github.com/newdaybreak/careers/internal/render"
	"github.com/newdaybreak/careers/internal/services"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "handler-secret"

type userRepo struct {
	users []types.User
}

func (r *userRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *userRepo) CreateAdminIfMissing(context.Context, types.User) (types.User, bool, error) {
	return types.User{}, false, nil
}

type applicationRepo struct {
	mu   sync.Mutex
	apps map[int64]types.Application
	sent []types.Notification
}

func (r *applicationRepo) Create(_ context.Context, app types.Application) (types.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app.ID = int64(len(r.apps) + 1)
	r.apps[app.ID] = app
	return app, nil
}

func (r *applicationRepo) Get(_ context.Context, id int64) (types.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	return app, nil
}

func (r *applicationRepo) List(_ context.Context) ([]types.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apps := make([]types.Application, 0, len(r.apps))
	for id := int64(len(r.apps)); id >= 1; id-- {
		apps = append(apps, r.apps[id])
	}
	return apps, nil
}

func (r *applicationRepo) RecordDecision(
	_ context.Context,
	id int64,
	status types.ApplicationStatus,
	reviewedAt time.Time,
	compose func(types.Application) types.Notification,
) (types.Application, types.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return types.Application{}, types.Notification{}, store.ErrNotFound
	}
	app.Status = status
	app.ReviewedAt = &reviewedAt
	r.apps[id] = app
	n := compose(app)
	r.sent = append(r.sent, n)
	return app, n, nil
}

type testAPI struct {
	router *chi.Mux
	apps   *applicationRepo
	tokens *services.TokenCodec
}

func newTestAPI(t *testing.T, renderer services.DocumentRenderer) *testAPI {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &userRepo{users: []types.User{
		{ID: 1, Name: "Admin", Email: "admin@x.com", Role: types.RoleAdmin, PasswordHash: string(hash)},
		{ID: 2, Name: "Emp", Email: "emp@x.com", Role: types.RoleEmployee, PasswordHash: string(hash)},
	}}
	apps := &applicationRepo{apps: map[int64]types.Application{}}

	tokens, err := services.NewTokenCodec(testSecret, time.Hour, false)
	require.NoError(t, err)

	log := logging.Discard()
	authService := services.NewAuthService(users, tokens, log)
	handler := NewApplicationHandler(
		services.NewIntakeService(apps, log),
		services.NewReviewService(apps, nil, "Agency", log),
		services.NewExportService(apps, renderer, nil, log),
		log,
	)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/api", func(r chi.Router) {
		AuthRouter(r, authService, log)
		ApplicationRouter(r, handler, RequireAuth(authService))
	})
	return &testAPI{router: router, apps: apps, tokens: tokens}
}

func (a *testAPI) token(t *testing.T, id int64, role string) string {
	t.Helper()
	token, _, err := a.tokens.Issue(types.User{ID: id, Role: role})
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func validPayload() map[string]any {
	return map[string]any{
		"full_name":        "Jane Doe",
		"email":            "jane@example.com",
		"phone":            "555-0100",
		"address":          "1 Main St",
		"city_state_zip":   "Springfield, IL 62701",
		"position_desired": "Caregiver",
		"signature":        "Jane Doe",
		"is_over_18":       "yes",
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "admin@x.com", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[services.LoginResult](t, rec)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, types.UserSummary{ID: 1, Name: "Admin", Email: "admin@x.com", Role: types.RoleAdmin}, result.User)

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "admin@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@x.com", "password": "admin123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "admin@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/me", api.token(t, 2, types.RoleEmployee), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "emp@x.com", body["email"])
	assert.NotContains(t, body, "password_hash")

	rec = api.do(t, http.MethodGet, "/api/me", api.token(t, 99, types.RoleEmployee), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApply(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/apply", "", validPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[ApplyResponse](t, rec)
	assert.Equal(t, int64(1), resp.ApplicationID)
	assert.True(t, api.apps.apps[1].IsOver18)
	assert.Equal(t, types.StatusPending, api.apps.apps[1].Status)
}

func TestApplyMissingFields(t *testing.T) {
	api := newTestAPI(t, nil)

	payload := validPayload()
	delete(payload, "email")
	payload["signature"] = ""

	rec := api.do(t, http.MethodPost, "/api/apply", "", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, []string{"email", "signature"}, resp.Missing)
	assert.Empty(t, api.apps.apps)
}

func TestApplyEmptyAndMalformedBody(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/apply", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[ErrorResponse](t, rec).Missing, 7)

	req := httptest.NewRequest(http.MethodPost, "/api/apply", bytes.NewBufferString("{not json"))
	out := httptest.NewRecorder()
	api.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	api := newTestAPI(t, nil)
	employee := api.token(t, 2, types.RoleEmployee)

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/admin/applications", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodGet, "/api/admin/applications", employee, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPost, "/api/admin/applications/1/status", employee, map[string]string{"status": "approved"}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodGet, "/api/admin/applications/1/download", employee, nil).Code)
}

func TestListApplications(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.token(t, 1, types.RoleAdmin)

	rec := api.do(t, http.MethodGet, "/api/admin/applications", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	api.do(t, http.MethodPost, "/api/apply", "", validPayload())
	rec = api.do(t, http.MethodGet, "/api/admin/applications", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]types.ApplicationSummary](t, rec)
	require.Len(t, items, 1)
	assert.True(t, items[0].Screening.IsOver18)
}

func TestUpdateStatus(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.token(t, 1, types.RoleAdmin)
	api.do(t, http.MethodPost, "/api/apply", "", validPayload())

	rec := api.do(t, http.MethodPost, "/api/admin/applications/1/status", admin, map[string]string{"status": "approved", "note": "Start Monday"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Application approved and applicant notified.", decode[MessageResponse](t, rec).Message)
	assert.Equal(t, types.StatusApproved, api.apps.apps[1].Status)
	require.Len(t, api.apps.sent, 1)
	assert.Contains(t, api.apps.sent[0].Body, "Start Monday")

	rec = api.do(t, http.MethodPost, "/api/admin/applications/1/status", admin, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/admin/applications/42/status", admin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/admin/applications/abc/status", admin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadJSON(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.token(t, 1, types.RoleAdmin)
	api.do(t, http.MethodPost, "/api/apply", "", validPayload())

	rec := api.do(t, http.MethodGet, "/api/admin/applications/1/download", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=application_1.json", rec.Header().Get("Content-Disposition"))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Jane Doe", body["full_name"])

	rec = api.do(t, http.MethodGet, "/api/admin/applications/1/download?format=xml", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/admin/applications/9/download?format=xml", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadPDF(t *testing.T) {
	api := newTestAPI(t, render.NewPDFRenderer("Agency"))
	admin := api.token(t, 1, types.RoleAdmin)
	api.do(t, http.MethodPost, "/api/apply", "", validPayload())

	rec := api.do(t, http.MethodGet, "/api/admin/applications/1/download?format=pdf", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=application_1.pdf", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestDownloadPDFUnavailable(t *testing.T) {
	api := newTestAPI(t, services.UnavailableRenderer{})
	admin := api.token(t, 1, types.RoleAdmin)
	api.do(t, http.MethodPost, "/api/apply", "", validPayload())

	rec := api.do(t, http.MethodGet, "/api/admin/applications/1/download?format=pdf", admin, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
