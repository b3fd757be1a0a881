package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarters/portal/internal/app"
	"quarters/portal/internal/config"
	"quarters/portal/internal/gateway"
	"quarters/portal/internal/gateway/gatewaytest"
	"quarters/portal/internal/handlers"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
	"quarters/portal/internal/server"
)

type queueStub struct {
	departments []string
	err         error
}

func (q *queueStub) EnqueueReport(_ context.Context, department string) error {
	q.departments = append(q.departments, department)
	return q.err
}

type harness struct {
	t      *testing.T
	engine *gin.Engine
	app    *app.App
	gw     *gatewaytest.Fake
	queue  *queueStub
	token  string
}

func newHarness(t *testing.T, gw *gatewaytest.Fake) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Portal: config.PortalConfig{
			Mode:        "online",
			EmailDomain: "@coalindia.in",
			OTPCode:     "123456",
		},
		Security: config.SecurityConfig{JWTAccessSecret: "test-secret", JWTAccessTTL: time.Hour},
	}
	local, err := localstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	a := app.New(cfg, gw, local, nil, zerolog.Nop())
	require.NoError(t, a.Start(context.Background()))

	queue := &queueStub{}
	hs := handlers.NewHandlerSet(zerolog.Nop(), a, queue, local)
	return &harness{
		t:      t,
		engine: server.NewEngine(cfg, zerolog.Nop(), hs),
		app:    a,
		gw:     gw,
		queue:  queue,
	}
}

// newOfflineHarness starts with an unreachable backend so the demo
// directory and seed complaints are used.
func newOfflineHarness(t *testing.T) *harness {
	return newHarness(t, &gatewaytest.Fake{
		ProbeFn: func(context.Context) error { return gatewaytest.Unreachable("probe") },
	})
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(local string) map[string]any {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/request-code", gin.H{"email": local + "@coalindia.in"})
	require.Equal(h.t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/auth/verify", gin.H{"code": "123456"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(h.t, rec)
	h.token = out["accessToken"].(string)
	return out
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func itemIDs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var out struct {
		Items []models.Complaint `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	ids := make([]string, 0, len(out.Items))
	for _, c := range out.Items {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestHealth(t *testing.T) {
	h := newOfflineHarness(t)

	rec := h.do(http.MethodGet, "/api/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["gateway"])
	assert.Equal(t, "ok", body["localStore"])
	assert.Equal(t, "offline", body["mode"])
}

func TestLoginFlow(t *testing.T) {
	h := newOfflineHarness(t)

	rec := h.do(http.MethodPost, "/api/v1/auth/request-code", gin.H{"email": "admin@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_domain", decode(t, rec)["error"])

	rec = h.do(http.MethodPost, "/api/v1/auth/request-code", gin.H{"email": "nobody@coalindia.in"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/verify", gin.H{"code": "123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no pending email")

	rec = h.do(http.MethodPost, "/api/v1/auth/request-code", gin.H{"email": "admin@coalindia.in"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/verify", gin.H{"code": "000000"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_code", decode(t, rec)["error"])

	out := h.login("admin")
	assert.Equal(t, "/admin", out["destination"])
	assert.Equal(t, "offline", out["mode"])

	rec = h.do(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decode(t, rec)["user"].(map[string]any)["role"])

	rec = h.do(http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["items"])

	rec = h.do(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token dies with the session")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newOfflineHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/complaints", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestComplaintLifecycleOffline(t *testing.T) {
	h := newOfflineHarness(t)
	h.login("admin")

	rec := h.do(http.MethodGet, "/api/v1/complaints", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"C001", "C002"}, itemIDs(t, rec))

	rec = h.do(http.MethodPost, "/api/v1/complaints/C001/assign", gin.H{
		"departmentId":   "dept-water",
		"departmentName": "Water Department",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var assigned models.Complaint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))
	assert.Equal(t, models.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.EstimatedResolutionDate)
	assert.Len(t, assigned.StatusHistory, 2)

	rec = h.do(http.MethodPost, "/api/v1/complaints/C001/assign", gin.H{"departmentName": "Water Department"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/complaints/C001/assign", gin.H{"departmentName": "Water Department", "estimatedDays": 45})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/complaints/C001/escalate", gin.H{"reason": "pipe burst"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var escalated models.Complaint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &escalated))
	assert.Equal(t, models.StatusEscalated, escalated.Status)
	require.NotEmpty(t, escalated.Comments)
	assert.Contains(t, escalated.Comments[len(escalated.Comments)-1].Comment, "pipe burst")

	rec = h.do(http.MethodPost, "/api/v1/complaints/C001/authority", gin.H{
		"name":           "R. K. Sharma",
		"email":          "gm.civil@coalindia.in",
		"resolutionDate": "2024-07-01",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var authority models.Complaint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &authority))
	assert.Equal(t, models.StatusAuthorityAssigned, authority.Status)
	assert.Equal(t, "R. K. Sharma (gm.civil@coalindia.in)", authority.EscalatedToAuthority)

	rec = h.do(http.MethodGet, "/api/v1/complaints/C404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/complaints/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["total"])
}

func TestEmployeeSeesOnlyOwnComplaints(t *testing.T) {
	h := newOfflineHarness(t)
	h.login("employee")

	rec := h.do(http.MethodPost, "/api/v1/complaints", gin.H{
		"type":        "plumbing",
		"description": "Leaking tap",
		"employeeId":  "someone-else",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Complaint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "C003", created.ID)
	assert.Equal(t, "employee-1", created.EmployeeID)
	assert.Equal(t, "A-123", created.EmployeeQuarter)

	rec = h.do(http.MethodPost, "/api/v1/complaints/C003/assign", gin.H{"departmentName": "Plumbing Department"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/complaints", gin.H{"type": "gas", "description": "smell"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepartmentScope(t *testing.T) {
	h := newOfflineHarness(t)
	h.login("electrical")

	rec := h.do(http.MethodGet, "/api/v1/complaints", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"C002"}, itemIDs(t, rec))

	rec = h.do(http.MethodPost, "/api/v1/complaints/C001/status", gin.H{"status": "in_progress"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "not in this department")

	rec = h.do(http.MethodPost, "/api/v1/complaints/C002/status", gin.H{"status": "in_progress", "comment": "on it"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/complaints/C002/status", gin.H{"status": "new"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDirectoryAndAdminUsers(t *testing.T) {
	h := newOfflineHarness(t)
	h.login("admin")

	rec := h.do(http.MethodGet, "/api/v1/directory/departments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 5)

	rec = h.do(http.MethodGet, "/api/v1/admin/users?q=department", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["total"])

	rec = h.do(http.MethodPost, "/api/v1/admin/users", gin.H{
		"name": "New Person", "email": "new.person@coalindia.in", "role": "employee",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(string)

	rec = h.do(http.MethodPost, "/api/v1/admin/users", gin.H{
		"name": "Dup", "email": "new.person@coalindia.in", "role": "employee",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPatch, "/api/v1/admin/users/"+id, gin.H{"role": "department", "department": "Civil Department"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Civil Department", decode(t, rec)["department"])

	rec = h.do(http.MethodDelete, "/api/v1/admin/users/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/admin/users/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/admin/reports", gin.H{"department": "Water Department"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"Water Department"}, h.queue.departments)
}

func TestRejectedWriteMapsToBadGateway(t *testing.T) {
	h := newHarness(t, &gatewaytest.Fake{
		AuthenticateFn: func(_ context.Context, email, _ string) (gateway.AuthResult, error) {
			return gateway.AuthResult{Success: true, User: &models.User{
				ID: "admin-9", Name: "Admin", Email: email, Role: models.UserRoleAdmin,
			}}, nil
		},
		ListComplaintsFn: func(context.Context) ([]models.Complaint, error) {
			return []models.Complaint{{ID: "C001", Status: models.StatusNew, Type: models.TypeWater}}, nil
		},
		UpdateComplaintFn: func(context.Context, string, gateway.ComplaintPatch) error {
			return &gateway.Error{Op: "update", Kind: gateway.ErrRejected, Code: "23514", Err: errors.New("check violation")}
		},
	})
	out := h.login("admin")
	assert.Equal(t, "online", out["mode"])

	rec := h.do(http.MethodPost, "/api/v1/complaints/C001/assign", gin.H{"departmentName": "Water Department"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "backend_rejected", decode(t, rec)["error"])
}
