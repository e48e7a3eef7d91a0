package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pr-tracker/internal/repository"
	"pr-tracker/internal/service"
	"pr-tracker/pkg/database"
	"pr-tracker/pkg/redis"
)

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T, withRedis bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := database.NewSQLiteDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	log := zap.NewNop()
	engine := service.NewEngine(repo, log)
	svc := service.NewTrackerService(repo, engine, log)

	var idem IdempotencyStore
	if withRedis {
		mr := miniredis.RunT(t)
		client := redis.NewRedisClient(mr.Addr(), "", 0)
		t.Cleanup(func() { client.Close() })
		idem = client
	}

	router := gin.New()
	NewTrackerHandler(svc, idem, time.Hour, log).RegisterRoutes(router.Group("/api/v1"))
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path, actor string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func prBody(second int) map[string]interface{} {
	return map[string]interface{}{
		"pr_number":      "PR-001",
		"date_request":   "2024-01-02",
		"staff_name":     "alice",
		"programme_unit": "Health",
		"type_services":  "Services",
		"category":       "Venue",
		"assigned_to":    "bob",
		"shared_wbs":     true,
		"allocations": []map[string]interface{}{
			{"project_name": "P1", "task_name": "T1", "percentage": 60},
			{"project_name": "P2", "task_name": "T2", "percentage": second},
		},
		"lines": []map[string]interface{}{
			{"from_date": "2024-01-01", "to_date": "2024-01-05", "location": "Islamabad", "qty": 1, "est_cost_pkr": 1000},
		},
	}
}

func (s *testServer) submitPR(t *testing.T) int64 {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/purchase-requests", "alice", prBody(40))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	prs := decode(t, w)["purchase_requests"].([]interface{})
	return int64(prs[0].(map[string]interface{})["id"].(float64))
}

func TestSubmitPurchaseRequest(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name       string
		actor      string
		second     int
		wantStatus int
	}{
		{name: "allocations sum to 100", actor: "alice", second: 40, wantStatus: http.StatusCreated},
		{name: "allocations sum to 90", actor: "alice", second: 30, wantStatus: http.StatusBadRequest},
		{name: "missing actor", actor: "", second: 40, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/purchase-requests", tt.actor, prBody(tt.second))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodPost, "/api/v1/purchase-requests", "alice", prBody(30))
	fields := decode(t, w)["fields"].([]interface{})
	require.NotEmpty(t, fields)
	assert.Equal(t, "allocations", fields[0].(map[string]interface{})["field"])
}

func TestStatusChange_CascadesPaymentToPR(t *testing.T) {
	s := newTestServer(t, false)
	prID := s.submitPR(t)

	w := s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/purchase-requests/%d/payment", prID), "alice",
		map[string]interface{}{"invoice_number": "INV-1", "actual_pkr": "900"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paymentID := int64(decode(t, w)["record_id"].(float64))

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/records/payment/%d/status", paymentID), "bob",
		map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	history := decode(t, w)["history"].([]interface{})
	require.Len(t, history, 2)
	assert.Equal(t, "Payment", history[0].(map[string]interface{})["record_type"])
	assert.Equal(t, "PR", history[1].(map[string]interface{})["record_type"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/records/pr/%d/history", prID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	prHistory := decode(t, w)["history"].([]interface{})
	require.Len(t, prHistory, 2)
	assert.Nil(t, prHistory[0].(map[string]interface{})["old_status"])
	assert.Equal(t, "Completed", prHistory[1].(map[string]interface{})["new_status"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reports/purchase-requests/%d", prID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["timeline"].([]interface{}), 4)
}

func TestStatusChange_ErrorMapping(t *testing.T) {
	s := newTestServer(t, false)
	prID := s.submitPR(t)

	tests := []struct {
		name       string
		path       string
		actor      string
		body       interface{}
		wantStatus int
	}{
		{name: "status outside state set", path: fmt.Sprintf("/api/v1/records/pr/%d/status", prID), actor: "alice", body: map[string]string{"status": "Paid"}, wantStatus: http.StatusConflict},
		{name: "unknown record type", path: fmt.Sprintf("/api/v1/records/invoice/%d/status", prID), actor: "alice", body: map[string]string{"status": "Completed"}, wantStatus: http.StatusBadRequest},
		{name: "missing record", path: "/api/v1/records/dsa/99/status", actor: "alice", body: map[string]string{"status": "Completed"}, wantStatus: http.StatusNotFound},
		{name: "missing actor", path: fmt.Sprintf("/api/v1/records/pr/%d/status", prID), actor: "", body: map[string]string{"status": "Completed"}, wantStatus: http.StatusBadRequest},
		{name: "missing status", path: fmt.Sprintf("/api/v1/records/pr/%d/status", prID), actor: "alice", body: map[string]string{}, wantStatus: http.StatusBadRequest},
		{name: "bad id", path: "/api/v1/records/pr/abc/status", actor: "alice", body: map[string]string{"status": "Completed"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPut, tt.path, tt.actor, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestCalcEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantDays   interface{}
	}{
		{name: "dsa days", path: "/api/v1/calc/dsa-days?start=2024-03-01&end=2024-03-06", wantStatus: http.StatusOK, wantDays: "4.3"},
		{name: "dsa one night", path: "/api/v1/calc/dsa-days?start=2024-03-01&end=2024-03-02", wantStatus: http.StatusOK, wantDays: "0.3"},
		{name: "pr days", path: "/api/v1/calc/pr-days?from=2024-01-01&to=2024-01-05", wantStatus: http.StatusOK, wantDays: float64(5)},
		{name: "bad date", path: "/api/v1/calc/pr-days?from=yesterday&to=2024-01-05", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, "", nil)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantDays != nil {
				assert.Equal(t, tt.wantDays, decode(t, w)["days"])
			}
		})
	}
}

func advanceBody() map[string]interface{} {
	return map[string]interface{}{
		"date_request":   "2024-04-01",
		"staff_name":     "alice",
		"programme_unit": "Admin",
		"supplier_name":  "Acme",
		"invoice_type":   "Proforma",
		"total_amount":   5000,
	}
}

func TestCreateAdvance_IdempotencyKey(t *testing.T) {
	s := newTestServer(t, true)

	first := s.do(t, http.MethodPost, "/api/v1/advances", "alice", advanceBody(), IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := s.do(t, http.MethodPost, "/api/v1/advances", "alice", advanceBody(), IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	third := s.do(t, http.MethodPost, "/api/v1/advances", "alice", advanceBody(), IdempotencyKeyHeader, "k-2")
	require.Equal(t, http.StatusCreated, third.Code)

	w := s.do(t, http.MethodGet, "/api/v1/advances", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])
}

func TestLiquidation_ClosesAdvance(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/api/v1/advances", "alice", advanceBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	oaID := int64(decode(t, w)["id"].(float64))

	liq := map[string]interface{}{"date_request": "2024-04-20", "staff_name": "alice", "status": "Completed"}
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/advances/%d/liquidation", oaID), "alice", liq)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/advances/%d/liquidation", oaID), "alice", liq)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/advances/%d", oaID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Completed", decode(t, w)["status"])
}

func TestDashboardRemindersAndDelete(t *testing.T) {
	s := newTestServer(t, false)
	prID := s.submitPR(t)

	w := s.do(t, http.MethodGet, "/api/v1/dashboard/summary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)
	assert.Equal(t, float64(1), summary["total"])
	assert.Equal(t, float64(1), summary["counts"].(map[string]interface{})["Submitted"])

	w = s.do(t, http.MethodGet, "/api/v1/reminders", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/v1/filters/purchase-requests/pr_number", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"PR-001"}, decode(t, w)["values"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/purchase-requests/%d", prID), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "delete requires an actor")

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/purchase-requests/%d", prID), "admin", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchase-requests/%d", prID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
