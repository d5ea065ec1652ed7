package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotisserie-backend/config"
	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/clock"
	"rotisserie-backend/internal/db/dbtest"
	"rotisserie-backend/internal/events"
	"rotisserie-backend/internal/kitchen"
	"rotisserie-backend/internal/model"
	"rotisserie-backend/internal/mw"
	"rotisserie-backend/internal/store"
	"rotisserie-backend/internal/telemetry"
)

var start = time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	store  store.Store
	clock  *clock.Manual
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewGormStore(dbtest.NewSQLite(t))
	clk := clock.NewManual(start)
	metrics := telemetry.New()

	n := 0
	b := board.New(board.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("machine-%d", n)
	}))
	boardCfg := config.BoardConfig{DefaultMachineName: "Main Machine", CookMinutesOptions: []int{30, 45, 60}, DefaultCookMinutes: 45}
	k := kitchen.NewService(b, st, clk, events.Nop{}, metrics, boardCfg, zerolog.Nop())
	require.NoError(t, k.Load(context.Background()))

	handler := NewHandler(st, k, clk, &webpush.Options{VAPIDPublicKey: "test-public-key"}, zerolog.Nop())
	serverCfg := config.ServerConfig{Environment: "development", RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 5}

	return &testServer{
		router: NewRouter(handler, metrics, serverCfg, zerolog.Nop()),
		store:  st,
		clock:  clk,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) createCustomer(t *testing.T, name, phone string) model.Customer {
	w := ts.do(t, http.MethodPost, "/api/customers", gin.H{"name": name, "phone": phone})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Customer](t, w)
}

func (ts *testServer) createOrder(t *testing.T, customerID int64) model.Order {
	w := ts.do(t, http.MethodPost, "/api/orders", gin.H{"customerId": customerID, "quantity": 2, "unitPrice": 45.0, "description": "whole chicken"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Order](t, w)
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err    error
		status int
	}{
		{board.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", store.ErrInvalid), http.StatusUnprocessableEntity},
		{board.ErrNotFound, http.StatusNotFound},
		{store.ErrNotFound, http.StatusNotFound},
		{board.ErrSlotOccupied, http.StatusConflict},
		{board.ErrSlotNotOccupied, http.StatusConflict},
		{board.ErrLastMachine, http.StatusConflict},
		{store.ErrInUse, http.StatusConflict},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.status, statusFor(tc.err))
		})
	}
}

func TestCustomersAPI(t *testing.T) {
	ts := newTestServer(t)

	ana := ts.createCustomer(t, "Ana Souza", "(11) 98765-4321")
	assert.Equal(t, "11987654321", ana.Phone)

	w := ts.do(t, http.MethodPost, "/api/customers", gin.H{"name": "Bad", "phone": "123"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodPost, "/api/customers", gin.H{"name": "No phone"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/customers/phone/11987654321", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ana.ID, decode[model.Customer](t, w).ID)

	w = ts.do(t, http.MethodGet, "/api/customers?q=souza", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Customer](t, w), 1)

	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/customers/%d", ana.ID), gin.H{"name": "Ana S."})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana S.", decode[model.Customer](t, w).Name)

	w = ts.do(t, http.MethodGet, "/api/customers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodGet, "/api/customers/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.createOrder(t, ana.ID)
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/customers/%d/orders", ana.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Order](t, w), 1)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/customers/%d", ana.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrdersAPI(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.createCustomer(t, "Ana Souza", "11987654321")

	order := ts.createOrder(t, ana.ID)
	assert.Equal(t, "Ana Souza", order.Customer.Name)
	assert.Equal(t, model.StagePending, order.Stage)
	assert.True(t, start.Equal(order.OrderedAt))

	w := ts.do(t, http.MethodPost, "/api/orders", gin.H{"customerId": 999, "unitPrice": 10.0})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/orders/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]board.PendingOrder](t, w)
	require.Len(t, pending, 1)
	assert.InDelta(t, 90.0, pending[0].Price, 0.001)

	w = ts.do(t, http.MethodGet, "/api/orders/unpaid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Order](t, w), 1)

	w = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/paid", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[model.Order](t, w).Paid)

	w = ts.do(t, http.MethodGet, "/api/orders/awaiting-delivery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Order](t, w), 1)

	w = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/paid", order.ID), gin.H{"value": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[model.Order](t, w).Paid)

	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d", order.ID), gin.H{"notes": "no salt", "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[model.Order](t, w)
	assert.Equal(t, "no salt", updated.Notes)
	assert.Equal(t, 3, updated.Quantity)

	w = ts.do(t, http.MethodGet, "/api/orders?status=nonsense", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodGet, "/api/orders?q=ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Order](t, w), 1)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBoardAPI_CookLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.createCustomer(t, "Ana Souza", "11987654321")
	order := ts.createOrder(t, ana.ID)
	other := ts.createOrder(t, ana.ID)

	slotPath := "/api/machines/machine-1/slots/3"

	w := ts.do(t, http.MethodPut, slotPath, gin.H{"order_id": order.ID, "estimated_minutes": 45, "notes": "crispy"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	slot := decode[board.Slot](t, w)
	assert.Equal(t, 3, slot.Position)
	assert.Equal(t, order.ID, slot.Occupancy.OrderID)

	w = ts.do(t, http.MethodPut, slotPath, gin.H{"order_id": other.ID})
	assert.Equal(t, http.StatusConflict, w.Code, "slot already occupied")

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code, "cooking orders cannot be deleted")

	w = ts.do(t, http.MethodPut, "/api/machines/machine-1/slots/13", gin.H{"order_id": other.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPut, "/api/machines/machine-1/slots/x", gin.H{"order_id": other.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPut, "/api/machines/machine-1/slots/4", gin.H{"order_id": other.ID, "estimated_minutes": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.clock.Advance(50 * time.Minute)
	w = ts.do(t, http.MethodGet, "/api/machines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[board.Snapshot](t, w)
	require.Len(t, snap.Machines, 1)
	assert.Equal(t, 1, snap.OccupiedCount)
	assert.Equal(t, 1, snap.ReadyCount)
	assert.Equal(t, board.SlotsPerMachine, snap.TotalCapacity)
	assert.Equal(t, board.StatusReady, snap.Machines[0].Slots[2].Status)
	assert.Equal(t, 100.0, snap.Machines[0].Slots[2].Progress.Percent)

	w = ts.do(t, http.MethodDelete, slotPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	released := decode[board.Released](t, w)
	assert.Equal(t, order.ID, released.Returned.ID)
	assert.Equal(t, board.ReturnedDescription, released.Returned.Description)

	w = ts.do(t, http.MethodDelete, slotPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/orders/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]board.PendingOrder](t, w), 2)

	w = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/delivered", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[model.Order](t, w).Delivered)
}

func TestBoardAPI_Machines(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodDelete, "/api/machines/machine-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "last machine stays")

	w = ts.do(t, http.MethodPost, "/api/machines", gin.H{"name": "Back Oven"})
	require.Equal(t, http.StatusCreated, w.Code)
	added := decode[board.Machine](t, w)
	assert.Equal(t, "machine-2", added.ID)

	w = ts.do(t, http.MethodPost, "/api/machines", gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/machines/machine-2", gin.H{"name": "Oven 2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Oven 2", decode[board.Machine](t, w).Name)

	w = ts.do(t, http.MethodPatch, "/api/machines/nope", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/machines/machine-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"machineId":"machine-1","discarded":[]}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/cook-options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"minutes":[30,45,60],"defaultMinutes":45}`, w.Body.String())
}

func TestDashboardAPI(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.createCustomer(t, "Ana Souza", "11987654321")
	order := ts.createOrder(t, ana.ID)
	ts.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/paid", order.ID), nil)

	w := ts.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(mw.CacheHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1.0, body["totalCustomers"])
	assert.Equal(t, 1.0, body["ordersToday"])
	assert.Equal(t, 90.0, body["revenueToday"])
	boardSummary := body["board"].(map[string]any)
	assert.Equal(t, float64(board.SlotsPerMachine), boardSummary["totalCapacity"])

	w = ts.do(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, "HIT", w.Header().Get(mw.CacheHeader))
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rotisserie_slots_capacity 12")
}
