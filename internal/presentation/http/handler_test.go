package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/fulfillment"
	appinventory "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/payment"
	domfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/obstest"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/payment/gateway"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	router *gin.Engine
	audit  *appfulfillment.Audit
	tel    *obstest.Telemetry
}

// newServer wires the real services over memory stores. Attempts are recorded
// synchronously through the audit use case so reads are deterministic.
func newServer(t *testing.T) *server {
	t.Helper()
	tel := obstest.New()
	ids := id.NewUUIDGenerator()

	inventory := appinventory.NewService(memory.NewInventoryRepository(), tel)
	require.NoError(t, inventory.Seed(context.Background(), map[string]int{"PROD123": 10}))
	payments := apppayment.NewService(memory.NewPaymentRepository(), gateway.AlwaysApprove{}, ids, tel)
	orders := apporder.NewService(memory.NewOrderRepository(), ids, tel)
	audit := appfulfillment.NewAudit(memory.NewAttemptRepository(), tel)
	orch := appfulfillment.NewOrchestrator(inventory, payments, orders, ids, auditPublisher{audit}, tel)

	h := NewHandler("fulfillment-test", Deps{
		Fulfiller: orch,
		Orders:    orders,
		Payments:  payments,
		Attempts:  audit,
		Inventory: inventory,
		Metrics:   promhttp.HandlerFor(tel.Registry, promhttp.HandlerOpts{}),
	}, tel)
	return &server{router: h.Router(), audit: audit, tel: tel}
}

type auditPublisher struct{ audit *appfulfillment.Audit }

func (p auditPublisher) Publish(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domfulfillment.AttemptFinishedEvent)
	if !ok {
		return nil
	}
	return p.audit.Record(ctx, &evt.Attempt)
}

func (s *server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestFulfillOutcomes(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/orders", `{"product_id":"PROD123","quantity":5,"amount":"50.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok := decode[fulfillResponse](t, rec)
	assert.Equal(t, "success", ok.Outcome)
	assert.Equal(t, "processed successfully", ok.Message)
	assert.Equal(t, "DONE", ok.Stage)
	assert.NotEmpty(t, ok.OrderID)
	assert.NotEmpty(t, ok.PaymentID)
	assert.Len(t, ok.Steps, 4)
	assert.Equal(t, ok.AttemptID, rec.Header().Get(headerAttemptID))
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	rec = s.do(t, http.MethodPost, "/orders", `{"product_id":"PROD123","quantity":15,"amount":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rejected := decode[fulfillResponse](t, rec)
	assert.Equal(t, "insufficient_inventory", rejected.Outcome)
	assert.Equal(t, "insufficient inventory", rejected.Message)
	assert.Empty(t, rejected.OrderID)

	rec = s.do(t, http.MethodGet, "/inventory/PROD123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[inventoryResponse](t, rec).AvailableQuantity)

	rec = s.do(t, http.MethodGet, "/orders/"+ok.OrderID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[orderResponse](t, rec)
	assert.Equal(t, "CREATED", order.Status)
	assert.Equal(t, "50", order.Amount)

	rec = s.do(t, http.MethodGet, "/payments/"+ok.PaymentID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ok.OrderID, decode[paymentResponse](t, rec).OrderReference)

	rec = s.do(t, http.MethodGet, "/fulfillments/"+rejected.AttemptID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	attempt := decode[attemptResponse](t, rec)
	assert.Equal(t, "REJECTED_INVENTORY", attempt.Stage)
	require.Len(t, attempt.Steps, 1)
	assert.Equal(t, "check_inventory", attempt.Steps[0].Name)
}

func TestFulfillValidationErrors(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"product_id":`},
		{"zero quantity", `{"product_id":"PROD123","quantity":0,"amount":1}`},
		{"negative amount", `{"product_id":"PROD123","quantity":1,"amount":-1}`},
		{"empty product", `{"product_id":"","quantity":1,"amount":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/orders", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[errorResponse](t, rec)
			assert.NotEmpty(t, body.Message)
			assert.NotEmpty(t, body.Details)
			assert.False(t, body.Timestamp.IsZero())
		})
	}
}

func TestNotFound(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/orders/nope", "/payments/nope", "/fulfillments/nope", "/inventory/nope"} {
		rec := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "not found", decode[errorResponse](t, rec).Message)
	}
}

func TestPutInventory(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPut, "/inventory/PROD9", `{"available_quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[inventoryResponse](t, rec).AvailableQuantity)

	rec = s.do(t, http.MethodPut, "/inventory/PROD9", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/inventory/PROD9", `{"available_quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenFulfiller struct{}

func (brokenFulfiller) Fulfill(context.Context, *domfulfillment.Request) (*appfulfillment.Result, error) {
	return &appfulfillment.Result{AttemptID: "a-500", Stage: domfulfillment.StageFailed},
		errors.New("fulfillment: create order: connection reset")
}

func TestFulfillInternalError(t *testing.T) {
	tel := obstest.New()
	h := NewHandler("fulfillment-test", Deps{Fulfiller: brokenFulfiller{}}, tel)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"product_id":"P","quantity":1,"amount":1}`))
	req.Header.Set(headerRequestID, "req-1")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "a-500", rec.Header().Get(headerAttemptID))
	assert.Equal(t, "req-1", rec.Header().Get(headerRequestID))
	assert.Contains(t, decode[errorResponse](t, rec).Details, "connection reset")

	failures := tel.Messages("request_failed")
	require.Len(t, failures, 1)
	assert.Equal(t, "req-1", failures[0].ContextMap()["request_id"])
	assert.Equal(t, "a-500", failures[0].ContextMap()["attempt_id"])

	access := tel.Messages("http_access")
	require.Len(t, access, 1)
	assert.Equal(t, "/orders", access[0].ContextMap()["route"])
	assert.Equal(t, "a-500", access[0].ContextMap()["attempt_id"])
}

func TestMetricsAndHealth(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	s.do(t, http.MethodGet, "/orders/abc", "")

	assert.Equal(t, 1.0, s.tel.Counter(observability.MHTTPRequests,
		observability.L("route", "/orders/:id"), observability.L("status", "404")))

	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
