package httppresentation

import (
	"context"
	"errors"
	"net/http"
	"time"

	appfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/fulfillment"
	domfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/shared"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerAttemptID      = "X-Attempt-ID"
)

type Fulfiller interface {
	Fulfill(ctx context.Context, req *domfulfillment.Request) (*appfulfillment.Result, error)
}

type OrderReader interface {
	Get(ctx context.Context, id string) (*domorder.Order, error)
}

type PaymentReader interface {
	Get(ctx context.Context, id string) (*dompay.Record, error)
}

type AttemptReader interface {
	Get(ctx context.Context, id string) (*domfulfillment.Attempt, error)
}

type InventoryAdmin interface {
	Get(ctx context.Context, productID string) (*dominv.Record, error)
	Restock(ctx context.Context, productID string, quantity int) (*dominv.Record, error)
}

// Deps are the application services the handler exposes.
type Deps struct {
	Fulfiller Fulfiller
	Orders    OrderReader
	Payments  PaymentReader
	Attempts  AttemptReader
	Inventory InventoryAdmin
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type Handler struct {
	deps        Deps
	serviceName string
	log         observability.Logger
	tel         observability.Observability
}

func NewHandler(serviceName string, deps Deps, tel observability.Observability) *Handler {
	logger, _, _ := observability.Resolve(tel)
	return &Handler{
		deps:        deps,
		serviceName: serviceName,
		log:         logger.With(observability.F("component", componentHTTPHandler)),
		tel:         tel,
	}
}

// Router wires every route behind: trace → request logger → HTTP metrics → access log.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(h.serviceName),
		RequestLogger(h.log, func(c *gin.Context) string { return c.GetHeader(headerRequestID) }),
		HTTPMetrics(h.tel),
		AccessLog(h.log),
	)

	r.POST("/orders", h.handleFulfill)
	r.GET("/orders/:id", h.handleGetOrder)
	r.GET("/payments/:id", h.handleGetPayment)
	r.GET("/fulfillments/:id", h.handleGetAttempt)
	r.GET("/inventory/:productId", h.handleGetInventory)
	r.PUT("/inventory/:productId", h.handlePutInventory)
	r.GET("/health", h.handleHealth)
	if h.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.deps.Metrics))
	}
	return r
}

type fulfillRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

type stepResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type fulfillResponse struct {
	AttemptID string         `json:"attempt_id"`
	Outcome   string         `json:"outcome"`
	Message   string         `json:"message"`
	Stage     string         `json:"stage"`
	OrderID   string         `json:"order_id,omitempty"`
	PaymentID string         `json:"payment_id,omitempty"`
	Steps     []stepResponse `json:"steps"`
}

func (h *Handler) handleFulfill(c *gin.Context) {
	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.deps.Fulfiller.Fulfill(c.Request.Context(), &domfulfillment.Request{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Amount:    req.Amount,
	})
	if result != nil {
		c.Header(headerAttemptID, result.AttemptID)
		c.Request = c.Request.WithContext(logctx.Enrich(c.Request.Context(), h.log,
			observability.F("attempt_id", result.AttemptID),
		))
	}
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, fulfillResponse{
		AttemptID: result.AttemptID,
		Outcome:   string(result.Outcome),
		Message:   result.Message(),
		Stage:     string(result.Stage),
		OrderID:   result.OrderID,
		PaymentID: result.PaymentID,
		Steps:     toStepResponses(result.Steps),
	})
}

type orderResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) handleGetOrder(c *gin.Context) {
	o, err := h.deps.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse{
		ID:        o.ID,
		ProductID: o.ProductID,
		Quantity:  o.Quantity,
		Amount:    o.Amount.String(),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	})
}

type paymentResponse struct {
	ID             string    `json:"id"`
	OrderReference string    `json:"order_reference"`
	Amount         string    `json:"amount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (h *Handler) handleGetPayment(c *gin.Context) {
	p, err := h.deps.Payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentResponse{
		ID:             p.ID,
		OrderReference: p.OrderReference,
		Amount:         p.Amount.String(),
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	})
}

type attemptResponse struct {
	ID         string         `json:"id"`
	ProductID  string         `json:"product_id"`
	Quantity   int            `json:"quantity"`
	Amount     string         `json:"amount"`
	Stage      string         `json:"stage"`
	Outcome    string         `json:"outcome,omitempty"`
	OrderID    string         `json:"order_id,omitempty"`
	PaymentID  string         `json:"payment_id,omitempty"`
	Steps      []stepResponse `json:"steps"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func (h *Handler) handleGetAttempt(c *gin.Context) {
	a, err := h.deps.Attempts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, attemptResponse{
		ID:         a.ID,
		ProductID:  a.Request.ProductID,
		Quantity:   a.Request.Quantity,
		Amount:     a.Request.Amount.String(),
		Stage:      string(a.Stage),
		Outcome:    string(a.Outcome),
		OrderID:    a.OrderID,
		PaymentID:  a.PaymentID,
		Steps:      toStepResponses(a.Steps),
		Error:      a.Error,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
	})
}

type inventoryRequest struct {
	AvailableQuantity *int `json:"available_quantity" binding:"required"`
}

type inventoryResponse struct {
	ProductID         string    `json:"product_id"`
	AvailableQuantity int       `json:"available_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (h *Handler) handleGetInventory(c *gin.Context) {
	rec, err := h.deps.Inventory.Get(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(rec))
}

func (h *Handler) handlePutInventory(c *gin.Context) {
	var req inventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rec, err := h.deps.Inventory.Restock(c.Request.Context(), c.Param("productId"), *req.AvailableQuantity)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(rec))
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func toInventoryResponse(rec *dominv.Record) inventoryResponse {
	return inventoryResponse{
		ProductID:         rec.ProductID,
		AvailableQuantity: rec.AvailableQuantity,
		UpdatedAt:         rec.UpdatedAt,
	}
}

func toStepResponses(steps []domfulfillment.Step) []stepResponse {
	out := make([]stepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepResponse{Name: string(s.Name), Status: string(s.Status), Error: s.Error})
	}
	return out
}

type errorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Details   string    `json:"details"`
}

func writeError(c *gin.Context, status int, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Timestamp: time.Now().UTC(),
		Message:   message,
		Details:   details,
	})
}

func (h *Handler) writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidArgument):
		writeError(c, http.StatusBadRequest, "invalid argument", err)
	case errors.Is(err, shared.ErrNotFound):
		writeError(c, http.StatusNotFound, "not found", err)
	default:
		logctx.FromOr(c.Request.Context(), h.log).Error("request_failed",
			observability.F("error", err.Error()),
		)
		writeError(c, http.StatusInternalServerError, "internal error", err)
	}
}
