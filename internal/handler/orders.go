package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/maharaja-pos/api/internal/enum"
	"github.com/maharaja-pos/api/internal/middleware"
	"github.com/maharaja-pos/api/internal/service"
	"github.com/maharaja-pos/api/internal/store"
	"github.com/maharaja-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*service.OrderDetail, error)
	ListOrders(ctx context.Context, filter service.ListOrdersFilter) ([]*service.OrderDetail, error)
	Advance(ctx context.Context, id uuid.UUID) (*service.OrderDetail, error)
	SetStatus(ctx context.Context, id uuid.UUID, target string) (*service.OrderDetail, error)
}

// Notifier pushes order events to connected portal clients.
// Satisfied by *ws.Hub.
type Notifier interface {
	Broadcast(event ws.Event)
}

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	svc      OrderServicer
	notifier Notifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, notifier Notifier) *OrderHandler {
	return &OrderHandler{svc: svc, notifier: notifier}
}

// --- Request / Response types ---

type createOrderRequest struct {
	GuestName   string                   `json:"guest_name"`
	TableNumber string                   `json:"table_number"`
	Lines       []createOrderLineRequest `json:"lines"`
}

type createOrderLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	GuestName   string              `json:"guest_name"`
	TableNumber string              `json:"table_number"`
	WaiterID    *string             `json:"waiter_id"`
	Status      string              `json:"status"`
	Total       string              `json:"total"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Lines       []orderLineResponse `json:"lines"`
}

type orderLineResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	ItemName   string    `json:"item_name"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	LineTotal  string    `json:"line_total"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// orderEventPayload is what gets pushed over the websocket on order mutations.
type orderEventPayload struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	TableNumber string    `json:"table_number"`
	Status      string    `json:"status"`
}

// --- Handlers ---

// Create handles POST /orders. Waiter-only; the route is gated by RequireRole.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines := make([]service.CreateOrderLineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = service.CreateOrderLineRequest{
			MenuItemID: l.MenuItemID,
			Quantity:   l.Quantity,
		}
	}

	detail, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		WaiterID:    claims.UserID,
		GuestName:   req.GuestName,
		TableNumber: req.TableNumber,
		Lines:       lines,
	})
	if err != nil {
		h.writeOrderError(w, err, "create order")
		return
	}

	h.broadcast("order.created", detail)
	writeJSON(w, http.StatusCreated, toOrderResponse(detail))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	details, err := h.svc.ListOrders(r.Context(), service.ListOrdersFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		h.writeOrderError(w, err, "list orders")
		return
	}

	resp := make([]orderResponse, len(details))
	for i, d := range details {
		resp[i] = toOrderResponse(d)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	detail, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeOrderError(w, err, "get order")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(detail))
}

// Advance handles POST /orders/{id}/advance: one step along the lifecycle.
// Advancing an already closed order returns it unchanged.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	detail, err := h.svc.Advance(r.Context(), orderID)
	if err != nil {
		h.writeOrderError(w, err, "advance order")
		return
	}

	h.broadcast("order.status_changed", detail)
	writeJSON(w, http.StatusOK, toOrderResponse(detail))
}

// statusOwner maps each target status to the role allowed to set it.
// Reception owns intake and checkout; the kitchen owns everything between.
var statusOwner = map[string]string{
	"pending":   enum.RoleReception,
	"accepted":  enum.RoleReception,
	"preparing": enum.RoleChef,
	"ready":     enum.RoleChef,
	"served":    enum.RoleChef,
	"closed":    enum.RoleReception,
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	owner, known := statusOwner[req.Status]
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	if claims.Role != owner {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		return
	}

	detail, err := h.svc.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeOrderError(w, err, "update order status")
		return
	}

	h.broadcast("order.status_changed", detail)
	writeJSON(w, http.StatusOK, toOrderResponse(detail))
}

// --- Helpers ---

// writeOrderError maps service errors to HTTP status codes. Anything not
// recognized is logged and reported as a 500.
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error, op string) {
	var valErr *service.ValidationError
	var transErr *service.TransitionError
	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": valErr.Error()})
	case errors.Is(err, service.ErrMenuItemNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.As(err, &transErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": transErr.Error()})
	case errors.Is(err, service.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (h *OrderHandler) broadcast(eventType string, detail *service.OrderDetail) {
	if h.notifier == nil {
		return
	}
	payload, err := json.Marshal(orderEventPayload{
		ID:          detail.Order.ID,
		OrderNumber: detail.Order.OrderNumber,
		TableNumber: detail.Order.TableNumber,
		Status:      detail.Order.Status,
	})
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.notifier.Broadcast(ws.Event{Type: eventType, Payload: payload})
}

func toOrderResponse(d *service.OrderDetail) orderResponse {
	o := d.Order
	resp := orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		GuestName:   o.GuestName,
		TableNumber: o.TableNumber,
		Status:      o.Status,
		Total:       d.Total().StringFixed(2),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.WaiterID.Valid {
		s := uuid.UUID(o.WaiterID.Bytes).String()
		resp.WaiterID = &s
	}

	resp.Lines = make([]orderLineResponse, len(d.Lines))
	for i, l := range d.Lines {
		resp.Lines[i] = toOrderLineResponse(l)
	}
	return resp
}

func toOrderLineResponse(l store.OrderLine) orderLineResponse {
	// Multiply on the stored value, format only at the end. Formatting
	// first would round before the multiplication.
	unit := numericToDecimal(l.UnitPrice)
	return orderLineResponse{
		ID:         l.ID,
		MenuItemID: l.MenuItemID,
		ItemName:   l.ItemName,
		Quantity:   l.Quantity,
		UnitPrice:  unit.StringFixed(2),
		LineTotal:  unit.Mul(decimal.NewFromInt32(l.Quantity)).StringFixed(2),
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}
