package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Create(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	Get(ctx context.Context, id uuid.UUID) (*service.OrderResult, error)
	List(ctx context.Context, status string, limit, offset int32) ([]database.Order, error)
	Update(ctx context.Context, id uuid.UUID, req service.UpdateOrderRequest) (*service.OrderResult, error)
	AddItem(ctx context.Context, orderID uuid.UUID, item service.OrderItemRequest) (*service.OrderResult, error)
	UpdateItemDetails(ctx context.Context, itemID uuid.UUID, req service.UpdateItemRequest) (*service.OrderResult, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) (*service.OrderResult, error)
	AddPayment(ctx context.Context, orderID uuid.UUID, req service.PaymentRequest) (*service.OrderResult, error)
	Payments(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Post("/{id}/items", h.AddItem)
	r.Patch("/{id}/items/{itemID}", h.UpdateItem)
	r.Delete("/{id}/items/{itemID}", h.DeleteItem)
	r.Post("/{id}/payments", h.AddPayment)
	r.Get("/{id}/payments", h.ListPayments)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderNumber     string                   `json:"order_number"`
	OrderType       string                   `json:"order_type"`
	TableID         string                   `json:"table_id"`
	DeliveryAddress string                   `json:"delivery_address"`
	DiscountID      string                   `json:"discount_id"`
	Notes           string                   `json:"notes"`
	Priority        string                   `json:"priority"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID      string                    `json:"product_id"`
	Quantity       int32                     `json:"quantity"`
	DiscountAmount string                    `json:"discount_amount"`
	Notes          string                    `json:"notes"`
	Details        []orderItemDetailRequest  `json:"details"`
}

type orderItemDetailRequest struct {
	Name       string `json:"name"`
	PriceDelta string `json:"price_delta"`
}

type updateOrderRequest struct {
	OrderType       *string `json:"order_type"`
	Status          *string `json:"status"`
	TableID         *string `json:"table_id"`
	DeliveryAddress *string `json:"delivery_address"`
	DiscountID      *string `json:"discount_id"`
	Notes           *string `json:"notes"`
}

type updateItemRequest struct {
	Quantity       *int32                   `json:"quantity"`
	Status         *string                  `json:"status"`
	DiscountAmount *string                  `json:"discount_amount"`
	Notes          *string                  `json:"notes"`
	Details        []orderItemDetailRequest `json:"details"`
}

type paymentRequest struct {
	Method   string `json:"method"`
	Amount   string `json:"amount"`
	Received string `json:"received"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	BranchID        uuid.UUID           `json:"branch_id"`
	OrderNumber     string              `json:"order_number"`
	OrderType       string              `json:"order_type"`
	Status          string              `json:"status"`
	TableID         *string             `json:"table_id"`
	DeliveryAddress *string             `json:"delivery_address"`
	DiscountID      *string             `json:"discount_id"`
	Subtotal        string              `json:"subtotal"`
	DiscountAmount  string              `json:"discount_amount"`
	TaxAmount       string              `json:"tax_amount"`
	TotalAmount     string              `json:"total_amount"`
	ReceivedAmount  *string             `json:"received_amount"`
	ChangeAmount    *string             `json:"change_amount"`
	Notes           *string             `json:"notes"`
	CreatedBy       uuid.UUID           `json:"created_by"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items"`
	QueueDegraded   bool                `json:"queue_degraded,omitempty"`
}

type orderItemResponse struct {
	ID             uuid.UUID                 `json:"id"`
	ProductID      uuid.UUID                 `json:"product_id"`
	Quantity       int32                     `json:"quantity"`
	UnitPrice      string                    `json:"unit_price"`
	DiscountAmount string                    `json:"discount_amount"`
	Subtotal       string                    `json:"subtotal"`
	Status         string                    `json:"status"`
	Notes          *string                   `json:"notes"`
	Details        []orderItemDetailResponse `json:"details"`
}

type orderItemDetailResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceDelta string    `json:"price_delta"`
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ShiftID     *string   `json:"shift_id"`
	Method      string    `json:"method"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	ProcessedBy uuid.UUID `json:"processed_by"`
	ProcessedAt time.Time `json:"processed_at"`
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		ShiftID:     uuidPtr(p.ShiftID),
		Method:      p.Method,
		Amount:      numericString(p.Amount),
		Status:      p.Status,
		ProcessedBy: p.ProcessedBy,
		ProcessedAt: p.ProcessedAt,
	}
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		details := make([]orderItemDetailResponse, len(it.Details))
		for j, d := range it.Details {
			details[j] = orderItemDetailResponse{
				ID:         d.ID,
				Name:       d.Name,
				PriceDelta: numericString(d.PriceDelta),
			}
		}
		resp.Items[i] = orderItemResponse{
			ID:             it.Item.ID,
			ProductID:      it.Item.ProductID,
			Quantity:       it.Item.Quantity,
			UnitPrice:      numericString(it.Item.UnitPrice),
			DiscountAmount: numericString(it.Item.DiscountAmount),
			Subtotal:       numericString(it.Item.Subtotal),
			Status:         it.Item.Status,
			Notes:          textPtr(it.Item.Notes),
			Details:        details,
		}
	}
	resp.QueueDegraded = result.SideEffects.Degraded()
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		BranchID:        o.BranchID,
		OrderNumber:     o.OrderNumber,
		OrderType:       o.OrderType,
		Status:          o.Status,
		TableID:         uuidPtr(o.TableID),
		DeliveryAddress: textPtr(o.DeliveryAddress),
		DiscountID:      uuidPtr(o.DiscountID),
		Subtotal:        numericString(o.Subtotal),
		DiscountAmount:  numericString(o.DiscountAmount),
		TaxAmount:       numericString(o.TaxAmount),
		TotalAmount:     numericString(o.TotalAmount),
		ReceivedAmount:  numericPtr(o.ReceivedAmount),
		ChangeAmount:    numericPtr(o.ChangeAmount),
		Notes:           textPtr(o.Notes),
		CreatedBy:       o.CreatedBy,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           []orderItemResponse{},
	}
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcReq := service.CreateOrderRequest{
		OrderNumber:     req.OrderNumber,
		OrderType:       req.OrderType,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		Priority:        req.Priority,
	}
	if req.TableID != "" {
		id, err := uuid.Parse(req.TableID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		svcReq.TableID = &id
	}
	if req.DiscountID != "" {
		id, err := uuid.Parse(req.DiscountID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount_id"})
			return
		}
		svcReq.DiscountID = &id
	}

	svcReq.Items = make([]service.OrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItem, err := toItemRequest(item)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("items[%d]: %s", i, err),
			})
			return
		}
		svcReq.Items[i] = svcItem
	}

	result, err := h.svc.Create(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

func toItemRequest(item createOrderItemRequest) (service.OrderItemRequest, error) {
	productID, err := uuid.Parse(item.ProductID)
	if err != nil {
		return service.OrderItemRequest{}, fmt.Errorf("invalid product_id")
	}
	details := make([]service.OrderItemDetailRequest, len(item.Details))
	for j, d := range item.Details {
		details[j] = service.OrderItemDetailRequest{Name: d.Name, PriceDelta: d.PriceDelta}
	}
	return service.OrderItemRequest{
		ProductID:      productID,
		Quantity:       item.Quantity,
		DiscountAmount: item.DiscountAmount,
		Notes:          item.Notes,
		Details:        details,
	}, nil
}

// List handles GET /branches/{bid}/orders.
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

	orders, err := h.svc.List(r.Context(), r.URL.Query().Get("status"), int32(limit), int32(offset))
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// Update handles PATCH /branches/{bid}/orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.UpdateOrderRequest{
		OrderType:       req.OrderType,
		Status:          req.Status,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}
	if req.TableID != nil {
		id, err := uuid.Parse(*req.TableID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		svcReq.TableID = &id
	}
	if req.DiscountID != nil {
		id, err := uuid.Parse(*req.DiscountID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount_id"})
			return
		}
		svcReq.DiscountID = &id
	}

	result, err := h.svc.Update(r.Context(), orderID, svcReq)
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// AddItem handles POST /branches/{bid}/orders/{id}/items.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req createOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcItem, err := toItemRequest(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.svc.AddItem(r.Context(), orderID, svcItem)
	if err != nil {
		writeServiceError(w, "add order item", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateItem handles PATCH /branches/{bid}/orders/{id}/items/{itemID}.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.UpdateItemRequest{
		Quantity:       req.Quantity,
		Status:         req.Status,
		DiscountAmount: req.DiscountAmount,
		Notes:          req.Notes,
	}
	if req.Details != nil {
		svcReq.Details = make([]service.OrderItemDetailRequest, len(req.Details))
		for j, d := range req.Details {
			svcReq.Details[j] = service.OrderItemDetailRequest{Name: d.Name, PriceDelta: d.PriceDelta}
		}
	}

	result, err := h.svc.UpdateItemDetails(r.Context(), itemID, svcReq)
	if err != nil {
		writeServiceError(w, "update order item", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// DeleteItem handles DELETE /branches/{bid}/orders/{id}/items/{itemID}.
func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	result, err := h.svc.DeleteItem(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, "delete order item", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// AddPayment handles POST /branches/{bid}/orders/{id}/payments.
func (h *OrderHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.AddPayment(r.Context(), orderID, service.PaymentRequest{
		Method:   req.Method,
		Amount:   req.Amount,
		Received: req.Received,
	})
	if err != nil {
		writeServiceError(w, "add payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// ListPayments handles GET /branches/{bid}/orders/{id}/payments.
func (h *OrderHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	payments, err := h.svc.Payments(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list payments", err)
		return
	}
	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string][]paymentResponse{"payments": resp})
}
