package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/pricing"
	"github.com/warungpos/api/internal/tenant"
)

const maxOrderNumberAttempts = 5

// OrderStore defines the DB methods the order engine needs.
// Satisfied by *database.Queries.
type OrderStore interface {
	GetOpenShift(ctx context.Context) (database.Shift, error)
	GetProductForOrder(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetDiscount(ctx context.Context, id uuid.UUID) (database.Discount, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.RestaurantTable, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.RestaurantTable, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	UpdateOrderPayment(ctx context.Context, arg database.UpdateOrderPaymentParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id uuid.UUID) error
	CancelOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreateOrderItemDetail(ctx context.Context, arg database.CreateOrderItemDetailParams) (database.OrderItemDetail, error)
	ListOrderItemDetailsByItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemDetail, error)
	DeleteOrderItemDetailsByItem(ctx context.Context, orderItemID uuid.UUID) error
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// NewOrderStore creates an OrderStore from the queries bound to the
// current transaction.
type NewOrderStore func(q *database.Queries) OrderStore

// QueueMirror is the slice of the queue scheduler the order engine
// drives after commit. Satisfied by *QueueService.
type QueueMirror interface {
	Enqueue(ctx context.Context, orderID uuid.UUID, priority string) (database.QueueEntry, error)
	MirrorOrderStatus(ctx context.Context, orderID uuid.UUID, orderStatus string) error
}

// OrderService orchestrates the order lifecycle. All mutations run
// through the tenant scope's transaction coordinator; queue maintenance
// and notifications fire after commit.
type OrderService struct {
	newStore     NewOrderStore
	queue        QueueMirror
	notifier     Notifier
	taxRate      decimal.Decimal
	taxInclusive bool
}

func NewOrderService(newStore NewOrderStore, queue QueueMirror, notifier Notifier, taxRate decimal.Decimal, taxInclusive bool) *OrderService {
	return &OrderService{
		newStore:     newStore,
		queue:        queue,
		notifier:     notifier,
		taxRate:      taxRate,
		taxInclusive: taxInclusive,
	}
}

// --- Requests / results ---

type OrderItemDetailRequest struct {
	Name       string
	PriceDelta string
}

type OrderItemRequest struct {
	ProductID      uuid.UUID
	Quantity       int32
	DiscountAmount string // optional fixed amount off this line
	Notes          string
	Details        []OrderItemDetailRequest
}

type CreateOrderRequest struct {
	OrderNumber     string // generated when empty
	OrderType       string
	TableID         *uuid.UUID
	DeliveryAddress string
	DiscountID      *uuid.UUID
	Notes           string
	Priority        string // queue priority, NORMAL when empty
	Items           []OrderItemRequest
}

type UpdateOrderRequest struct {
	OrderType       *string
	Status          *string
	TableID         *uuid.UUID
	DeliveryAddress *string
	DiscountID      *uuid.UUID
	Notes           *string
}

type UpdateItemRequest struct {
	Quantity       *int32
	Status         *string
	DiscountAmount *string
	Notes          *string
	// Details, when non-nil, replaces the item's detail set wholesale.
	Details []OrderItemDetailRequest
}

type PaymentRequest struct {
	Method   string
	Amount   string
	Received string
}

type OrderItemResult struct {
	Item    database.OrderItem
	Details []database.OrderItemDetail
}

// OrderResult is a consistent snapshot of the order re-read inside the
// same transaction that mutated it.
type OrderResult struct {
	Order       database.Order
	Items       []OrderItemResult
	SideEffects SideEffects
}

// --- Create ---

// Create validates and persists a new order with its items and details,
// recalculates totals, occupies the table for dine-in, and after commit
// enqueues the order (best-effort) and emits notifications.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	tc := scope.Tenant()
	if tc.BranchID == nil {
		return nil, ErrMissingBranch
	}
	if tc.UserID == nil {
		return nil, ErrMissingUser
	}

	orderType, err := validateOrderType(req.OrderType)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	if orderType == enum.OrderTypeDelivery && req.DeliveryAddress == "" {
		return nil, ErrDeliveryAddress
	}
	if orderType == enum.OrderTypeDineIn && req.TableID == nil {
		return nil, ErrTableRequired
	}
	priority := req.Priority
	if priority == "" {
		priority = enum.QueuePriorityNormal
	}
	if enum.QueuePriorityRank(priority) == 0 {
		return nil, ErrInvalidPriority
	}

	// Retry loop: a generated order number can collide with a
	// concurrent creation; the unique constraint reports it as 23505
	// and the whole transaction is retried with a fresh suffix.
	var result *OrderResult
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		orderNumber := req.OrderNumber
		if orderNumber == "" {
			orderNumber = generateOrderNumber(time.Now())
		}
		result, err = s.createTx(ctx, scope, tc, req, orderType, orderNumber)
		if err == nil {
			break
		}
		if isOrderNumberConflict(err) {
			if req.OrderNumber != "" {
				return nil, ErrOrderNumberTaken
			}
			continue
		}
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: could not allocate a unique order number", ErrConflict)
	}

	// Post-commit side effects. The queue is a derived view: a failure
	// here is reported, logged, and does not undo the order.
	if _, qerr := s.queue.Enqueue(ctx, result.Order.ID, priority); qerr != nil {
		log.Printf("ERROR: enqueue order %s: %v", result.Order.ID, qerr)
		result.SideEffects.QueueErr = qerr
	}

	s.notifier.EmitToBranch(*tc.BranchID, EventOrderCreated, result)
	s.notifier.EmitToRole(*tc.BranchID, enum.UserRoleKitchen, EventOrderCreated, result)
	if result.Order.TableID.Valid {
		s.notifier.EmitToBranch(*tc.BranchID, EventTableUpdated, map[string]any{
			"table_id": uuidFromPg(result.Order.TableID),
			"status":   enum.TableStatusUnavailable,
		})
	}
	return result, nil
}

func (s *OrderService) createTx(ctx context.Context, scope *tenant.Scope, tc tenant.Context, req CreateOrderRequest, orderType, orderNumber string) (*OrderResult, error) {
	var result *OrderResult
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)

		// Shift gate: mutating order work requires an open shift.
		if _, err := store.GetOpenShift(ctx); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoOpenShift
			}
			return fmt.Errorf("get open shift: %w", err)
		}

		// Cross-entity references must resolve inside the branch; RLS
		// makes foreign rows invisible, so a lookup miss covers both
		// "missing" and "wrong branch".
		if req.TableID != nil {
			if _, err := store.GetTable(ctx, *req.TableID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrTableNotFound
				}
				return fmt.Errorf("get table: %w", err)
			}
		}
		if req.DiscountID != nil {
			if _, err := store.GetDiscount(ctx, *req.DiscountID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrDiscountNotFound
				}
				return fmt.Errorf("get discount: %w", err)
			}
		}

		order, err := store.CreateOrder(ctx, database.CreateOrderParams{
			BranchID:        *tc.BranchID,
			OrderNumber:     orderNumber,
			OrderType:       orderType,
			Status:          enum.OrderStatusPending,
			TableID:         pgUUID(req.TableID),
			DeliveryAddress: pgText(req.DeliveryAddress),
			DiscountID:      pgUUID(req.DiscountID),
			Notes:           pgText(req.Notes),
			CreatedBy:       *tc.UserID,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for i, item := range req.Items {
			if _, err := s.insertItem(ctx, store, order, i, item); err != nil {
				return err
			}
		}

		order, err = s.recalc(ctx, store, order)
		if err != nil {
			return err
		}

		if orderType == enum.OrderTypeDineIn && req.TableID != nil {
			if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
				ID:     *req.TableID,
				Status: enum.TableStatusUnavailable,
			}); err != nil {
				return fmt.Errorf("occupy table: %w", err)
			}
		}

		result, err = s.readResult(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// insertItem snapshots the product's branch price (the delivery price
// for DELIVERY orders), persists the item and its details, and returns
// the stored line.
func (s *OrderService) insertItem(ctx context.Context, store OrderStore, order database.Order, idx int, item OrderItemRequest) (database.OrderItem, error) {
	product, err := store.GetProductForOrder(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, fmt.Errorf("items[%d]: %w", idx, ErrProductNotFound)
		}
		return database.OrderItem{}, fmt.Errorf("items[%d]: get product: %w", idx, err)
	}

	unitPrice := numericToDecimal(product.Price)
	if order.OrderType == enum.OrderTypeDelivery && product.DeliveryPrice.Valid {
		unitPrice = numericToDecimal(product.DeliveryPrice)
	}

	detailsTotal := decimal.Zero
	deltas := make([]decimal.Decimal, len(item.Details))
	for j, d := range item.Details {
		delta, err := decimal.NewFromString(d.PriceDelta)
		if err != nil {
			return database.OrderItem{}, fmt.Errorf("items[%d].details[%d]: %w", idx, j, ErrInvalidAmount)
		}
		deltas[j] = delta
		detailsTotal = detailsTotal.Add(delta)
	}

	discount := decimal.Zero
	if item.DiscountAmount != "" {
		discount, err = decimal.NewFromString(item.DiscountAmount)
		if err != nil {
			return database.OrderItem{}, fmt.Errorf("items[%d]: %w", idx, ErrInvalidAmount)
		}
	}

	lineTotal := lineSubtotal(unitPrice, item.Quantity, detailsTotal, discount)

	stored, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
		OrderID:        order.ID,
		ProductID:      item.ProductID,
		Quantity:       item.Quantity,
		UnitPrice:      decimalToNumeric(unitPrice),
		DiscountAmount: decimalToNumeric(discount),
		Subtotal:       decimalToNumeric(lineTotal),
		Status:         enum.OrderItemStatusPending,
		Notes:          pgText(item.Notes),
	})
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("items[%d]: create: %w", idx, err)
	}

	for j, d := range item.Details {
		if _, err := store.CreateOrderItemDetail(ctx, database.CreateOrderItemDetailParams{
			OrderItemID: stored.ID,
			Name:        d.Name,
			PriceDelta:  decimalToNumeric(deltas[j]),
		}); err != nil {
			return database.OrderItem{}, fmt.Errorf("items[%d].details[%d]: create: %w", idx, j, err)
		}
	}
	return stored, nil
}

// lineSubtotal computes a stored line total: price snapshot x quantity
// plus detail deltas, minus the per-line discount, never negative.
func lineSubtotal(unitPrice decimal.Decimal, qty int32, detailsTotal, discount decimal.Decimal) decimal.Decimal {
	total := unitPrice.Mul(decimal.NewFromInt32(qty)).Add(detailsTotal).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// --- Read ---

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*OrderResult, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	store := s.newStore(scope.Queries())
	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return s.readResult(ctx, store, order)
}

func (s *OrderService) List(ctx context.Context, status string, limit, offset int32) ([]database.Order, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	// Filter by every stored spelling so legacy rows still show up.
	var statuses []string
	if status != "" {
		canonical, ok := enum.CanonicalOrderStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		statuses = enum.OrderStatusSpellings(canonical)
	}
	store := s.newStore(scope.Queries())
	return store.ListOrders(ctx, database.ListOrdersParams{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
}

// Payments lists the payments recorded against an order, oldest first.
func (s *OrderService) Payments(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	store := s.newStore(scope.Queries())
	if _, err := store.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return store.ListPaymentsByOrder(ctx, orderID)
}

// --- Update ---

// Update applies a patch to the order. A move to CANCELLED cascades to
// all items; reaching a terminal status releases the table. Totals are
// recalculated before commit; the queue entry is mirrored best-effort
// after commit.
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, req UpdateOrderRequest) (*OrderResult, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	tc := scope.Tenant()

	var newStatus string
	if req.Status != nil {
		canonical, ok := enum.CanonicalOrderStatus(*req.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		newStatus = canonical
	}

	var result *OrderResult
	var tableReleased *uuid.UUID
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		cur, err := store.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}

		// Legacy rows carry lowercase statuses; normalize before
		// deciding transitions so they never survive a write.
		curStatus, _ := enum.CanonicalOrderStatus(cur.Status)
		if curStatus == "" {
			curStatus = cur.Status
		}
		if enum.IsTerminalOrderStatus(curStatus) {
			return ErrOrderClosed
		}

		orderType := cur.OrderType
		if req.OrderType != nil {
			orderType, err = validateOrderType(*req.OrderType)
			if err != nil {
				return err
			}
		}
		status := curStatus
		if req.Status != nil {
			status = newStatus
		}

		tableID := cur.TableID
		if req.TableID != nil {
			if _, err := store.GetTable(ctx, *req.TableID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrTableNotFound
				}
				return fmt.Errorf("get table: %w", err)
			}
			tableID = pgUUID(req.TableID)
		}
		discountID := cur.DiscountID
		if req.DiscountID != nil {
			if _, err := store.GetDiscount(ctx, *req.DiscountID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrDiscountNotFound
				}
				return fmt.Errorf("get discount: %w", err)
			}
			discountID = pgUUID(req.DiscountID)
		}
		deliveryAddress := cur.DeliveryAddress
		if req.DeliveryAddress != nil {
			deliveryAddress = pgText(*req.DeliveryAddress)
		}
		notes := cur.Notes
		if req.Notes != nil {
			notes = pgText(*req.Notes)
		}

		order, err := store.UpdateOrder(ctx, database.UpdateOrderParams{
			ID:              id,
			OrderType:       orderType,
			Status:          status,
			TableID:         tableID,
			DeliveryAddress: deliveryAddress,
			DiscountID:      discountID,
			Notes:           notes,
		})
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if status == enum.OrderStatusCancelled {
			if _, err := store.CancelOrderItemsByOrder(ctx, id); err != nil {
				return fmt.Errorf("cancel items: %w", err)
			}
		}

		order, err = s.recalc(ctx, store, order)
		if err != nil {
			return err
		}

		if enum.IsTerminalOrderStatus(status) && order.TableID.Valid {
			tid := uuidFromPg(order.TableID)
			if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
				ID:     tid,
				Status: enum.TableStatusAvailable,
			}); err != nil {
				return fmt.Errorf("release table: %w", err)
			}
			tableReleased = &tid
		}

		result, err = s.readResult(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if qerr := s.queue.MirrorOrderStatus(ctx, id, newStatus); qerr != nil {
			log.Printf("ERROR: mirror queue status for order %s: %v", id, qerr)
			result.SideEffects.QueueErr = qerr
		}
	}

	if tc.BranchID != nil {
		s.notifier.EmitToBranch(*tc.BranchID, EventOrderUpdated, result)
		s.notifier.EmitToRole(*tc.BranchID, enum.UserRoleKitchen, EventOrderUpdated, result)
		if tableReleased != nil {
			s.notifier.EmitToBranch(*tc.BranchID, EventTableUpdated, map[string]any{
				"table_id": *tableReleased,
				"status":   enum.TableStatusAvailable,
			})
		}
	}
	return result, nil
}

// --- Item mutations ---

// AddItem appends one item to an open order and recalculates totals in
// the same transaction.
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, item OrderItemRequest) (*OrderResult, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var result *OrderResult
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		order, err := s.getOpenOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		if _, err := s.insertItem(ctx, store, order, 0, item); err != nil {
			return err
		}
		order, err = s.recalc(ctx, store, order)
		if err != nil {
			return err
		}
		result, err = s.readResult(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(scope, result)
	return result, nil
}

// UpdateItemDetails patches one item; a non-nil Details set replaces
// the stored details wholesale (delete-then-insert, not a diff).
func (s *OrderService) UpdateItemDetails(ctx context.Context, itemID uuid.UUID, req UpdateItemRequest) (*OrderResult, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Status != nil {
		switch *req.Status {
		case enum.OrderItemStatusPending, enum.OrderItemStatusCooking,
			enum.OrderItemStatusServed, enum.OrderItemStatusCancelled:
		default:
			return nil, ErrInvalidStatus
		}
	}

	var result *OrderResult
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		item, err := store.GetOrderItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrItemNotFound
			}
			return fmt.Errorf("get item: %w", err)
		}
		order, err := s.getOpenOrder(ctx, store, item.OrderID)
		if err != nil {
			return err
		}

		quantity := item.Quantity
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		status := item.Status
		if req.Status != nil {
			status = *req.Status
		}
		notes := item.Notes
		if req.Notes != nil {
			notes = pgText(*req.Notes)
		}
		discount := numericToDecimal(item.DiscountAmount)
		if req.DiscountAmount != nil {
			discount, err = decimal.NewFromString(*req.DiscountAmount)
			if err != nil {
				return ErrInvalidAmount
			}
		}

		detailsTotal := decimal.Zero
		if req.Details != nil {
			if err := store.DeleteOrderItemDetailsByItem(ctx, itemID); err != nil {
				return fmt.Errorf("clear details: %w", err)
			}
			for j, d := range req.Details {
				delta, err := decimal.NewFromString(d.PriceDelta)
				if err != nil {
					return fmt.Errorf("details[%d]: %w", j, ErrInvalidAmount)
				}
				if _, err := store.CreateOrderItemDetail(ctx, database.CreateOrderItemDetailParams{
					OrderItemID: itemID,
					Name:        d.Name,
					PriceDelta:  decimalToNumeric(delta),
				}); err != nil {
					return fmt.Errorf("details[%d]: create: %w", j, err)
				}
				detailsTotal = detailsTotal.Add(delta)
			}
		} else {
			details, err := store.ListOrderItemDetailsByItem(ctx, itemID)
			if err != nil {
				return fmt.Errorf("list details: %w", err)
			}
			for _, d := range details {
				detailsTotal = detailsTotal.Add(numericToDecimal(d.PriceDelta))
			}
		}

		lineTotal := lineSubtotal(numericToDecimal(item.UnitPrice), quantity, detailsTotal, discount)
		if _, err := store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
			ID:             itemID,
			Quantity:       quantity,
			DiscountAmount: decimalToNumeric(discount),
			Subtotal:       decimalToNumeric(lineTotal),
			Status:         status,
			Notes:          notes,
		}); err != nil {
			return fmt.Errorf("update item: %w", err)
		}

		order, err = s.recalc(ctx, store, order)
		if err != nil {
			return err
		}
		result, err = s.readResult(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(scope, result)
	return result, nil
}

// DeleteItem removes one item (details cascade) and recalculates.
func (s *OrderService) DeleteItem(ctx context.Context, itemID uuid.UUID) (*OrderResult, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}

	var result *OrderResult
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		item, err := store.GetOrderItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrItemNotFound
			}
			return fmt.Errorf("get item: %w", err)
		}
		order, err := s.getOpenOrder(ctx, store, item.OrderID)
		if err != nil {
			return err
		}
		if err := store.DeleteOrderItem(ctx, itemID); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		order, err = s.recalc(ctx, store, order)
		if err != nil {
			return err
		}
		result, err = s.readResult(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(scope, result)
	return result, nil
}

// --- Payment ---

// AddPayment records a completed payment against the branch's open
// shift, marks the order paid with received/change amounts, and
// releases its table.
func (s *OrderService) AddPayment(ctx context.Context, orderID uuid.UUID, req PaymentRequest) (*OrderResult, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	tc := scope.Tenant()
	if tc.UserID == nil {
		return nil, ErrMissingUser
	}
	if req.Method == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrValidation)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	received := amount
	if req.Received != "" {
		received, err = decimal.NewFromString(req.Received)
		if err != nil || received.LessThan(amount) {
			return nil, ErrInvalidAmount
		}
	}

	var result *OrderResult
	var tableReleased *uuid.UUID
	err = scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		order, err := s.getOpenOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		shift, err := store.GetOpenShift(ctx)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoOpenShift
			}
			return fmt.Errorf("get open shift: %w", err)
		}

		if _, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:     orderID,
			ShiftID:     pgUUID(&shift.ID),
			Method:      req.Method,
			Amount:      decimalToNumeric(amount),
			Status:      enum.PaymentStatusCompleted,
			ProcessedBy: *tc.UserID,
		}); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		change := received.Sub(numericToDecimal(order.TotalAmount))
		if change.IsNegative() {
			change = decimal.Zero
		}
		order, err = store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
			ID:             orderID,
			Status:         enum.OrderStatusPaid,
			ReceivedAmount: decimalToNumeric(received),
			ChangeAmount:   decimalToNumeric(change),
		})
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}

		if order.TableID.Valid {
			tid := uuidFromPg(order.TableID)
			if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
				ID:     tid,
				Status: enum.TableStatusAvailable,
			}); err != nil {
				return fmt.Errorf("release table: %w", err)
			}
			tableReleased = &tid
		}

		result, err = s.readResult(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	if qerr := s.queue.MirrorOrderStatus(ctx, orderID, enum.OrderStatusPaid); qerr != nil {
		log.Printf("ERROR: mirror queue status for order %s: %v", orderID, qerr)
		result.SideEffects.QueueErr = qerr
	}
	if tc.BranchID != nil {
		s.notifier.EmitToBranch(*tc.BranchID, EventOrderUpdated, result)
		s.notifier.EmitToBranch(*tc.BranchID, EventShiftUpdated, map[string]any{"order_id": orderID})
		if tableReleased != nil {
			s.notifier.EmitToBranch(*tc.BranchID, EventTableUpdated, map[string]any{
				"table_id": *tableReleased,
				"status":   enum.TableStatusAvailable,
			})
		}
	}
	return result, nil
}

// --- Shared helpers ---

// recalc rederives the order's monetary fields from its current items
// and discount policy. Totals are never hand-edited anywhere else.
func (s *OrderService) recalc(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return order, fmt.Errorf("list items for recalc: %w", err)
	}
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		status, _ := enum.CanonicalOrderStatus(it.Status)
		lines[i] = pricing.Line{Status: status, Total: numericToDecimal(it.Subtotal)}
	}

	var disc *pricing.Discount
	if order.DiscountID.Valid {
		d, err := store.GetDiscount(ctx, uuidFromPg(order.DiscountID))
		switch {
		case err == nil:
			disc = &pricing.Discount{Type: d.Type, Value: numericToDecimal(d.Value)}
		case errors.Is(err, pgx.ErrNoRows):
			// discount deactivated after being attached; treat as none
		default:
			return order, fmt.Errorf("get discount for recalc: %w", err)
		}
	}

	totals := pricing.Calculate(lines, disc, s.taxRate, s.taxInclusive)
	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:             order.ID,
		Subtotal:       decimalToNumeric(totals.Subtotal),
		DiscountAmount: decimalToNumeric(totals.DiscountAmount),
		TaxAmount:      decimalToNumeric(totals.TaxAmount),
		TotalAmount:    decimalToNumeric(totals.TotalAmount),
	})
	if err != nil {
		return order, fmt.Errorf("update totals: %w", err)
	}
	return updated, nil
}

// getOpenOrder fetches an order and rejects terminal ones.
func (s *OrderService) getOpenOrder(ctx context.Context, store OrderStore, id uuid.UUID) (database.Order, error) {
	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, ErrOrderNotFound
		}
		return order, fmt.Errorf("get order: %w", err)
	}
	status, _ := enum.CanonicalOrderStatus(order.Status)
	if enum.IsTerminalOrderStatus(status) {
		return order, ErrOrderClosed
	}
	return order, nil
}

// readResult re-reads the order's items and details inside the current
// transaction so callers never see a partially-consistent order.
func (s *OrderService) readResult(ctx context.Context, store OrderStore, order database.Order) (*OrderResult, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	results := make([]OrderItemResult, len(items))
	for i, it := range items {
		details, err := store.ListOrderItemDetailsByItem(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("read details: %w", err)
		}
		results[i] = OrderItemResult{Item: it, Details: details}
	}
	return &OrderResult{Order: order, Items: results}, nil
}

func (s *OrderService) notifyUpdated(scope *tenant.Scope, result *OrderResult) {
	tc := scope.Tenant()
	if tc.BranchID == nil {
		return
	}
	s.notifier.EmitToBranch(*tc.BranchID, EventOrderUpdated, result)
	s.notifier.EmitToRole(*tc.BranchID, enum.UserRoleKitchen, EventOrderUpdated, result)
}

func validateOrderType(s string) (string, error) {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway, enum.OrderTypeDelivery:
		return s, nil
	}
	return "", ErrInvalidOrderType
}

// generateOrderNumber builds a date-prefixed number with a random
// suffix; collisions are resolved by the caller's retry loop.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04X", now.Format("20060102"), rand.Intn(0x10000))
}

// isOrderNumberConflict checks for a unique constraint violation on
// (branch_id, order_number).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_branch_id_order_number_key"
	}
	return false
}
