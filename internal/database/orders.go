package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Row scoping by branch is enforced by the database's row-level
// security policies reading the session variables set by the tenant
// binder; queries here never filter by branch themselves.

const orderColumns = `id, branch_id, order_number, order_type, status, table_id,
	delivery_address, discount_id, subtotal, discount_amount, tax_amount,
	total_amount, received_amount, change_amount, notes, created_by,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (Order, error) {
	var o Order
	err := s.Scan(
		&o.ID, &o.BranchID, &o.OrderNumber, &o.OrderType, &o.Status, &o.TableID,
		&o.DeliveryAddress, &o.DiscountID, &o.Subtotal, &o.DiscountAmount, &o.TaxAmount,
		&o.TotalAmount, &o.ReceivedAmount, &o.ChangeAmount, &o.Notes, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	BranchID        uuid.UUID
	OrderNumber     string
	OrderType       string
	Status          string
	TableID         pgtype.UUID
	DeliveryAddress pgtype.Text
	DiscountID      pgtype.UUID
	Notes           pgtype.Text
	CreatedBy       uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (branch_id, order_number, order_type, status, table_id,
			delivery_address, discount_id, created_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+orderColumns,
		arg.BranchID, arg.OrderNumber, arg.OrderType, arg.Status, arg.TableID,
		arg.DeliveryAddress, arg.DiscountID, arg.CreatedBy, arg.Notes,
	)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

type ListOrdersParams struct {
	// Statuses holds every stored spelling of the requested status,
	// legacy synonyms included. Empty means no status filter.
	Statuses []string
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	var statuses []string
	if len(arg.Statuses) > 0 {
		statuses = arg.Statuses
	}
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::text[] IS NULL OR status = ANY($1))
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		statuses, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderParams struct {
	ID              uuid.UUID
	OrderType       string
	Status          string
	TableID         pgtype.UUID
	DeliveryAddress pgtype.Text
	DiscountID      pgtype.UUID
	Notes           pgtype.Text
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET order_type = $2, status = $3, table_id = $4, delivery_address = $5,
			discount_id = $6, notes = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.OrderType, arg.Status, arg.TableID, arg.DeliveryAddress,
		arg.DiscountID, arg.Notes,
	)
	return scanOrder(row)
}

type UpdateOrderTotalsParams struct {
	ID             uuid.UUID
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	TaxAmount      pgtype.Numeric
	TotalAmount    pgtype.Numeric
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET subtotal = $2, discount_amount = $3, tax_amount = $4,
			total_amount = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Subtotal, arg.DiscountAmount, arg.TaxAmount, arg.TotalAmount,
	)
	return scanOrder(row)
}

type UpdateOrderPaymentParams struct {
	ID             uuid.UUID
	Status         string
	ReceivedAmount pgtype.Numeric
	ChangeAmount   pgtype.Numeric
}

func (q *Queries) UpdateOrderPayment(ctx context.Context, arg UpdateOrderPaymentParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, received_amount = $3, change_amount = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.ReceivedAmount, arg.ChangeAmount,
	)
	return scanOrder(row)
}

// CountActiveOrdersSince counts orders created at or after the given
// time that have not reached a terminal status. Legacy lowercase
// status rows are counted as well.
func (q *Queries) CountActiveOrdersSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*)
		FROM orders
		WHERE created_at >= $1
		  AND status IN ('PENDING', 'COOKING', 'SERVED', 'WAITING_FOR_PAYMENT', 'pending')`,
		since,
	).Scan(&count)
	return count, err
}
