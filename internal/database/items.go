package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, product_id, quantity, unit_price,
	discount_amount, subtotal, status, notes, created_at`

func scanOrderItem(s scanner) (OrderItem, error) {
	var it OrderItem
	err := s.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice,
		&it.DiscountAmount, &it.Subtotal, &it.Status, &it.Notes, &it.CreatedAt,
	)
	return it, err
}

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Quantity       int32
	UnitPrice      pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Subtotal       pgtype.Numeric
	Status         string
	Notes          pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price,
			discount_amount, subtotal, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderItemColumns,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice,
		arg.DiscountAmount, arg.Subtotal, arg.Status, arg.Notes,
	)
	return scanOrderItem(row)
}

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE id = $1`, id)
	return scanOrderItem(row)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderItemColumns+`
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpdateOrderItemParams struct {
	ID             uuid.UUID
	Quantity       int32
	DiscountAmount pgtype.Numeric
	Subtotal       pgtype.Numeric
	Status         string
	Notes          pgtype.Text
}

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE order_items
		SET quantity = $2, discount_amount = $3, subtotal = $4, status = $5, notes = $6
		WHERE id = $1
		RETURNING `+orderItemColumns,
		arg.ID, arg.Quantity, arg.DiscountAmount, arg.Subtotal, arg.Status, arg.Notes,
	)
	return scanOrderItem(row)
}

func (q *Queries) DeleteOrderItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	return err
}

// CancelOrderItemsByOrder marks every non-cancelled item of the order
// as cancelled and returns the number of items affected.
func (q *Queries) CancelOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE order_items
		SET status = 'CANCELLED'
		WHERE order_id = $1 AND status <> 'CANCELLED'`,
		orderID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type CreateOrderItemDetailParams struct {
	OrderItemID uuid.UUID
	Name        string
	PriceDelta  pgtype.Numeric
}

func (q *Queries) CreateOrderItemDetail(ctx context.Context, arg CreateOrderItemDetailParams) (OrderItemDetail, error) {
	var d OrderItemDetail
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_item_details (order_item_id, name, price_delta)
		VALUES ($1, $2, $3)
		RETURNING id, order_item_id, name, price_delta`,
		arg.OrderItemID, arg.Name, arg.PriceDelta,
	).Scan(&d.ID, &d.OrderItemID, &d.Name, &d.PriceDelta)
	return d, err
}

func (q *Queries) ListOrderItemDetailsByItem(ctx context.Context, orderItemID uuid.UUID) ([]OrderItemDetail, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_item_id, name, price_delta
		FROM order_item_details
		WHERE order_item_id = $1
		ORDER BY name`,
		orderItemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []OrderItemDetail
	for rows.Next() {
		var d OrderItemDetail
		if err := rows.Scan(&d.ID, &d.OrderItemID, &d.Name, &d.PriceDelta); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// DeleteOrderItemDetailsByItem clears all details of an item; updates
// replace the detail set wholesale rather than diffing it.
func (q *Queries) DeleteOrderItemDetailsByItem(ctx context.Context, orderItemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_item_details WHERE order_item_id = $1`, orderItemID)
	return err
}
