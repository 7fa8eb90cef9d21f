package database

import (
	"context"

	"github.com/google/uuid"
)

// Reference lookups used by the order engine to validate that a draft's
// table, discount and products resolve inside the caller's branch. The
// RLS policies make a cross-branch id behave exactly like a missing
// one.

func (q *Queries) GetProductForOrder(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, `
		SELECT id, branch_id, name, price, delivery_price, is_active
		FROM products
		WHERE id = $1 AND is_active`,
		id,
	).Scan(&p.ID, &p.BranchID, &p.Name, &p.Price, &p.DeliveryPrice, &p.IsActive)
	return p, err
}

func (q *Queries) GetDiscount(ctx context.Context, id uuid.UUID) (Discount, error) {
	var d Discount
	err := q.db.QueryRow(ctx, `
		SELECT id, branch_id, name, type, value, is_active
		FROM discounts
		WHERE id = $1 AND is_active`,
		id,
	).Scan(&d.ID, &d.BranchID, &d.Name, &d.Type, &d.Value, &d.IsActive)
	return d, err
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (RestaurantTable, error) {
	var t RestaurantTable
	err := q.db.QueryRow(ctx, `
		SELECT id, branch_id, name, status
		FROM restaurant_tables
		WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.BranchID, &t.Name, &t.Status)
	return t, err
}

type SetTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) (RestaurantTable, error) {
	var t RestaurantTable
	err := q.db.QueryRow(ctx, `
		UPDATE restaurant_tables
		SET status = $2
		WHERE id = $1
		RETURNING id, branch_id, name, status`,
		arg.ID, arg.Status,
	).Scan(&t.ID, &t.BranchID, &t.Name, &t.Status)
	return t, err
}
