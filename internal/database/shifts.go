package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const shiftColumns = `id, branch_id, status, start_amount, end_amount,
	expected_amount, diff_amount, opened_by, opened_at, closed_by, closed_at`

func scanShift(s scanner) (Shift, error) {
	var sh Shift
	err := s.Scan(
		&sh.ID, &sh.BranchID, &sh.Status, &sh.StartAmount, &sh.EndAmount,
		&sh.ExpectedAmount, &sh.DiffAmount, &sh.OpenedBy, &sh.OpenedAt,
		&sh.ClosedBy, &sh.ClosedAt,
	)
	return sh, err
}

type CreateShiftParams struct {
	BranchID    uuid.UUID
	StartAmount pgtype.Numeric
	OpenedBy    uuid.UUID
}

func (q *Queries) CreateShift(ctx context.Context, arg CreateShiftParams) (Shift, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO shifts (branch_id, status, start_amount, opened_by)
		VALUES ($1, 'OPEN', $2, $3)
		RETURNING `+shiftColumns,
		arg.BranchID, arg.StartAmount, arg.OpenedBy,
	)
	return scanShift(row)
}

func (q *Queries) GetShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	row := q.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	return scanShift(row)
}

// GetOpenShift returns the branch's single open shift. Branch scoping
// comes from the RLS session variables; the partial unique index on
// (branch_id) WHERE status = 'OPEN' guarantees at most one row.
func (q *Queries) GetOpenShift(ctx context.Context) (Shift, error) {
	row := q.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE status = 'OPEN'`)
	return scanShift(row)
}

type CloseShiftParams struct {
	ID             uuid.UUID
	EndAmount      pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	DiffAmount     pgtype.Numeric
	ClosedBy       pgtype.UUID
}

func (q *Queries) CloseShift(ctx context.Context, arg CloseShiftParams) (Shift, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE shifts
		SET status = 'CLOSED', end_amount = $2, expected_amount = $3,
			diff_amount = $4, closed_by = $5, closed_at = now()
		WHERE id = $1 AND status = 'OPEN'
		RETURNING `+shiftColumns,
		arg.ID, arg.EndAmount, arg.ExpectedAmount, arg.DiffAmount, arg.ClosedBy,
	)
	return scanShift(row)
}

// SumShiftPayments totals the completed payments recorded against the
// shift, for the close-time cash reconciliation.
func (q *Queries) SumShiftPayments(ctx context.Context, shiftID uuid.UUID) (pgtype.Numeric, error) {
	var sum pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT coalesce(sum(amount), 0)
		FROM payments
		WHERE shift_id = $1 AND status = 'COMPLETED'`,
		shiftID,
	).Scan(&sum)
	return sum, err
}

// --- Shift summary report ---

type GetShiftSalesRow struct {
	OrderCount    int64
	GrossSales    pgtype.Numeric
	TotalDiscount pgtype.Numeric
	TotalTax      pgtype.Numeric
}

func (q *Queries) GetShiftSales(ctx context.Context, shiftID uuid.UUID) (GetShiftSalesRow, error) {
	var r GetShiftSalesRow
	err := q.db.QueryRow(ctx, `
		SELECT count(DISTINCT o.id),
			coalesce(sum(o.total_amount), 0),
			coalesce(sum(o.discount_amount), 0),
			coalesce(sum(o.tax_amount), 0)
		FROM orders o
		JOIN payments p ON p.order_id = o.id
		WHERE p.shift_id = $1 AND p.status = 'COMPLETED'`,
		shiftID,
	).Scan(&r.OrderCount, &r.GrossSales, &r.TotalDiscount, &r.TotalTax)
	return r, err
}

type GetShiftPaymentBreakdownRow struct {
	Method      string
	Count       int64
	TotalAmount pgtype.Numeric
}

func (q *Queries) GetShiftPaymentBreakdown(ctx context.Context, shiftID uuid.UUID) ([]GetShiftPaymentBreakdownRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT method, count(*), coalesce(sum(amount), 0)
		FROM payments
		WHERE shift_id = $1 AND status = 'COMPLETED'
		GROUP BY method
		ORDER BY method`,
		shiftID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetShiftPaymentBreakdownRow
	for rows.Next() {
		var r GetShiftPaymentBreakdownRow
		if err := rows.Scan(&r.Method, &r.Count, &r.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type GetShiftTopProductsRow struct {
	ProductID    uuid.UUID
	ProductName  string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetShiftTopProducts(ctx context.Context, shiftID uuid.UUID, limit int32) ([]GetShiftTopProductsRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.product_id, pr.name,
			coalesce(sum(oi.quantity), 0),
			coalesce(sum(oi.subtotal), 0)
		FROM order_items oi
		JOIN products pr ON pr.id = oi.product_id
		JOIN payments p ON p.order_id = oi.order_id
		WHERE p.shift_id = $1 AND p.status = 'COMPLETED' AND oi.status <> 'CANCELLED'
		GROUP BY oi.product_id, pr.name
		ORDER BY sum(oi.subtotal) DESC
		LIMIT $2`,
		shiftID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetShiftTopProductsRow
	for rows.Next() {
		var r GetShiftTopProductsRow
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
