package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, shift_id, method, amount, status, processed_by, processed_at`

func scanPayment(s scanner) (Payment, error) {
	var p Payment
	err := s.Scan(&p.ID, &p.OrderID, &p.ShiftID, &p.Method, &p.Amount,
		&p.Status, &p.ProcessedBy, &p.ProcessedAt)
	return p, err
}

type CreatePaymentParams struct {
	OrderID     uuid.UUID
	ShiftID     pgtype.UUID
	Method      string
	Amount      pgtype.Numeric
	Status      string
	ProcessedBy uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO payments (order_id, shift_id, method, amount, status, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		arg.OrderID, arg.ShiftID, arg.Method, arg.Amount, arg.Status, arg.ProcessedBy,
	)
	return scanPayment(row)
}

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1
		ORDER BY processed_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
