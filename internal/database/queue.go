package database

import (
	"context"

	"github.com/google/uuid"
)

const queueColumns = `id, branch_id, order_id, status, priority, position, created_at, updated_at`

func scanQueueEntry(s scanner) (QueueEntry, error) {
	var e QueueEntry
	err := s.Scan(&e.ID, &e.BranchID, &e.OrderID, &e.Status, &e.Priority,
		&e.Position, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

type CreateQueueEntryParams struct {
	BranchID uuid.UUID
	OrderID  uuid.UUID
	Priority string
	Position int32
}

func (q *Queries) CreateQueueEntry(ctx context.Context, arg CreateQueueEntryParams) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO queue_entries (branch_id, order_id, status, priority, position)
		VALUES ($1, $2, 'PENDING', $3, $4)
		RETURNING `+queueColumns,
		arg.BranchID, arg.OrderID, arg.Priority, arg.Position,
	)
	return scanQueueEntry(row)
}

func (q *Queries) GetQueueEntryByOrder(ctx context.Context, orderID uuid.UUID) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `SELECT `+queueColumns+` FROM queue_entries WHERE order_id = $1`, orderID)
	return scanQueueEntry(row)
}

// MaxQueuePosition returns the highest position currently assigned in
// the branch, 0 when the queue is empty.
func (q *Queries) MaxQueuePosition(ctx context.Context) (int32, error) {
	var max int32
	err := q.db.QueryRow(ctx, `SELECT coalesce(max(position), 0) FROM queue_entries`).Scan(&max)
	return max, err
}

func (q *Queries) ListQueueEntries(ctx context.Context) ([]QueueEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+queueColumns+`
		FROM queue_entries
		ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *Queries) ListPendingQueueEntries(ctx context.Context) ([]QueueEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+queueColumns+`
		FROM queue_entries
		WHERE status = 'PENDING'
		ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type UpdateQueuePositionParams struct {
	ID       uuid.UUID
	Position int32
}

func (q *Queries) UpdateQueuePosition(ctx context.Context, arg UpdateQueuePositionParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE queue_entries SET position = $2, updated_at = now() WHERE id = $1`,
		arg.ID, arg.Position,
	)
	return err
}

type UpdateQueueStatusParams struct {
	OrderID uuid.UUID
	Status  string
}

func (q *Queries) UpdateQueueStatus(ctx context.Context, arg UpdateQueueStatusParams) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = $2, updated_at = now()
		WHERE order_id = $1
		RETURNING `+queueColumns,
		arg.OrderID, arg.Status,
	)
	return scanQueueEntry(row)
}
