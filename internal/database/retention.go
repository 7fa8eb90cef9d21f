package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Retention queries run under an admin session (no branch bound), so
// the RLS admin bypass makes them see closed orders across branches.

type CleanupFilter struct {
	Cutoff   time.Time
	Statuses []string
}

func (q *Queries) CountCleanupCandidates(ctx context.Context, arg CleanupFilter) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*)
		FROM orders
		WHERE created_at < $1 AND status = ANY($2)`,
		arg.Cutoff, arg.Statuses,
	).Scan(&count)
	return count, err
}

// ListCleanupBatch returns the ids of the oldest candidate orders, up
// to limit, so deletion proceeds in bounded batches.
func (q *Queries) ListCleanupBatch(ctx context.Context, arg CleanupFilter, limit int32) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id
		FROM orders
		WHERE created_at < $1 AND status = ANY($2)
		ORDER BY created_at
		LIMIT $3`,
		arg.Cutoff, arg.Statuses, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) DeleteQueueEntriesByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM queue_entries WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) DeletePaymentsByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM payments WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) DeleteOrderItemDetailsByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM order_item_details
		WHERE order_item_id IN (SELECT id FROM order_items WHERE order_id = ANY($1))`,
		ids,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) DeleteOrderItemsByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) DeleteOrdersByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
