package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/tenant"
)

// RetentionStore defines the DB methods the cleanup engine needs.
// Satisfied by *database.Queries.
type RetentionStore interface {
	CountCleanupCandidates(ctx context.Context, arg database.CleanupFilter) (int64, error)
	ListCleanupBatch(ctx context.Context, arg database.CleanupFilter, limit int32) ([]uuid.UUID, error)
	DeleteQueueEntriesByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeletePaymentsByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteOrderItemDetailsByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteOrderItemsByOrderIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteOrdersByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type NewRetentionStore func(q *database.Queries) RetentionStore

// RetentionService purges closed orders past the retention window. It
// runs under an admin session so it sees every branch, deletes in
// bounded per-transaction batches, and is safe to resume after an
// interruption: already-deleted rows simply stop being candidates.
type RetentionService struct {
	newStore      NewRetentionStore
	warnThreshold int64
	now           func() time.Time
}

func NewRetentionService(newStore NewRetentionStore, warnThreshold int) *RetentionService {
	return &RetentionService{
		newStore:      newStore,
		warnThreshold: int64(warnThreshold),
		now:           time.Now,
	}
}

// CleanupOptions controls one cleanup run. Zero values fall back to
// the defaults applied by Cleanup.
type CleanupOptions struct {
	Days       int      // retention window, default 90
	Statuses   []string // default PAID and CANCELLED plus legacy spellings
	BatchSize  int32    // orders per transaction, default 500
	MaxBatches int      // hard stop for one run, default 20
	DryRun     bool     // count and report without deleting
}

// CleanupSummary reports what one run did (or would do, for a dry run).
type CleanupSummary struct {
	Cutoff         time.Time `json:"cutoff"`
	DryRun         bool      `json:"dry_run"`
	Candidates     int64     `json:"candidates"`
	Batches        int       `json:"batches"`
	Orders         int64     `json:"orders_deleted"`
	OrderItems     int64     `json:"order_items_deleted"`
	ItemDetails    int64     `json:"item_details_deleted"`
	Payments       int64     `json:"payments_deleted"`
	QueueEntries   int64     `json:"queue_entries_deleted"`
	RemainingAfter int64     `json:"remaining_after"`
}

// cleanupStatuses are the terminal spellings eligible for deletion,
// legacy lowercase rows included.
func cleanupStatuses() []string {
	return []string{
		enum.OrderStatusPaid,
		enum.OrderStatusCancelled,
		"completed",
		"cancelled",
	}
}

// Cleanup deletes closed orders older than the retention window,
// children first, one transaction per batch. A failure mid-run loses at
// most the current batch; everything already committed stays deleted.
func (s *RetentionService) Cleanup(ctx context.Context, opts CleanupOptions) (*CleanupSummary, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	if opts.Days <= 0 {
		opts.Days = 90
	}
	if len(opts.Statuses) == 0 {
		opts.Statuses = cleanupStatuses()
	} else {
		for _, st := range opts.Statuses {
			if _, ok := enum.CanonicalOrderStatus(st); !ok {
				return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, st)
			}
		}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.MaxBatches <= 0 {
		opts.MaxBatches = 20
	}

	filter := database.CleanupFilter{
		Cutoff:   s.now().AddDate(0, 0, -opts.Days),
		Statuses: opts.Statuses,
	}
	summary := &CleanupSummary{Cutoff: filter.Cutoff, DryRun: opts.DryRun}

	store := s.newStore(scope.Queries())
	candidates, err := store.CountCleanupCandidates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count candidates: %w", err)
	}
	summary.Candidates = candidates
	summary.RemainingAfter = candidates
	if opts.DryRun || candidates == 0 {
		return summary, nil
	}

	for batch := 0; batch < opts.MaxBatches; batch++ {
		// Counts are staged per batch and folded into the summary only
		// after the transaction commits, so a failed batch is not
		// reported as deleted.
		var bc struct {
			orders, items, details, payments, queue int64
		}
		err := scope.RunTx(ctx, func(q *database.Queries) error {
			store := s.newStore(q)
			ids, err := store.ListCleanupBatch(ctx, filter, opts.BatchSize)
			if err != nil {
				return fmt.Errorf("list batch: %w", err)
			}
			if len(ids) == 0 {
				return nil
			}
			if bc.queue, err = store.DeleteQueueEntriesByOrderIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete queue entries: %w", err)
			}
			if bc.payments, err = store.DeletePaymentsByOrderIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete payments: %w", err)
			}
			if bc.details, err = store.DeleteOrderItemDetailsByOrderIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete item details: %w", err)
			}
			if bc.items, err = store.DeleteOrderItemsByOrderIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete items: %w", err)
			}
			if bc.orders, err = store.DeleteOrdersByIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete orders: %w", err)
			}
			return nil
		})
		if err != nil {
			return summary, err
		}
		summary.QueueEntries += bc.queue
		summary.Payments += bc.payments
		summary.ItemDetails += bc.details
		summary.OrderItems += bc.items
		summary.Orders += bc.orders
		summary.Batches++
		if bc.orders < int64(opts.BatchSize) {
			break
		}
	}

	if s.warnThreshold > 0 && summary.Orders > s.warnThreshold {
		log.Printf("WARN: cleanup deleted %d orders, over threshold %d", summary.Orders, s.warnThreshold)
	}

	remaining, err := store.CountCleanupCandidates(ctx, filter)
	if err != nil {
		return summary, fmt.Errorf("count remaining: %w", err)
	}
	summary.RemainingAfter = remaining
	return summary, nil
}
