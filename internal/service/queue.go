package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/tenant"
)

// QueueStore defines the DB methods the queue scheduler needs.
// Satisfied by *database.Queries.
type QueueStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateQueueEntry(ctx context.Context, arg database.CreateQueueEntryParams) (database.QueueEntry, error)
	GetQueueEntryByOrder(ctx context.Context, orderID uuid.UUID) (database.QueueEntry, error)
	MaxQueuePosition(ctx context.Context) (int32, error)
	ListQueueEntries(ctx context.Context) ([]database.QueueEntry, error)
	ListPendingQueueEntries(ctx context.Context) ([]database.QueueEntry, error)
	UpdateQueuePosition(ctx context.Context, arg database.UpdateQueuePositionParams) error
	UpdateQueueStatus(ctx context.Context, arg database.UpdateQueueStatusParams) (database.QueueEntry, error)
}

type NewQueueStore func(q *database.Queries) QueueStore

// QueueService maintains the branch's kitchen queue: one entry per
// order, positions dense from 1, higher priorities first.
type QueueService struct {
	newStore NewQueueStore
	notifier Notifier
}

func NewQueueService(newStore NewQueueStore, notifier Notifier) *QueueService {
	return &QueueService{newStore: newStore, notifier: notifier}
}

// orderStatusToQueue maps order lifecycle moves onto the derived queue
// entry. Statuses not listed here leave the queue untouched.
var orderStatusToQueue = map[string]string{
	enum.OrderStatusCooking:   enum.QueueStatusProcessing,
	enum.OrderStatusPaid:      enum.QueueStatusCompleted,
	enum.OrderStatusCancelled: enum.QueueStatusCancelled,
}

// Enqueue appends the order at the back of the branch queue. An order
// can only be queued once.
func (s *QueueService) Enqueue(ctx context.Context, orderID uuid.UUID, priority string) (database.QueueEntry, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return database.QueueEntry{}, tenant.ErrNoActiveScope
	}
	tc := scope.Tenant()
	if tc.BranchID == nil {
		return database.QueueEntry{}, ErrMissingBranch
	}
	if priority == "" {
		priority = enum.QueuePriorityNormal
	}
	if enum.QueuePriorityRank(priority) == 0 {
		return database.QueueEntry{}, ErrInvalidPriority
	}

	var entry database.QueueEntry
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		if _, err := store.GetOrder(ctx, orderID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		_, err := store.GetQueueEntryByOrder(ctx, orderID)
		if err == nil {
			return ErrQueueEntryExists
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check queue entry: %w", err)
		}
		max, err := store.MaxQueuePosition(ctx)
		if err != nil {
			return fmt.Errorf("max position: %w", err)
		}
		entry, err = store.CreateQueueEntry(ctx, database.CreateQueueEntryParams{
			BranchID: *tc.BranchID,
			OrderID:  orderID,
			Priority: priority,
			Position: max + 1,
		})
		if err != nil {
			return fmt.Errorf("create queue entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.QueueEntry{}, err
	}
	s.notifier.EmitToRole(*tc.BranchID, enum.UserRoleKitchen, EventQueueUpdated, entry)
	return entry, nil
}

func (s *QueueService) List(ctx context.Context) ([]database.QueueEntry, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	return s.newStore(scope.Queries()).ListQueueEntries(ctx)
}

// Reorder ranks the pending entries by priority (stable within a
// priority, earlier positions first) and rewrites positions as a dense
// 1..N sequence in a single transaction.
func (s *QueueService) Reorder(ctx context.Context) ([]database.QueueEntry, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}

	var reordered []database.QueueEntry
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		entries, err := store.ListPendingQueueEntries(ctx)
		if err != nil {
			return fmt.Errorf("list pending: %w", err)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			ri, rj := enum.QueuePriorityRank(entries[i].Priority), enum.QueuePriorityRank(entries[j].Priority)
			if ri != rj {
				return ri > rj
			}
			return entries[i].Position < entries[j].Position
		})
		for i := range entries {
			want := int32(i + 1)
			if entries[i].Position != want {
				if err := store.UpdateQueuePosition(ctx, database.UpdateQueuePositionParams{
					ID:       entries[i].ID,
					Position: want,
				}); err != nil {
					return fmt.Errorf("update position: %w", err)
				}
				entries[i].Position = want
			}
		}
		reordered = entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tc := scope.Tenant(); tc.BranchID != nil {
		s.notifier.EmitToRole(*tc.BranchID, enum.UserRoleKitchen, EventQueueUpdated, reordered)
	}
	return reordered, nil
}

// UpdateStatus moves the order's queue entry to a new status and
// compacts the remaining pending positions.
func (s *QueueService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (database.QueueEntry, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return database.QueueEntry{}, tenant.ErrNoActiveScope
	}
	switch status {
	case enum.QueueStatusPending, enum.QueueStatusProcessing,
		enum.QueueStatusCompleted, enum.QueueStatusCancelled:
	default:
		return database.QueueEntry{}, ErrInvalidStatus
	}

	var entry database.QueueEntry
	err := scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		var err error
		entry, err = store.UpdateQueueStatus(ctx, database.UpdateQueueStatusParams{
			OrderID: orderID,
			Status:  status,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrQueueEntryNotFound
			}
			return fmt.Errorf("update queue status: %w", err)
		}
		return s.compact(ctx, store)
	})
	if err != nil {
		return database.QueueEntry{}, err
	}
	if tc := scope.Tenant(); tc.BranchID != nil {
		s.notifier.EmitToRole(*tc.BranchID, enum.UserRoleKitchen, EventQueueUpdated, entry)
	}
	return entry, nil
}

// MirrorOrderStatus projects an order status change onto the queue.
// Orders without a queue entry, and statuses with no queue meaning, are
// no-ops.
func (s *QueueService) MirrorOrderStatus(ctx context.Context, orderID uuid.UUID, orderStatus string) error {
	queueStatus, ok := orderStatusToQueue[orderStatus]
	if !ok {
		return nil
	}
	_, err := s.UpdateStatus(ctx, orderID, queueStatus)
	if errors.Is(err, ErrQueueEntryNotFound) {
		return nil
	}
	return err
}

// compact rewrites pending positions as a dense 1..N sequence,
// preserving the current ordering.
func (s *QueueService) compact(ctx context.Context, store QueueStore) error {
	entries, err := store.ListPendingQueueEntries(ctx)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	for i := range entries {
		want := int32(i + 1)
		if entries[i].Position != want {
			if err := store.UpdateQueuePosition(ctx, database.UpdateQueuePositionParams{
				ID:       entries[i].ID,
				Position: want,
			}); err != nil {
				return fmt.Errorf("update position: %w", err)
			}
		}
	}
	return nil
}
