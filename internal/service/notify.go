package service

import "github.com/google/uuid"

// Event names on the notification boundary.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventTableUpdated = "table.updated"
	EventShiftUpdated = "shift.updated"
	EventQueueUpdated = "queue.updated"
)

// Notifier fans events out to connected clients after a successful
// commit. At-least-once, best-effort, fire-and-forget; implementations
// must never block the caller on delivery.
type Notifier interface {
	EmitToBranch(branchID uuid.UUID, event string, payload any)
	EmitToRole(branchID uuid.UUID, role string, event string, payload any)
}

// NopNotifier discards all events. Used by maintenance entry points.
type NopNotifier struct{}

func (NopNotifier) EmitToBranch(uuid.UUID, string, any)       {}
func (NopNotifier) EmitToRole(uuid.UUID, string, string, any) {}

// SideEffects reports the outcome of best-effort work that runs after
// the primary transaction commits. A degraded result never fails the
// operation; the order row is the source of truth and the queue is a
// derived view.
type SideEffects struct {
	QueueErr error
}

// Degraded reports whether any post-commit side effect failed.
func (s SideEffects) Degraded() bool {
	return s.QueueErr != nil
}
