package enum

import "strings"

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending           = "PENDING"
	OrderStatusCooking           = "COOKING"
	OrderStatusServed            = "SERVED"
	OrderStatusWaitingForPayment = "WAITING_FOR_PAYMENT"
	OrderStatusPaid              = "PAID"
	OrderStatusCancelled         = "CANCELLED"
)

// legacyOrderStatuses maps lowercase synonyms still present in old rows
// to the canonical set. Accepted on every read, rewritten on every write.
var legacyOrderStatuses = map[string]string{
	"pending":   OrderStatusPending,
	"completed": OrderStatusPaid,
	"cancelled": OrderStatusCancelled,
}

// CanonicalOrderStatus normalizes a status value to the canonical set.
// Returns false when the value is neither canonical nor a known legacy
// synonym. Every write boundary must funnel through this.
func CanonicalOrderStatus(s string) (string, bool) {
	switch s {
	case OrderStatusPending, OrderStatusCooking, OrderStatusServed,
		OrderStatusWaitingForPayment, OrderStatusPaid, OrderStatusCancelled:
		return s, true
	}
	if canonical, ok := legacyOrderStatuses[strings.ToLower(s)]; ok {
		return canonical, true
	}
	return "", false
}

// OrderStatusSpellings returns every stored spelling of a canonical
// status: the status itself plus any legacy synonyms that may remain
// in old rows. Read filters must match all of them.
func OrderStatusSpellings(canonical string) []string {
	spellings := []string{canonical}
	for legacy, c := range legacyOrderStatuses {
		if c == canonical {
			spellings = append(spellings, legacy)
		}
	}
	return spellings
}

// IsTerminalOrderStatus reports whether a canonical status ends the
// order lifecycle.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

const (
	OrderItemStatusPending   = "PENDING"
	OrderItemStatusCooking   = "COOKING"
	OrderItemStatusServed    = "SERVED"
	OrderItemStatusCancelled = "CANCELLED"
)

const (
	QueueStatusPending    = "PENDING"
	QueueStatusProcessing = "PROCESSING"
	QueueStatusCompleted  = "COMPLETED"
	QueueStatusCancelled  = "CANCELLED"
)

const (
	QueuePriorityLow    = "LOW"
	QueuePriorityNormal = "NORMAL"
	QueuePriorityHigh   = "HIGH"
	QueuePriorityUrgent = "URGENT"
)

// QueuePriorityRank orders priorities for scheduling. Unknown values
// rank below LOW so they sink to the back of the queue.
func QueuePriorityRank(p string) int {
	switch p {
	case QueuePriorityUrgent:
		return 4
	case QueuePriorityHigh:
		return 3
	case QueuePriorityNormal:
		return 2
	case QueuePriorityLow:
		return 1
	}
	return 0
}

const (
	ShiftStatusOpen   = "OPEN"
	ShiftStatusClosed = "CLOSED"
)

const (
	TableStatusAvailable   = "AVAILABLE"
	TableStatusUnavailable = "UNAVAILABLE"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// ── Identity and order intake (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
	UserRoleWaiter  = "WAITER"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED_AMOUNT"
)
