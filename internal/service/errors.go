package service

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors wrap one of these so handlers can
// map them to a status code with a single errors.Is check.
var (
	ErrValidation   = errors.New("validation failed")
	ErrPrecondition = errors.New("precondition failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrEmptyItems       = fmt.Errorf("%w: items are required", ErrValidation)
	ErrInvalidOrderType = fmt.Errorf("%w: invalid order_type", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	ErrInvalidPriority  = fmt.Errorf("%w: invalid priority", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrMissingBranch    = fmt.Errorf("%w: unit of work has no branch", ErrValidation)
	ErrMissingUser      = fmt.Errorf("%w: unit of work has no user", ErrValidation)
	ErrDeliveryAddress  = fmt.Errorf("%w: delivery_address is required for DELIVERY orders", ErrValidation)
	ErrTableRequired    = fmt.Errorf("%w: table_id is required for DINE_IN orders", ErrValidation)

	ErrNoOpenShift      = fmt.Errorf("%w: no open shift for this branch", ErrPrecondition)
	ErrOrderClosed      = fmt.Errorf("%w: order is in a terminal status", ErrPrecondition)
	ErrOrderNumberTaken = fmt.Errorf("%w: order_number already exists", ErrConflict)
	ErrQueueEntryExists = fmt.Errorf("%w: order already has a queue entry", ErrConflict)

	ErrOrderNotFound      = fmt.Errorf("%w: order", ErrNotFound)
	ErrItemNotFound       = fmt.Errorf("%w: order item", ErrNotFound)
	ErrShiftNotFound      = fmt.Errorf("%w: shift", ErrNotFound)
	ErrTableNotFound      = fmt.Errorf("%w: table not in branch", ErrNotFound)
	ErrProductNotFound    = fmt.Errorf("%w: product not in branch", ErrNotFound)
	ErrDiscountNotFound   = fmt.Errorf("%w: discount not in branch", ErrNotFound)
	ErrQueueEntryNotFound = fmt.Errorf("%w: queue entry", ErrNotFound)
)
