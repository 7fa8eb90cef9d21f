package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/tenant"
)

// ShiftStore defines the DB methods the shift gate needs.
// Satisfied by *database.Queries.
type ShiftStore interface {
	CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error)
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetOpenShift(ctx context.Context) (database.Shift, error)
	CloseShift(ctx context.Context, arg database.CloseShiftParams) (database.Shift, error)
	SumShiftPayments(ctx context.Context, shiftID uuid.UUID) (pgtype.Numeric, error)
	CountActiveOrdersSince(ctx context.Context, since time.Time) (int64, error)
	GetShiftSales(ctx context.Context, shiftID uuid.UUID) (database.GetShiftSalesRow, error)
	GetShiftPaymentBreakdown(ctx context.Context, shiftID uuid.UUID) ([]database.GetShiftPaymentBreakdownRow, error)
	GetShiftTopProducts(ctx context.Context, shiftID uuid.UUID, limit int32) ([]database.GetShiftTopProductsRow, error)
}

type NewShiftStore func(q *database.Queries) ShiftStore

// ShiftService opens and reconciles cash shifts. At most one shift per
// branch is open at a time; the partial unique index backs that up.
type ShiftService struct {
	newStore NewShiftStore
	notifier Notifier
}

func NewShiftService(newStore NewShiftStore, notifier Notifier) *ShiftService {
	return &ShiftService{newStore: newStore, notifier: notifier}
}

type OpenShiftRequest struct {
	StartAmount string
}

type CloseShiftRequest struct {
	EndAmount string
}

// ShiftSummary is the close-of-shift report.
type ShiftSummary struct {
	Shift            database.Shift                         `json:"shift"`
	OrderCount       int64                                  `json:"order_count"`
	GrossSales       decimal.Decimal                        `json:"gross_sales"`
	TotalDiscount    decimal.Decimal                        `json:"total_discount"`
	TotalTax         decimal.Decimal                        `json:"total_tax"`
	PaymentBreakdown []database.GetShiftPaymentBreakdownRow `json:"payment_breakdown"`
	TopProducts      []database.GetShiftTopProductsRow      `json:"top_products"`
}

// Open starts a shift for the branch. Opening is idempotent: when a
// shift is already open the existing one is returned unchanged, the
// start amount in the request notwithstanding. The boolean reports
// whether a new shift was actually started.
func (s *ShiftService) Open(ctx context.Context, req OpenShiftRequest) (database.Shift, bool, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return database.Shift{}, false, tenant.ErrNoActiveScope
	}
	tc := scope.Tenant()
	if tc.BranchID == nil {
		return database.Shift{}, false, ErrMissingBranch
	}
	if tc.UserID == nil {
		return database.Shift{}, false, ErrMissingUser
	}
	startAmount, err := decimal.NewFromString(req.StartAmount)
	if err != nil || startAmount.IsNegative() {
		return database.Shift{}, false, ErrInvalidAmount
	}

	var shift database.Shift
	var created bool
	err = scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		existing, err := store.GetOpenShift(ctx)
		if err == nil {
			shift = existing
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("get open shift: %w", err)
		}
		shift, err = store.CreateShift(ctx, database.CreateShiftParams{
			BranchID:    *tc.BranchID,
			StartAmount: decimalToNumeric(startAmount),
			OpenedBy:    *tc.UserID,
		})
		if err != nil {
			return fmt.Errorf("create shift: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		// A concurrent open can slip between the read and the insert;
		// the partial unique index reports it and the winner's shift
		// is returned instead.
		if isOpenShiftConflict(err) {
			winner, err := s.Current(ctx)
			return winner, false, err
		}
		return database.Shift{}, false, err
	}
	if created {
		s.notifier.EmitToBranch(*tc.BranchID, EventShiftUpdated, shift)
	}
	return shift, created, nil
}

// Current returns the branch's open shift.
func (s *ShiftService) Current(ctx context.Context) (database.Shift, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return database.Shift{}, tenant.ErrNoActiveScope
	}
	shift, err := s.newStore(scope.Queries()).GetOpenShift(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Shift{}, ErrShiftNotFound
		}
		return database.Shift{}, fmt.Errorf("get open shift: %w", err)
	}
	return shift, nil
}

// Close reconciles and closes the open shift. It is refused while the
// shift still has active orders; the count is included in the error so
// the cashier knows how much is outstanding.
func (s *ShiftService) Close(ctx context.Context, req CloseShiftRequest) (database.Shift, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return database.Shift{}, tenant.ErrNoActiveScope
	}
	tc := scope.Tenant()
	endAmount, err := decimal.NewFromString(req.EndAmount)
	if err != nil || endAmount.IsNegative() {
		return database.Shift{}, ErrInvalidAmount
	}

	var shift database.Shift
	err = scope.RunTx(ctx, func(q *database.Queries) error {
		store := s.newStore(q)
		open, err := store.GetOpenShift(ctx)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoOpenShift
			}
			return fmt.Errorf("get open shift: %w", err)
		}

		active, err := store.CountActiveOrdersSince(ctx, open.OpenedAt)
		if err != nil {
			return fmt.Errorf("count active orders: %w", err)
		}
		if active > 0 {
			return fmt.Errorf("%w: %d active orders must be settled before closing", ErrPrecondition, active)
		}

		collected, err := store.SumShiftPayments(ctx, open.ID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		expected := numericToDecimal(open.StartAmount).Add(numericToDecimal(collected))
		diff := endAmount.Sub(expected)

		shift, err = store.CloseShift(ctx, database.CloseShiftParams{
			ID:             open.ID,
			EndAmount:      decimalToNumeric(endAmount),
			ExpectedAmount: decimalToNumeric(expected),
			DiffAmount:     decimalToNumeric(diff),
			ClosedBy:       pgUUID(tc.UserID),
		})
		if err != nil {
			// already closed by a concurrent request
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoOpenShift
			}
			return fmt.Errorf("close shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.Shift{}, err
	}
	if tc.BranchID != nil {
		s.notifier.EmitToBranch(*tc.BranchID, EventShiftUpdated, shift)
	}
	return shift, nil
}

// Summary builds the shift report: sales totals, per-method payment
// breakdown, and top products by revenue.
func (s *ShiftService) Summary(ctx context.Context, shiftID uuid.UUID) (*ShiftSummary, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoActiveScope
	}
	store := s.newStore(scope.Queries())

	shift, err := store.GetShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("get shift: %w", err)
	}
	sales, err := store.GetShiftSales(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("shift sales: %w", err)
	}
	breakdown, err := store.GetShiftPaymentBreakdown(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("payment breakdown: %w", err)
	}
	top, err := store.GetShiftTopProducts(ctx, shiftID, 5)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}

	return &ShiftSummary{
		Shift:            shift,
		OrderCount:       sales.OrderCount,
		GrossSales:       numericToDecimal(sales.GrossSales),
		TotalDiscount:    numericToDecimal(sales.TotalDiscount),
		TotalTax:         numericToDecimal(sales.TotalTax),
		PaymentBreakdown: breakdown,
		TopProducts:      top,
	}, nil
}

// isOpenShiftConflict checks for a violation of the one-open-shift
// partial unique index.
func isOpenShiftConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "shifts_branch_open_key"
	}
	return false
}
