package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Product struct {
	ID            uuid.UUID
	BranchID      uuid.UUID
	Name          string
	Price         pgtype.Numeric
	DeliveryPrice pgtype.Numeric
	IsActive      bool
}

type Discount struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Name     string
	Type     string
	Value    pgtype.Numeric
	IsActive bool
}

type RestaurantTable struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Name     string
	Status   string
}

type Order struct {
	ID              uuid.UUID
	BranchID        uuid.UUID
	OrderNumber     string
	OrderType       string
	Status          string
	TableID         pgtype.UUID
	DeliveryAddress pgtype.Text
	DiscountID      pgtype.UUID
	Subtotal        pgtype.Numeric
	DiscountAmount  pgtype.Numeric
	TaxAmount       pgtype.Numeric
	TotalAmount     pgtype.Numeric
	ReceivedAmount  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	Notes           pgtype.Text
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Quantity       int32
	UnitPrice      pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Subtotal       pgtype.Numeric
	Status         string
	Notes          pgtype.Text
	CreatedAt      time.Time
}

type OrderItemDetail struct {
	ID          uuid.UUID
	OrderItemID uuid.UUID
	Name        string
	PriceDelta  pgtype.Numeric
}

type Shift struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	Status         string
	StartAmount    pgtype.Numeric
	EndAmount      pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	DiffAmount     pgtype.Numeric
	OpenedBy       uuid.UUID
	OpenedAt       time.Time
	ClosedBy       pgtype.UUID
	ClosedAt       pgtype.Timestamptz
}

type Payment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ShiftID     pgtype.UUID
	Method      string
	Amount      pgtype.Numeric
	Status      string
	ProcessedBy uuid.UUID
	ProcessedAt time.Time
}

type QueueEntry struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	OrderID   uuid.UUID
	Status    string
	Priority  string
	Position  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}
