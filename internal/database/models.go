package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Restaurant struct {
	ID                uuid.UUID
	Name              string
	KitchenPin        pgtype.Text
	KitchenPinEnabled bool
	CreatedAt         time.Time
}

type User struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}

type Waiter struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Pin          string
	IsActive     bool
}

type Table struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	Number         int32
	Name           pgtype.Text
	Capacity       int32
	Status         string
	CurrentOrderID pgtype.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TableOrder struct {
	ID                   uuid.UUID
	RestaurantID         uuid.UUID
	TableID              pgtype.UUID
	WaiterName           pgtype.Text
	CustomerCount        int32
	Status               string
	Subtotal             pgtype.Numeric
	Discount             pgtype.Numeric
	DiscountType         string
	ServiceFeeEnabled    bool
	ServiceFeePercentage pgtype.Numeric
	TotalAmount          pgtype.Numeric
	PaymentMethod        pgtype.Text
	OpenedAt             time.Time
	ClosedAt             pgtype.Timestamptz
}

type TableOrderItem struct {
	ID           uuid.UUID
	TableOrderID uuid.UUID
	ProductID    pgtype.UUID
	ProductName  string
	Quantity     int32
	UnitPrice    pgtype.Numeric
	Observation  pgtype.Text
	Status       string
	OrderedAt    time.Time
	DeliveredAt  pgtype.Timestamptz
}

type DeliveryOrder struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	CustomerName  string
	CustomerPhone pgtype.Text
	Address       string
	PaymentMethod string
	ChangeFor     pgtype.Numeric
	Status        string
	Subtotal      pgtype.Numeric
	DeliveryFee   pgtype.Numeric
	TotalAmount   pgtype.Numeric
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DeliveryOrderItem struct {
	ID              uuid.UUID
	DeliveryOrderID uuid.UUID
	ProductID       pgtype.UUID
	ProductName     string
	Quantity        int32
	UnitPrice       pgtype.Numeric
	Observation     pgtype.Text
	Status          string
	OrderedAt       time.Time
}
