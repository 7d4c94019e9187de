package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableOrderColumns = `id, restaurant_id, table_id, waiter_name, customer_count, status, subtotal, discount, discount_type, service_fee_enabled, service_fee_percentage, total_amount, payment_method, opened_at, closed_at`

const createTableOrder = `
INSERT INTO table_orders (restaurant_id, table_id, waiter_name, customer_count)
VALUES ($1, $2, $3, $4)
RETURNING ` + tableOrderColumns

type CreateTableOrderParams struct {
	RestaurantID  uuid.UUID
	TableID       pgtype.UUID
	WaiterName    pgtype.Text
	CustomerCount int32
}

func (q *Queries) CreateTableOrder(ctx context.Context, arg CreateTableOrderParams) (TableOrder, error) {
	row := q.db.QueryRow(ctx, createTableOrder, arg.RestaurantID, arg.TableID, arg.WaiterName, arg.CustomerCount)
	return scanTableOrder(row)
}

const getTableOrder = `
SELECT ` + tableOrderColumns + `
FROM table_orders
WHERE id = $1 AND restaurant_id = $2`

type GetTableOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetTableOrder(ctx context.Context, arg GetTableOrderParams) (TableOrder, error) {
	row := q.db.QueryRow(ctx, getTableOrder, arg.ID, arg.RestaurantID)
	return scanTableOrder(row)
}

// AddToOrderSubtotal bumps the subtotal and recomputes total_amount in one
// statement, so two waiters adding items concurrently both land
// (no read-modify-write lost update). The status guard keeps closed orders
// immutable.
const addToOrderSubtotal = `
UPDATE table_orders o
SET subtotal = s.new_subtotal,
    total_amount = GREATEST(
        s.net + CASE WHEN o.service_fee_enabled THEN s.net * o.service_fee_percentage / 100 ELSE 0 END,
        0)
FROM (
    SELECT id,
           subtotal + $2 AS new_subtotal,
           subtotal + $2 - CASE WHEN discount_type = 'percentage'
                                THEN (subtotal + $2) * discount / 100
                                ELSE discount END AS net
    FROM table_orders
    WHERE id = $1
) s
WHERE o.id = s.id AND o.status = 'open'
RETURNING o.id, o.restaurant_id, o.table_id, o.waiter_name, o.customer_count, o.status, o.subtotal, o.discount, o.discount_type, o.service_fee_enabled, o.service_fee_percentage, o.total_amount, o.payment_method, o.opened_at, o.closed_at`

type AddToOrderSubtotalParams struct {
	ID    uuid.UUID
	Delta pgtype.Numeric
}

func (q *Queries) AddToOrderSubtotal(ctx context.Context, arg AddToOrderSubtotalParams) (TableOrder, error) {
	row := q.db.QueryRow(ctx, addToOrderSubtotal, arg.ID, arg.Delta)
	return scanTableOrder(row)
}

// DeductFromOrderSubtotal takes a cancelled item's value off the bill and
// recomputes total_amount. Unlike adding, this stays legal while the
// customer waits for the bill; only settled or voided orders are immutable.
const deductFromOrderSubtotal = `
UPDATE table_orders o
SET subtotal = s.new_subtotal,
    total_amount = GREATEST(
        s.net + CASE WHEN o.service_fee_enabled THEN s.net * o.service_fee_percentage / 100 ELSE 0 END,
        0)
FROM (
    SELECT id,
           GREATEST(subtotal - $2, 0) AS new_subtotal,
           GREATEST(subtotal - $2, 0) - CASE WHEN discount_type = 'percentage'
                                             THEN GREATEST(subtotal - $2, 0) * discount / 100
                                             ELSE discount END AS net
    FROM table_orders
    WHERE id = $1
) s
WHERE o.id = s.id AND o.status IN ('open', 'requesting_bill')
RETURNING o.id, o.restaurant_id, o.table_id, o.waiter_name, o.customer_count, o.status, o.subtotal, o.discount, o.discount_type, o.service_fee_enabled, o.service_fee_percentage, o.total_amount, o.payment_method, o.opened_at, o.closed_at`

type DeductFromOrderSubtotalParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

func (q *Queries) DeductFromOrderSubtotal(ctx context.Context, arg DeductFromOrderSubtotalParams) (TableOrder, error) {
	row := q.db.QueryRow(ctx, deductFromOrderSubtotal, arg.ID, arg.Amount)
	return scanTableOrder(row)
}

const markOrderRequestingBill = `
UPDATE table_orders
SET status = 'requesting_bill'
WHERE id = $1 AND restaurant_id = $2 AND status = 'open'
RETURNING ` + tableOrderColumns

type MarkOrderRequestingBillParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) MarkOrderRequestingBill(ctx context.Context, arg MarkOrderRequestingBillParams) (TableOrder, error) {
	row := q.db.QueryRow(ctx, markOrderRequestingBill, arg.ID, arg.RestaurantID)
	return scanTableOrder(row)
}

// CloseTableOrder writes the final, server-computed charge breakdown and
// flips the order to paid. closed_at is set here and never again.
const closeTableOrder = `
UPDATE table_orders
SET status = 'paid',
    payment_method = $3,
    subtotal = $4,
    discount = $5,
    discount_type = $6,
    service_fee_enabled = $7,
    service_fee_percentage = $8,
    total_amount = $9,
    closed_at = now()
WHERE id = $1 AND restaurant_id = $2 AND status IN ('open', 'requesting_bill')
RETURNING ` + tableOrderColumns

type CloseTableOrderParams struct {
	ID                   uuid.UUID
	RestaurantID         uuid.UUID
	PaymentMethod        string
	Subtotal             pgtype.Numeric
	Discount             pgtype.Numeric
	DiscountType         string
	ServiceFeeEnabled    bool
	ServiceFeePercentage pgtype.Numeric
	TotalAmount          pgtype.Numeric
}

func (q *Queries) CloseTableOrder(ctx context.Context, arg CloseTableOrderParams) (TableOrder, error) {
	row := q.db.QueryRow(ctx, closeTableOrder,
		arg.ID,
		arg.RestaurantID,
		arg.PaymentMethod,
		arg.Subtotal,
		arg.Discount,
		arg.DiscountType,
		arg.ServiceFeeEnabled,
		arg.ServiceFeePercentage,
		arg.TotalAmount,
	)
	return scanTableOrder(row)
}

const cancelTableOrder = `
UPDATE table_orders
SET status = 'cancelled', closed_at = now()
WHERE id = $1 AND restaurant_id = $2 AND status = 'open'
RETURNING ` + tableOrderColumns

type CancelTableOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) CancelTableOrder(ctx context.Context, arg CancelTableOrderParams) (TableOrder, error) {
	row := q.db.QueryRow(ctx, cancelTableOrder, arg.ID, arg.RestaurantID)
	return scanTableOrder(row)
}

func scanTableOrder(row rowScanner) (TableOrder, error) {
	var o TableOrder
	err := row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.TableID,
		&o.WaiterName,
		&o.CustomerCount,
		&o.Status,
		&o.Subtotal,
		&o.Discount,
		&o.DiscountType,
		&o.ServiceFeeEnabled,
		&o.ServiceFeePercentage,
		&o.TotalAmount,
		&o.PaymentMethod,
		&o.OpenedAt,
		&o.ClosedAt,
	)
	return o, err
}
