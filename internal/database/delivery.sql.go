package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const deliveryOrderColumns = `id, restaurant_id, customer_name, customer_phone, address, payment_method, change_for, status, subtotal, delivery_fee, total_amount, created_at, updated_at`

const createDeliveryOrder = `
INSERT INTO delivery_orders (restaurant_id, customer_name, customer_phone, address, payment_method, change_for, subtotal, delivery_fee, total_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + deliveryOrderColumns

type CreateDeliveryOrderParams struct {
	RestaurantID  uuid.UUID
	CustomerName  string
	CustomerPhone pgtype.Text
	Address       string
	PaymentMethod string
	ChangeFor     pgtype.Numeric
	Subtotal      pgtype.Numeric
	DeliveryFee   pgtype.Numeric
	TotalAmount   pgtype.Numeric
}

func (q *Queries) CreateDeliveryOrder(ctx context.Context, arg CreateDeliveryOrderParams) (DeliveryOrder, error) {
	row := q.db.QueryRow(ctx, createDeliveryOrder,
		arg.RestaurantID,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.Address,
		arg.PaymentMethod,
		arg.ChangeFor,
		arg.Subtotal,
		arg.DeliveryFee,
		arg.TotalAmount,
	)
	return scanDeliveryOrder(row)
}

const getDeliveryOrder = `
SELECT ` + deliveryOrderColumns + `
FROM delivery_orders
WHERE id = $1 AND restaurant_id = $2`

type GetDeliveryOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetDeliveryOrder(ctx context.Context, arg GetDeliveryOrderParams) (DeliveryOrder, error) {
	row := q.db.QueryRow(ctx, getDeliveryOrder, arg.ID, arg.RestaurantID)
	return scanDeliveryOrder(row)
}

const listDeliveryOrders = `
SELECT ` + deliveryOrderColumns + `
FROM delivery_orders
WHERE restaurant_id = $1
  AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListDeliveryOrdersParams struct {
	RestaurantID uuid.UUID
	Status       pgtype.Text
	Limit        int32
	Offset       int32
}

func (q *Queries) ListDeliveryOrders(ctx context.Context, arg ListDeliveryOrdersParams) ([]DeliveryOrder, error) {
	rows, err := q.db.Query(ctx, listDeliveryOrders, arg.RestaurantID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []DeliveryOrder
	for rows.Next() {
		o, err := scanDeliveryOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SetDeliveryStatus is a compare-and-set against the status the caller read.
const setDeliveryStatus = `
UPDATE delivery_orders
SET status = $3, updated_at = now()
WHERE id = $1 AND restaurant_id = $2 AND status = $4
RETURNING ` + deliveryOrderColumns

type SetDeliveryStatusParams struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	Status        string
	CurrentStatus string
}

func (q *Queries) SetDeliveryStatus(ctx context.Context, arg SetDeliveryStatusParams) (DeliveryOrder, error) {
	row := q.db.QueryRow(ctx, setDeliveryStatus, arg.ID, arg.RestaurantID, arg.Status, arg.CurrentStatus)
	return scanDeliveryOrder(row)
}

const deliveryItemColumns = `id, delivery_order_id, product_id, product_name, quantity, unit_price, observation, status, ordered_at`

const createDeliveryOrderItem = `
INSERT INTO delivery_order_items (delivery_order_id, product_id, product_name, quantity, unit_price, observation)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + deliveryItemColumns

type CreateDeliveryOrderItemParams struct {
	DeliveryOrderID uuid.UUID
	ProductID       pgtype.UUID
	ProductName     string
	Quantity        int32
	UnitPrice       pgtype.Numeric
	Observation     pgtype.Text
}

func (q *Queries) CreateDeliveryOrderItem(ctx context.Context, arg CreateDeliveryOrderItemParams) (DeliveryOrderItem, error) {
	row := q.db.QueryRow(ctx, createDeliveryOrderItem,
		arg.DeliveryOrderID,
		arg.ProductID,
		arg.ProductName,
		arg.Quantity,
		arg.UnitPrice,
		arg.Observation,
	)
	return scanDeliveryOrderItem(row)
}

const getDeliveryOrderItem = `
SELECT i.id, i.delivery_order_id, i.product_id, i.product_name, i.quantity, i.unit_price, i.observation, i.status, i.ordered_at
FROM delivery_order_items i
JOIN delivery_orders o ON o.id = i.delivery_order_id
WHERE i.id = $1 AND o.restaurant_id = $2`

type GetDeliveryOrderItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetDeliveryOrderItem(ctx context.Context, arg GetDeliveryOrderItemParams) (DeliveryOrderItem, error) {
	row := q.db.QueryRow(ctx, getDeliveryOrderItem, arg.ID, arg.RestaurantID)
	return scanDeliveryOrderItem(row)
}

const listDeliveryOrderItems = `
SELECT ` + deliveryItemColumns + `
FROM delivery_order_items
WHERE delivery_order_id = $1
ORDER BY ordered_at`

func (q *Queries) ListDeliveryOrderItems(ctx context.Context, deliveryOrderID uuid.UUID) ([]DeliveryOrderItem, error) {
	rows, err := q.db.Query(ctx, listDeliveryOrderItems, deliveryOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeliveryOrderItem
	for rows.Next() {
		it, err := scanDeliveryOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const setDeliveryItemStatus = `
UPDATE delivery_order_items i
SET status = $3
FROM delivery_orders o
WHERE i.id = $1 AND o.id = i.delivery_order_id AND o.restaurant_id = $2 AND i.status = $4
RETURNING i.id, i.delivery_order_id, i.product_id, i.product_name, i.quantity, i.unit_price, i.observation, i.status, i.ordered_at`

type SetDeliveryItemStatusParams struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	Status        string
	CurrentStatus string
}

func (q *Queries) SetDeliveryItemStatus(ctx context.Context, arg SetDeliveryItemStatusParams) (DeliveryOrderItem, error) {
	row := q.db.QueryRow(ctx, setDeliveryItemStatus, arg.ID, arg.RestaurantID, arg.Status, arg.CurrentStatus)
	return scanDeliveryOrderItem(row)
}

func scanDeliveryOrder(row rowScanner) (DeliveryOrder, error) {
	var o DeliveryOrder
	err := row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.CustomerName,
		&o.CustomerPhone,
		&o.Address,
		&o.PaymentMethod,
		&o.ChangeFor,
		&o.Status,
		&o.Subtotal,
		&o.DeliveryFee,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func scanDeliveryOrderItem(row rowScanner) (DeliveryOrderItem, error) {
	var it DeliveryOrderItem
	err := row.Scan(
		&it.ID,
		&it.DeliveryOrderID,
		&it.ProductID,
		&it.ProductName,
		&it.Quantity,
		&it.UnitPrice,
		&it.Observation,
		&it.Status,
		&it.OrderedAt,
	)
	return it, err
}
