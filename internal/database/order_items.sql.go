package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, table_order_id, product_id, product_name, quantity, unit_price, observation, status, ordered_at, delivered_at`

const createTableOrderItem = `
INSERT INTO table_order_items (table_order_id, product_id, product_name, quantity, unit_price, observation)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns

type CreateTableOrderItemParams struct {
	TableOrderID uuid.UUID
	ProductID    pgtype.UUID
	ProductName  string
	Quantity     int32
	UnitPrice    pgtype.Numeric
	Observation  pgtype.Text
}

func (q *Queries) CreateTableOrderItem(ctx context.Context, arg CreateTableOrderItemParams) (TableOrderItem, error) {
	row := q.db.QueryRow(ctx, createTableOrderItem,
		arg.TableOrderID,
		arg.ProductID,
		arg.ProductName,
		arg.Quantity,
		arg.UnitPrice,
		arg.Observation,
	)
	return scanTableOrderItem(row)
}

const getTableOrderItem = `
SELECT i.id, i.table_order_id, i.product_id, i.product_name, i.quantity, i.unit_price, i.observation, i.status, i.ordered_at, i.delivered_at
FROM table_order_items i
JOIN table_orders o ON o.id = i.table_order_id
WHERE i.id = $1 AND o.restaurant_id = $2`

type GetTableOrderItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetTableOrderItem(ctx context.Context, arg GetTableOrderItemParams) (TableOrderItem, error) {
	row := q.db.QueryRow(ctx, getTableOrderItem, arg.ID, arg.RestaurantID)
	return scanTableOrderItem(row)
}

const listTableOrderItems = `
SELECT ` + orderItemColumns + `
FROM table_order_items
WHERE table_order_id = $1
ORDER BY ordered_at`

func (q *Queries) ListTableOrderItems(ctx context.Context, tableOrderID uuid.UUID) ([]TableOrderItem, error) {
	rows, err := q.db.Query(ctx, listTableOrderItems, tableOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TableOrderItem
	for rows.Next() {
		it, err := scanTableOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetOrderItemStatus is a compare-and-set: the caller supplies the status it
// read, and the write only lands if nobody moved the item since. A stale
// kitchen screen can never regress ready back to preparing.
const setOrderItemStatus = `
UPDATE table_order_items i
SET status = $3,
    delivered_at = CASE WHEN $3 = 'delivered' THEN now() ELSE i.delivered_at END
FROM table_orders o
WHERE i.id = $1 AND o.id = i.table_order_id AND o.restaurant_id = $2 AND i.status = $4
RETURNING i.id, i.table_order_id, i.product_id, i.product_name, i.quantity, i.unit_price, i.observation, i.status, i.ordered_at, i.delivered_at`

type SetOrderItemStatusParams struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	Status        string
	CurrentStatus string
}

func (q *Queries) SetOrderItemStatus(ctx context.Context, arg SetOrderItemStatusParams) (TableOrderItem, error) {
	row := q.db.QueryRow(ctx, setOrderItemStatus, arg.ID, arg.RestaurantID, arg.Status, arg.CurrentStatus)
	return scanTableOrderItem(row)
}

const sumTableOrderItems = `
SELECT COALESCE(SUM(quantity * unit_price), 0)
FROM table_order_items
WHERE table_order_id = $1 AND status <> 'cancelled'`

func (q *Queries) SumTableOrderItems(ctx context.Context, tableOrderID uuid.UUID) (pgtype.Numeric, error) {
	var sum pgtype.Numeric
	err := q.db.QueryRow(ctx, sumTableOrderItems, tableOrderID).Scan(&sum)
	return sum, err
}

const cancelPendingItems = `
UPDATE table_order_items
SET status = 'cancelled'
WHERE table_order_id = $1 AND status IN ('pending', 'preparing')`

func (q *Queries) CancelPendingItems(ctx context.Context, tableOrderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, cancelPendingItems, tableOrderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTableOrderItem(row rowScanner) (TableOrderItem, error) {
	var it TableOrderItem
	err := row.Scan(
		&it.ID,
		&it.TableOrderID,
		&it.ProductID,
		&it.ProductName,
		&it.Quantity,
		&it.UnitPrice,
		&it.Observation,
		&it.Status,
		&it.OrderedAt,
		&it.DeliveredAt,
	)
	return it, err
}
