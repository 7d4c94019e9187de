package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// listKitchenItems merges the two aggregates the kitchen cares about into one
// feed. Closed/cancelled parents are filtered out so a stale item on a paid
// order can never reappear on the display. Ordering is oldest ordered_at
// first: items can join an order long after older ones were fired, so
// insertion order is not the waiting order.
const listKitchenItems = `
SELECT i.id, 'table' AS order_type, o.id AS order_id, t.number AS table_number,
       i.product_name, i.quantity, i.observation, i.status, i.ordered_at,
       o.waiter_name, NULL::text AS customer_name
FROM table_order_items i
JOIN table_orders o ON o.id = i.table_order_id
LEFT JOIN restaurant_tables t ON t.id = o.table_id
WHERE o.restaurant_id = $1
  AND o.status IN ('open', 'requesting_bill')
  AND i.status = ANY($2::text[])
UNION ALL
SELECT i.id, 'delivery', o.id, NULL::int,
       i.product_name, i.quantity, i.observation, i.status, i.ordered_at,
       NULL::text, o.customer_name
FROM delivery_order_items i
JOIN delivery_orders o ON o.id = i.delivery_order_id
WHERE o.restaurant_id = $1
  AND o.status IN ('pending', 'preparing')
  AND i.status = ANY($2::text[])
ORDER BY ordered_at`

type ListKitchenItemsParams struct {
	RestaurantID uuid.UUID
	Statuses     []string
}

type KitchenItemRow struct {
	ID           uuid.UUID
	OrderType    string
	OrderID      uuid.UUID
	TableNumber  pgtype.Int4
	ProductName  string
	Quantity     int32
	Observation  pgtype.Text
	Status       string
	OrderedAt    time.Time
	WaiterName   pgtype.Text
	CustomerName pgtype.Text
}

func (q *Queries) ListKitchenItems(ctx context.Context, arg ListKitchenItemsParams) ([]KitchenItemRow, error) {
	rows, err := q.db.Query(ctx, listKitchenItems, arg.RestaurantID, arg.Statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []KitchenItemRow
	for rows.Next() {
		var it KitchenItemRow
		if err := rows.Scan(
			&it.ID,
			&it.OrderType,
			&it.OrderID,
			&it.TableNumber,
			&it.ProductName,
			&it.Quantity,
			&it.Observation,
			&it.Status,
			&it.OrderedAt,
			&it.WaiterName,
			&it.CustomerName,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
