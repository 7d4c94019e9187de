package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getKitchenPin = `
SELECT kitchen_pin, kitchen_pin_enabled
FROM restaurants
WHERE id = $1`

type GetKitchenPinRow struct {
	KitchenPin        pgtype.Text
	KitchenPinEnabled bool
}

func (q *Queries) GetKitchenPin(ctx context.Context, restaurantID uuid.UUID) (GetKitchenPinRow, error) {
	var row GetKitchenPinRow
	err := q.db.QueryRow(ctx, getKitchenPin, restaurantID).Scan(&row.KitchenPin, &row.KitchenPinEnabled)
	return row, err
}

const getWaiter = `
SELECT id, restaurant_id, name, pin, is_active
FROM waiters
WHERE id = $1 AND restaurant_id = $2`

type GetWaiterParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetWaiter(ctx context.Context, arg GetWaiterParams) (Waiter, error) {
	var w Waiter
	err := q.db.QueryRow(ctx, getWaiter, arg.ID, arg.RestaurantID).Scan(
		&w.ID,
		&w.RestaurantID,
		&w.Name,
		&w.Pin,
		&w.IsActive,
	)
	return w, err
}

const listWaiters = `
SELECT id, restaurant_id, name, pin, is_active
FROM waiters
WHERE restaurant_id = $1 AND is_active
ORDER BY name`

func (q *Queries) ListWaiters(ctx context.Context, restaurantID uuid.UUID) ([]Waiter, error) {
	rows, err := q.db.Query(ctx, listWaiters, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var waiters []Waiter
	for rows.Next() {
		var w Waiter
		if err := rows.Scan(&w.ID, &w.RestaurantID, &w.Name, &w.Pin, &w.IsActive); err != nil {
			return nil, err
		}
		waiters = append(waiters, w)
	}
	return waiters, rows.Err()
}
