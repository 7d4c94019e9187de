package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, restaurant_id, number, name, capacity, status, current_order_id, created_at, updated_at`

const createTable = `
INSERT INTO restaurant_tables (restaurant_id, number, name, capacity)
VALUES ($1, $2, $3, $4)
RETURNING ` + tableColumns

type CreateTableParams struct {
	RestaurantID uuid.UUID
	Number       int32
	Name         pgtype.Text
	Capacity     int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, createTable, arg.RestaurantID, arg.Number, arg.Name, arg.Capacity)
	return scanTable(row)
}

const getTable = `
SELECT ` + tableColumns + `
FROM restaurant_tables
WHERE id = $1 AND restaurant_id = $2`

type GetTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, getTable, arg.ID, arg.RestaurantID)
	return scanTable(row)
}

const listTables = `
SELECT ` + tableColumns + `
FROM restaurant_tables
WHERE restaurant_id = $1
ORDER BY number`

func (q *Queries) ListTables(ctx context.Context, restaurantID uuid.UUID) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// UpdateTable only touches available tables; an occupied table's identity
// must not change mid-service. No rows returned means the table is missing
// or not available.
const updateTable = `
UPDATE restaurant_tables
SET number = $3, name = $4, capacity = $5, updated_at = now()
WHERE id = $1 AND restaurant_id = $2 AND status = 'available'
RETURNING ` + tableColumns

type UpdateTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Number       int32
	Name         pgtype.Text
	Capacity     int32
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, updateTable, arg.ID, arg.RestaurantID, arg.Number, arg.Name, arg.Capacity)
	return scanTable(row)
}

const deleteTable = `
DELETE FROM restaurant_tables
WHERE id = $1 AND restaurant_id = $2 AND status = 'available'
RETURNING id`

type DeleteTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteTable(ctx context.Context, arg DeleteTableParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteTable, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

// OccupyTable is the open-table race arbiter: the status guard makes the
// transition conditional, so exactly one of two concurrent opens wins.
const occupyTable = `
UPDATE restaurant_tables
SET status = 'occupied', current_order_id = $3, updated_at = now()
WHERE id = $1 AND restaurant_id = $2 AND status = 'available'
RETURNING ` + tableColumns

type OccupyTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
}

func (q *Queries) OccupyTable(ctx context.Context, arg OccupyTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, occupyTable, arg.ID, arg.RestaurantID, arg.OrderID)
	return scanTable(row)
}

const markTableRequestingBill = `
UPDATE restaurant_tables
SET status = 'requesting_bill', updated_at = now()
WHERE id = $1 AND current_order_id = $2 AND status = 'occupied'
RETURNING ` + tableColumns

type MarkTableRequestingBillParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) MarkTableRequestingBill(ctx context.Context, arg MarkTableRequestingBillParams) (Table, error) {
	row := q.db.QueryRow(ctx, markTableRequestingBill, arg.ID, arg.OrderID)
	return scanTable(row)
}

// FreeTable releases a table only while it still points at the order being
// closed, so a stale close cannot clobber a table reopened for someone else.
const freeTable = `
UPDATE restaurant_tables
SET status = 'available', current_order_id = NULL, updated_at = now()
WHERE id = $1 AND current_order_id = $2
RETURNING ` + tableColumns

type FreeTableParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) FreeTable(ctx context.Context, arg FreeTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, freeTable, arg.ID, arg.OrderID)
	return scanTable(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTable(row rowScanner) (Table, error) {
	var t Table
	err := row.Scan(
		&t.ID,
		&t.RestaurantID,
		&t.Number,
		&t.Name,
		&t.Capacity,
		&t.Status,
		&t.CurrentOrderID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}
