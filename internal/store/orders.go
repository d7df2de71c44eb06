package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, guest_name, table_number, waiter_id,
		status, created_at, updated_at`

// GetNextOrderNumber returns the next sequential order number. Concurrent
// creations can race to the same value; the unique constraint on
// orders.order_number catches that and the service retries.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_seq), 0) + 1 FROM orders`).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	OrderSeq    int32
	OrderNumber string
	GuestName   string
	TableNumber string
	WaiterID    pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (order_seq, order_number, guest_name, table_number, waiter_id, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING `+orderColumns,
		arg.OrderSeq, arg.OrderNumber, arg.GuestName, arg.TableNumber, arg.WaiterID)
	return scanOrder(row)
}

type CreateOrderLineParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	ItemName   string
	Quantity   int32
	UnitPrice  pgtype.Numeric
}

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	var l OrderLine
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, menu_item_id, item_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, order_id, menu_item_id, item_name, quantity, unit_price`,
		arg.OrderID, arg.MenuItemID, arg.ItemName, arg.Quantity, arg.UnitPrice).
		Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.ItemName, &l.Quantity, &l.UnitPrice)
	return l, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListActiveOrders returns all orders that have not yet been closed,
// newest first.
func (q *Queries) ListActiveOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status <> 'closed'
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (q *Queries) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, menu_item_id, item_name, quantity, unit_price
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.ItemName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID             uuid.UUID
	Status         string
	ExpectedStatus string
}

// UpdateOrderStatus applies a status transition only if the order is still
// in the expected state. Returns pgx.ErrNoRows when the order does not
// exist or a concurrent transition got there first.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.ExpectedStatus)
	return scanOrder(row)
}

func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}

func (q *Queries) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&n)
	return n, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.GuestName, &o.TableNumber,
			&o.WaiterID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.GuestName, &o.TableNumber,
		&o.WaiterID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
