package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/maharaja-pos/api/internal/store"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *store.Queries (pool- or tx-bound).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (store.MenuItem, error)
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	CreateOrderLine(ctx context.Context, arg store.CreateOrderLineParams) (store.OrderLine, error)
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	ListOrders(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error)
	ListActiveOrders(ctx context.Context) ([]store.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]store.OrderLine, error)
	UpdateOrderStatus(ctx context.Context, arg store.UpdateOrderStatusParams) (store.Order, error)
	CountOrders(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db store.DBTX) OrderStore

// OrderService owns the order lifecycle: creation, status transitions,
// bill generation, and table stats.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService. store must be pool-backed;
// newStore binds the same queries to a transaction during creation.
func NewOrderService(pool TxBeginner, st OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: st, newStore: newStore}
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	WaiterID    uuid.UUID
	GuestName   string
	TableNumber string
	Lines       []CreateOrderLineRequest
}

// CreateOrderLineRequest is a single menu item entry in the order.
type CreateOrderLineRequest struct {
	MenuItemID string
	Quantity   int32
}

// OrderDetail is an order with its resolved lines.
type OrderDetail struct {
	Order store.Order
	Lines []store.OrderLine
}

// Total is the exact sum of quantity x captured unit price over the lines.
// It is always recomputed; no stored total exists that could drift.
func (d *OrderDetail) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(numericToDecimal(l.UnitPrice).Mul(decimal.NewFromInt32(l.Quantity)))
	}
	return total
}

// CreateOrder validates input, snapshots menu prices, and creates the order
// with all its lines in one transaction. Retries up to maxOrderNumberRetries
// times on order_number unique constraint violations (race where concurrent
// transactions get the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	if req.GuestName == "" {
		return nil, &ValidationError{Field: "guest_name", Reason: "must not be empty"}
	}
	if req.TableNumber == "" {
		return nil, &ValidationError{Field: "table_number", Reason: "must not be empty"}
	}
	if len(req.Lines) == 0 {
		return nil, &ValidationError{Field: "lines", Reason: "at least one item is required"}
	}
	for i, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("lines[%d].quantity", i),
				Reason: "must be >= 1",
			}
		}
		if _, err := uuid.Parse(line.MenuItemID); err != nil {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("lines[%d].menu_item_id", i),
				Reason: "invalid menu item id",
			}
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		detail, err := s.createOrderTx(ctx, req)
		if err == nil {
			return detail, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	st := s.newStore(tx)

	nextNum, err := st.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	waiterID := pgtype.UUID{Bytes: req.WaiterID, Valid: req.WaiterID != uuid.Nil}

	order, err := st.CreateOrder(ctx, store.CreateOrderParams{
		OrderSeq:    nextNum,
		OrderNumber: fmt.Sprintf("ORD-%03d", nextNum),
		GuestName:   req.GuestName,
		TableNumber: req.TableNumber,
		WaiterID:    waiterID,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	lines := make([]store.OrderLine, 0, len(req.Lines))
	for i, line := range req.Lines {
		itemID, _ := uuid.Parse(line.MenuItemID)

		item, err := st.GetMenuItemForOrder(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("lines[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("lines[%d]: get menu item: %w", i, err)
		}
		if !item.IsAvailable {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("lines[%d].menu_item_id", i),
				Reason: fmt.Sprintf("%s is not available", item.Name),
			}
		}

		// Snapshot name and price; later menu edits must not touch this order.
		created, err := st.CreateOrderLine(ctx, store.CreateOrderLineParams{
			OrderID:    order.ID,
			MenuItemID: item.ID,
			ItemName:   item.Name,
			Quantity:   line.Quantity,
			UnitPrice:  item.Price,
		})
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: create order line: %w", i, err)
		}
		lines = append(lines, created)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderDetail{Order: order, Lines: lines}, nil
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// GetOrder loads an order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return s.withLines(ctx, order)
}

// ListOrdersFilter narrows and pages ListOrders results.
type ListOrdersFilter struct {
	Status string
	Limit  int32
	Offset int32
}

// ListOrders returns orders newest first, optionally filtered by status.
// A non-positive limit falls back to a page of 20 so a zero-value
// filter does not silently return nothing.
func (s *OrderService) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]*OrderDetail, error) {
	status := pgtype.Text{}
	if filter.Status != "" {
		st, ok := ParseStatus(filter.Status)
		if !ok {
			return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", filter.Status)}
		}
		status = pgtype.Text{String: string(st), Valid: true}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	orders, err := s.store.ListOrders(ctx, store.ListOrdersParams{
		Status: status,
		Limit:  limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	details := make([]*OrderDetail, 0, len(orders))
	for _, o := range orders {
		d, err := s.withLines(ctx, o)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// Advance moves an order one step along the status sequence. Advancing a
// closed order is a no-op: the order is returned unchanged.
func (s *OrderService) Advance(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	current := Status(order.Status)
	next, ok := current.Next()
	if !ok {
		// Terminal; idempotent.
		return s.withLines(ctx, order)
	}

	return s.applyTransition(ctx, order, current, next)
}

// SetStatus moves an order directly to the requested status. Unknown names
// are rejected. Forward jumps across non-adjacent states are allowed for
// trusted callers, regressions and transitions out of closed are not.
// Setting the current status again is a no-op.
func (s *OrderService) SetStatus(ctx context.Context, id uuid.UUID, target string) (*OrderDetail, error) {
	tgt, known := ParseStatus(target)
	if !known {
		return nil, &TransitionError{Target: target}
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	current := Status(order.Status)
	if tgt == current {
		return s.withLines(ctx, order)
	}
	if current.Terminal() || statusRank[tgt] < statusRank[current] {
		return nil, &TransitionError{From: current, Target: target}
	}

	return s.applyTransition(ctx, order, current, tgt)
}

// applyTransition performs the compare-and-set status update. If a
// concurrent transition already moved the order, no partial state is
// applied and ErrStatusConflict is returned.
func (s *OrderService) applyTransition(ctx context.Context, order store.Order, from, to Status) (*OrderDetail, error) {
	updated, err := s.store.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{
		ID:             order.ID,
		Status:         string(to),
		ExpectedStatus: string(from),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return s.withLines(ctx, updated)
}

func (s *OrderService) withLines(ctx context.Context, order store.Order) (*OrderDetail, error) {
	lines, err := s.store.ListOrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	return &OrderDetail{Order: order, Lines: lines}, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
