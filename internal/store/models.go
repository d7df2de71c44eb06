package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Username       string
	Email          pgtype.Text
	HashedPassword string
	Role           string
	CreatedAt      time.Time
}

type MenuCategory struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
}

type MenuItem struct {
	ID           uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	IsVegetarian bool
	IsVegan      bool
	SpiceLevel   pgtype.Text
	IsAvailable  bool
}

type Order struct {
	ID          uuid.UUID
	OrderNumber string
	GuestName   string
	TableNumber string
	WaiterID    pgtype.UUID
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLine snapshots the menu item's name and price at order-creation
// time. Later menu edits never change an existing order.
type OrderLine struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	ItemName   string
	Quantity   int32
	UnitPrice  pgtype.Numeric
}
