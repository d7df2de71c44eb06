package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, category_id, name, description, price,
		is_vegetarian, is_vegan, spice_level, is_available`

func (q *Queries) ListCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, description, sort_order
		FROM menu_categories
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []MenuCategory
	for rows.Next() {
		var c MenuCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (MenuCategory, error) {
	var c MenuCategory
	err := q.db.QueryRow(ctx, `
		SELECT id, name, description, sort_order
		FROM menu_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder)
	return c, err
}

type CreateCategoryParams struct {
	Name        string
	Description string
	SortOrder   int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (MenuCategory, error) {
	var c MenuCategory
	err := q.db.QueryRow(ctx, `
		INSERT INTO menu_categories (name, description, sort_order)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, name, description, sort_order`,
		arg.Name, arg.Description, arg.SortOrder).
		Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder)
	return c, err
}

// ListAvailableMenuItems returns every item currently offered, in menu order.
func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE is_available = true
		ORDER BY category_id, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMenuItems(rows)
}

// GetMenuItemForOrder loads an item for price snapshotting at order creation.
func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items WHERE id = $1`, id)
	var m MenuItem
	err := scanMenuItem(row, &m)
	return m, err
}

type CreateMenuItemParams struct {
	CategoryID   uuid.UUID
	Name         string
	Description  string
	Price        pgtype.Numeric
	IsVegetarian bool
	IsVegan      bool
	SpiceLevel   pgtype.Text
	IsAvailable  bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_items (category_id, name, description, price,
			is_vegetarian, is_vegan, spice_level, is_available)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING `+menuItemColumns,
		arg.CategoryID, arg.Name, arg.Description, arg.Price,
		arg.IsVegetarian, arg.IsVegan, arg.SpiceLevel, arg.IsAvailable)
	var m MenuItem
	err := scanMenuItem(row, &m)
	return m, err
}

func collectMenuItems(rows pgx.Rows) ([]MenuItem, error) {
	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := scanMenuItem(rows, &m); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func scanMenuItem(row interface{ Scan(...any) error }, m *MenuItem) error {
	return row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.Price,
		&m.IsVegetarian, &m.IsVegan, &m.SpiceLevel, &m.IsAvailable)
}
