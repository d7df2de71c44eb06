package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/maharaja-pos/api/internal/enum"
	"github.com/maharaja-pos/api/internal/store"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *store.Queries; narrow interface for testability.
type MenuStore interface {
	ListCategories(ctx context.Context) ([]store.MenuCategory, error)
	GetCategory(ctx context.Context, id uuid.UUID) (store.MenuCategory, error)
	CreateCategory(ctx context.Context, arg store.CreateCategoryParams) (store.MenuCategory, error)
	ListAvailableMenuItems(ctx context.Context) ([]store.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg store.CreateMenuItemParams) (store.MenuItem, error)
}

// MenuHandler handles menu browsing and administration endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// --- Request / Response types ---

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int32  `json:"sort_order"`
}

type categoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	SortOrder   int32     `json:"sort_order"`
}

type createMenuItemRequest struct {
	CategoryID   string `json:"category_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	IsVegetarian bool   `json:"is_vegetarian"`
	IsVegan      bool   `json:"is_vegan"`
	SpiceLevel   string `json:"spice_level"`
	IsAvailable  *bool  `json:"is_available"`
}

type menuItemResponse struct {
	ID           uuid.UUID `json:"id"`
	CategoryID   uuid.UUID `json:"category_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Price        string    `json:"price"`
	IsVegetarian bool      `json:"is_vegetarian"`
	IsVegan      bool      `json:"is_vegan"`
	SpiceLevel   *string   `json:"spice_level"`
	IsAvailable  bool      `json:"is_available"`
}

// --- Handlers ---

// ListCategories handles GET /menu/categories.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory handles POST /menu/categories.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	category, err := h.store.CreateCategory(r.Context(), store.CreateCategoryParams{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		log.Printf("ERROR: create category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// List handles GET /menu. Only items currently marked available are returned;
// that is what the waiter portal offers to guests.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListAvailableMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be a non-negative decimal"})
		return
	}

	spiceLevel := pgtype.Text{}
	if req.SpiceLevel != "" {
		if !isValidSpiceLevel(req.SpiceLevel) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid spice_level"})
			return
		}
		spiceLevel = pgtype.Text{String: req.SpiceLevel, Valid: true}
	}

	if _, err := h.store.GetCategory(r.Context(), categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category not found"})
			return
		}
		log.Printf("ERROR: get category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var priceNumeric pgtype.Numeric
	if err := priceNumeric.Scan(price.String()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), store.CreateMenuItemParams{
		CategoryID:   categoryID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        priceNumeric,
		IsVegetarian: req.IsVegetarian,
		IsVegan:      req.IsVegan,
		SpiceLevel:   spiceLevel,
		IsAvailable:  available,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// --- Helpers ---

func isValidSpiceLevel(s string) bool {
	switch s {
	case enum.SpiceMild, enum.SpiceMedium, enum.SpiceHot, enum.SpiceVeryHot:
		return true
	}
	return false
}

func toCategoryResponse(c store.MenuCategory) categoryResponse {
	resp := categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		SortOrder: c.SortOrder,
	}
	if c.Description.Valid {
		resp.Description = &c.Description.String
	}
	return resp
}

func toMenuItemResponse(item store.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:           item.ID,
		CategoryID:   item.CategoryID,
		Name:         item.Name,
		Price:        numericToString(item.Price),
		IsVegetarian: item.IsVegetarian,
		IsVegan:      item.IsVegan,
		IsAvailable:  item.IsAvailable,
	}
	if item.Description.Valid {
		resp.Description = &item.Description.String
	}
	if item.SpiceLevel.Valid {
		resp.SpiceLevel = &item.SpiceLevel.String
	}
	return resp
}
