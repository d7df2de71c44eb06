package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/maharaja-pos/api/internal/service"
)

// StatsProvider defines the service methods needed by the table stats handler.
// Satisfied by *service.OrderService.
type StatsProvider interface {
	TableOccupancyStats(ctx context.Context) (*service.TableStats, error)
}

// TableHandler handles the reception dashboard's table stats endpoint.
type TableHandler struct {
	svc StatsProvider
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc StatsProvider) *TableHandler {
	return &TableHandler{svc: svc}
}

// --- Response types ---

type tableStatsResponse struct {
	OccupiedTableCount int                     `json:"occupied_table_count"`
	ActiveOrderCount   int                     `json:"active_order_count"`
	ClosedOrderCount   int64                   `json:"closed_order_count"`
	TotalOrderCount    int64                   `json:"total_order_count"`
	StatusBreakdown    map[string]int64        `json:"status_breakdown"`
	Tables             map[string][]tableOrder `json:"tables"`
}

// tableOrder is the abbreviated order shape shown per occupied table.
type tableOrder struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	GuestName   string `json:"guest_name"`
	Status      string `json:"status"`
}

// --- Handlers ---

// Stats handles GET /tables/stats.
func (h *TableHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.TableOccupancyStats(r.Context())
	if err != nil {
		log.Printf("ERROR: table stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	breakdown := make(map[string]int64, len(stats.StatusBreakdown))
	for st, n := range stats.StatusBreakdown {
		breakdown[string(st)] = n
	}

	tables := make(map[string][]tableOrder, len(stats.OrdersByTable))
	for table, orders := range stats.OrdersByTable {
		summaries := make([]tableOrder, len(orders))
		for i, o := range orders {
			summaries[i] = tableOrder{
				ID:          o.ID.String(),
				OrderNumber: o.OrderNumber,
				GuestName:   o.GuestName,
				Status:      o.Status,
			}
		}
		tables[table] = summaries
	}

	writeJSON(w, http.StatusOK, tableStatsResponse{
		OccupiedTableCount: stats.OccupiedTableCount,
		ActiveOrderCount:   stats.ActiveOrderCount,
		ClosedOrderCount:   stats.ClosedOrderCount,
		TotalOrderCount:    stats.TotalOrderCount,
		StatusBreakdown:    breakdown,
		Tables:             tables,
	})
}
