package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maharaja-pos/api/internal/mailer"
	"github.com/maharaja-pos/api/internal/service"
)

// Biller defines the service methods needed by bill handlers.
// Satisfied by *service.OrderService.
type Biller interface {
	GenerateBill(ctx context.Context, id uuid.UUID) (*service.Bill, error)
}

// BillHandler handles bill rendering and email dispatch.
type BillHandler struct {
	svc    Biller
	mailer mailer.Mailer
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(svc Biller, m mailer.Mailer) *BillHandler {
	return &BillHandler{svc: svc, mailer: m}
}

// --- Request / Response types ---

type billResponse struct {
	Order    orderResponse `json:"order"`
	BillText string        `json:"bill_text"`
}

type emailBillRequest struct {
	Email string `json:"email"`
}

// --- Handlers ---

// Get handles GET /orders/{id}/bill.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	bill, err := h.svc.GenerateBill(r.Context(), orderID)
	if err != nil {
		writeBillError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, billResponse{
		Order:    toOrderResponse(bill.Order),
		BillText: bill.Text,
	})
}

// Email handles POST /orders/{id}/bill: renders the bill and mails it to the
// guest's address.
func (h *BillHandler) Email(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req emailBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	}

	bill, err := h.svc.GenerateBill(r.Context(), orderID)
	if err != nil {
		writeBillError(w, err)
		return
	}

	subject := fmt.Sprintf("Your bill for order %s", bill.Order.Order.OrderNumber)
	if err := h.mailer.Send(req.Email, subject, bill.Text); err != nil {
		log.Printf("ERROR: send bill email: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to send bill email"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "bill sent to " + req.Email})
}

func writeBillError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrOrderNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	log.Printf("ERROR: generate bill: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
