package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maharaja-pos/api/internal/enum"
	"github.com/maharaja-pos/api/internal/handler"
	"github.com/maharaja-pos/api/internal/service"
)

// --- Mocks ---

type mockBiller struct {
	generateBillFn func(ctx context.Context, id uuid.UUID) (*service.Bill, error)
}

func (m *mockBiller) GenerateBill(ctx context.Context, id uuid.UUID) (*service.Bill, error) {
	return m.generateBillFn(ctx, id)
}

// mockMailer records sent mail instead of talking SMTP.
type mockMailer struct {
	to      string
	subject string
	body    string
	err     error
}

func (m *mockMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.subject = subject
	m.body = body
	return nil
}

func newBillRouter(svc handler.Biller, m *mockMailer) http.Handler {
	h := handler.NewBillHandler(svc, m)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middlewareAuth())
		r.Get("/orders/{id}/bill", h.Get)
		r.Post("/orders/{id}/bill", h.Email)
	})
	return r
}

func makeBill(t *testing.T) *service.Bill {
	t.Helper()
	detail := makeDetail(t, "served")
	text := strings.Join([]string{
		"Order #ORD-001",
		"Guest: Asha",
		"Table: 4",
		"Items:",
		" - 2 x Paneer Tikka @ 250.00 = 500.00",
		" - 3 x Naan @ 40.00 = 120.00",
		"Total: 620.00",
	}, "\n")
	return &service.Bill{Order: detail, Text: text}
}

// --- Get tests ---

func TestGetBillEndpoint(t *testing.T) {
	bill := makeBill(t)
	svc := &mockBiller{
		generateBillFn: func(_ context.Context, _ uuid.UUID) (*service.Bill, error) {
			return bill, nil
		},
	}
	router := newBillRouter(svc, &mockMailer{})

	token := tokenFor(t, uuid.New(), "dev", enum.RoleReception)
	rr := authedJSON(t, router, "GET", "/orders/"+bill.Order.Order.ID.String()+"/bill", token, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["bill_text"] != bill.Text {
		t.Errorf("bill_text:\ngot:  %v\nwant: %v", resp["bill_text"], bill.Text)
	}
	order, ok := resp["order"].(map[string]interface{})
	if !ok {
		t.Fatal("expected order object in response")
	}
	if order["total"] != "620.00" {
		t.Errorf("order total: got %v, want 620.00", order["total"])
	}
}

func TestGetBillEndpoint_NotFound(t *testing.T) {
	svc := &mockBiller{
		generateBillFn: func(_ context.Context, _ uuid.UUID) (*service.Bill, error) {
			return nil, service.ErrOrderNotFound
		},
	}
	router := newBillRouter(svc, &mockMailer{})

	token := tokenFor(t, uuid.New(), "dev", enum.RoleReception)
	rr := authedJSON(t, router, "GET", "/orders/"+uuid.New().String()+"/bill", token, nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Email tests ---

func TestEmailBillEndpoint(t *testing.T) {
	bill := makeBill(t)
	svc := &mockBiller{
		generateBillFn: func(_ context.Context, _ uuid.UUID) (*service.Bill, error) {
			return bill, nil
		},
	}
	mail := &mockMailer{}
	router := newBillRouter(svc, mail)

	token := tokenFor(t, uuid.New(), "dev", enum.RoleReception)
	rr := authedJSON(t, router, "POST", "/orders/"+bill.Order.Order.ID.String()+"/bill", token,
		map[string]string{"email": "asha@example.com"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if mail.to != "asha@example.com" {
		t.Errorf("mail to: got %q, want asha@example.com", mail.to)
	}
	if mail.subject != "Your bill for order ORD-001" {
		t.Errorf("mail subject: got %q", mail.subject)
	}
	if mail.body != bill.Text {
		t.Errorf("mail body does not match bill text")
	}
}

func TestEmailBillEndpoint_InvalidEmail(t *testing.T) {
	svc := &mockBiller{}
	mail := &mockMailer{}
	router := newBillRouter(svc, mail)

	token := tokenFor(t, uuid.New(), "dev", enum.RoleReception)
	rr := authedJSON(t, router, "POST", "/orders/"+uuid.New().String()+"/bill", token,
		map[string]string{"email": "not-an-email"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if mail.to != "" {
		t.Error("no mail should be sent for an invalid address")
	}
}

func TestEmailBillEndpoint_SendFailure(t *testing.T) {
	bill := makeBill(t)
	svc := &mockBiller{
		generateBillFn: func(_ context.Context, _ uuid.UUID) (*service.Bill, error) {
			return bill, nil
		},
	}
	mail := &mockMailer{err: errors.New("smtp connection refused")}
	router := newBillRouter(svc, mail)

	token := tokenFor(t, uuid.New(), "dev", enum.RoleReception)
	rr := authedJSON(t, router, "POST", "/orders/"+bill.Order.Order.ID.String()+"/bill", token,
		map[string]string{"email": "asha@example.com"})

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}
}
