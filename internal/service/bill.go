package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill is the printable/emailable invoice for an order. Text is the
// canonical content used for print and email dispatch.
type Bill struct {
	Order *OrderDetail
	Text  string
}

// GenerateBill resolves the order and renders its bill text. The rendering
// is deterministic: lines appear in insertion order, amounts are computed
// from the stored decimal values and formatted to two places at the end.
func (s *OrderService) GenerateBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	detail, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Bill{Order: detail, Text: renderBillText(detail)}, nil
}

func renderBillText(d *OrderDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s\n", d.Order.OrderNumber)
	fmt.Fprintf(&b, "Guest: %s\n", d.Order.GuestName)
	fmt.Fprintf(&b, "Table: %s\n", d.Order.TableNumber)
	b.WriteString("Items:\n")
	for _, line := range d.Lines {
		unit := numericToDecimal(line.UnitPrice)
		lineTotal := unit.Mul(decimal.NewFromInt32(line.Quantity))
		fmt.Fprintf(&b, " - %d x %s @ %s = %s\n",
			line.Quantity, line.ItemName, unit.StringFixed(2), lineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s", d.Total().StringFixed(2))
	return b.String()
}
