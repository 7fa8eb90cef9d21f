// Package pricing computes order totals. All arithmetic runs at full
// decimal precision; values are rounded to 2 places only at the
// boundary, when a Totals is produced.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/warungpos/api/internal/enum"
)

// Line is one order item as seen by the calculator.
type Line struct {
	Status string
	// Total is the stored line total: unit price snapshot x quantity
	// plus detail deltas, minus any per-item discount.
	Total decimal.Decimal
}

// Discount is an order-level discount policy.
type Discount struct {
	Type  string // enum.DiscountTypePercentage or enum.DiscountTypeFixed
	Value decimal.Decimal
}

// Totals is the recomputed monetary state of an order.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Calculate derives order totals from line items and an optional
// discount. Cancelled lines are excluded. The discount is capped at the
// subtotal so the total never goes negative. With inclusive tax the tax
// is extracted from the discounted amount (amount x rate/(1+rate)) and
// the total stays at subtotal - discount.
func Calculate(lines []Line, disc *Discount, taxRate decimal.Decimal, taxInclusive bool) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Status == enum.OrderItemStatusCancelled {
			continue
		}
		subtotal = subtotal.Add(l.Total)
	}

	discount := decimal.Zero
	if disc != nil {
		switch disc.Type {
		case enum.DiscountTypePercentage:
			discount = subtotal.Mul(disc.Value).Div(decimal.NewFromInt(100))
		case enum.DiscountTypeFixed:
			discount = disc.Value
		}
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
		if discount.IsNegative() {
			discount = decimal.Zero
		}
	}

	net := subtotal.Sub(discount)

	tax := decimal.Zero
	total := net
	if taxRate.IsPositive() {
		if taxInclusive {
			tax = net.Mul(taxRate).Div(decimal.NewFromInt(1).Add(taxRate))
		} else {
			tax = net.Mul(taxRate)
			total = net.Add(tax)
		}
	}

	return Totals{
		Subtotal:       subtotal.Round(2),
		DiscountAmount: discount.Round(2),
		TaxAmount:      tax.Round(2),
		TotalAmount:    total.Round(2),
	}
}
