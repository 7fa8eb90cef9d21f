package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warungpos/api/internal/enum"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name         string
		lines        []Line
		disc         *Discount
		taxRate      decimal.Decimal
		taxInclusive bool
		wantSubtotal string
		wantDiscount string
		wantTax      string
		wantTotal    string
	}{
		{
			name: "two items no discount zero tax",
			lines: []Line{
				{Status: enum.OrderItemStatusPending, Total: dec("100.00")},
				{Status: enum.OrderItemStatusPending, Total: dec("30.00")},
			},
			taxRate:      decimal.Zero,
			wantSubtotal: "130.00",
			wantDiscount: "0.00",
			wantTax:      "0.00",
			wantTotal:    "130.00",
		},
		{
			name: "cancelled line excluded",
			lines: []Line{
				{Status: enum.OrderItemStatusCancelled, Total: dec("100.00")},
				{Status: enum.OrderItemStatusPending, Total: dec("30.00")},
			},
			wantSubtotal: "30.00",
			wantDiscount: "0.00",
			wantTax:      "0.00",
			wantTotal:    "30.00",
		},
		{
			name: "percentage discount",
			lines: []Line{
				{Status: enum.OrderItemStatusServed, Total: dec("200.00")},
			},
			disc:         &Discount{Type: enum.DiscountTypePercentage, Value: dec("10")},
			wantSubtotal: "200.00",
			wantDiscount: "20.00",
			wantTax:      "0.00",
			wantTotal:    "180.00",
		},
		{
			name: "fixed discount capped at subtotal",
			lines: []Line{
				{Status: enum.OrderItemStatusPending, Total: dec("50.00")},
			},
			disc:         &Discount{Type: enum.DiscountTypeFixed, Value: dec("80.00")},
			wantSubtotal: "50.00",
			wantDiscount: "50.00",
			wantTax:      "0.00",
			wantTotal:    "0.00",
		},
		{
			name: "negative discount clamped to zero",
			lines: []Line{
				{Status: enum.OrderItemStatusPending, Total: dec("50.00")},
			},
			disc:         &Discount{Type: enum.DiscountTypeFixed, Value: dec("-10.00")},
			wantSubtotal: "50.00",
			wantDiscount: "0.00",
			wantTax:      "0.00",
			wantTotal:    "50.00",
		},
		{
			name: "exclusive tax added on top",
			lines: []Line{
				{Status: enum.OrderItemStatusPending, Total: dec("100.00")},
			},
			taxRate:      dec("0.1"),
			wantSubtotal: "100.00",
			wantDiscount: "0.00",
			wantTax:      "10.00",
			wantTotal:    "110.00",
		},
		{
			name: "inclusive tax extracted not added",
			lines: []Line{
				{Status: enum.OrderItemStatusPending, Total: dec("110.00")},
			},
			taxRate:      dec("0.1"),
			taxInclusive: true,
			wantSubtotal: "110.00",
			wantDiscount: "0.00",
			wantTax:      "10.00",
			wantTotal:    "110.00",
		},
		{
			name: "tax applies after discount",
			lines: []Line{
				{Status: enum.OrderItemStatusPending, Total: dec("100.00")},
			},
			disc:         &Discount{Type: enum.DiscountTypeFixed, Value: dec("20.00")},
			taxRate:      dec("0.1"),
			wantSubtotal: "100.00",
			wantDiscount: "20.00",
			wantTax:      "8.00",
			wantTotal:    "88.00",
		},
		{
			name:         "empty order",
			lines:        nil,
			disc:         &Discount{Type: enum.DiscountTypePercentage, Value: dec("50")},
			wantSubtotal: "0.00",
			wantDiscount: "0.00",
			wantTax:      "0.00",
			wantTotal:    "0.00",
		},
		{
			name: "intermediate precision only rounded at boundary",
			lines: []Line{
				{Status: enum.OrderItemStatusPending, Total: dec("33.335")},
				{Status: enum.OrderItemStatusPending, Total: dec("33.335")},
			},
			wantSubtotal: "66.67",
			wantDiscount: "0.00",
			wantTax:      "0.00",
			wantTotal:    "66.67",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.lines, tt.disc, tt.taxRate, tt.taxInclusive)
			assert.Equal(t, tt.wantSubtotal, got.Subtotal.StringFixed(2), "subtotal")
			assert.Equal(t, tt.wantDiscount, got.DiscountAmount.StringFixed(2), "discount")
			assert.Equal(t, tt.wantTax, got.TaxAmount.StringFixed(2), "tax")
			assert.Equal(t, tt.wantTotal, got.TotalAmount.StringFixed(2), "total")
		})
	}
}

// Total must always equal round2(subtotal - discount + tax) in
// exclusive mode, and discount never exceeds subtotal.
func TestCalculateInvariants(t *testing.T) {
	lines := []Line{
		{Status: enum.OrderItemStatusPending, Total: dec("19.99")},
		{Status: enum.OrderItemStatusCooking, Total: dec("7.25")},
		{Status: enum.OrderItemStatusCancelled, Total: dec("99.00")},
	}
	for _, disc := range []*Discount{
		nil,
		{Type: enum.DiscountTypePercentage, Value: dec("15")},
		{Type: enum.DiscountTypeFixed, Value: dec("5.00")},
		{Type: enum.DiscountTypeFixed, Value: dec("500.00")},
	} {
		got := Calculate(lines, disc, dec("0.11"), false)
		assert.True(t, got.DiscountAmount.LessThanOrEqual(got.Subtotal))
		want := got.Subtotal.Sub(got.DiscountAmount).Add(got.TaxAmount).Round(2)
		assert.True(t, got.TotalAmount.Sub(want).Abs().LessThanOrEqual(dec("0.01")),
			"total %s vs derived %s", got.TotalAmount, want)
	}
}
