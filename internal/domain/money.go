package domain

import "github.com/shopspring/decimal"

// DefaultListingPrice is charged for listings without a purchase price.
var DefaultListingPrice = decimal.NewFromInt(99)

// DefaultDiscountPct applies when a discount code carries no percentage.
var DefaultDiscountPct = decimal.RequireFromString("0.10")

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PriceOrDefault returns p, or DefaultListingPrice when p is not positive.
func PriceOrDefault(p decimal.Decimal) decimal.Decimal {
	if !p.IsPositive() {
		return DefaultListingPrice
	}
	return p
}

// Totals is the money breakdown of an order.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// ComputeTotals sums the snapshot and applies pct. Neither the discount nor
// the total can go below zero.
func ComputeTotals(items []OrderItem, pct decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Price)
	}
	subtotal = RoundCents(subtotal)

	if pct.IsNegative() {
		pct = decimal.Zero
	}

	discount := decimal.Max(decimal.Zero, RoundCents(subtotal.Mul(pct)))
	total := decimal.Max(decimal.Zero, RoundCents(subtotal.Sub(discount)))

	return Totals{
		Subtotal:       subtotal,
		DiscountPct:    pct,
		DiscountAmount: discount,
		Total:          total,
	}
}
