package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Totals is the derived projection of a cart's items. It is never mutated on
// its own; recompute it from the items instead.
type Totals struct {
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// PricingPolicy decides shipping and tax from the subtotal.
//
// Shipping is FlatShipping unless the cart is empty or the subtotal reaches
// a positive FreeShippingThreshold. Tax is Subtotal*TaxRate rounded to cents.
// The zero policy charges neither. The env tags let services and tools load
// it straight from the environment.
type PricingPolicy struct {
	FlatShipping          decimal.Decimal `env:"CART_FLAT_SHIPPING" envDefault:"0"`
	FreeShippingThreshold decimal.Decimal `env:"CART_FREE_SHIPPING_THRESHOLD" envDefault:"0"`
	TaxRate               decimal.Decimal `env:"CART_TAX_RATE" envDefault:"0"`
}

// Validate rejects negative amounts and tax rates of 100% or more.
func (p PricingPolicy) Validate() error {
	switch {
	case p.FlatShipping.IsNegative():
		return fmt.Errorf("flat shipping must not be negative, got %s", p.FlatShipping)
	case p.FreeShippingThreshold.IsNegative():
		return fmt.Errorf("free shipping threshold must not be negative, got %s", p.FreeShippingThreshold)
	case p.TaxRate.IsNegative() || p.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return fmt.Errorf("tax rate must be in [0, 1), got %s", p.TaxRate)
	}
	return nil
}

// ZeroTotals is the projection of an empty cart.
func ZeroTotals() Totals {
	return Totals{
		Subtotal: decimal.Zero,
		Shipping: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
}

// CalculateTotals projects items into Totals. It is pure: the same items and
// policy always give the same result.
func CalculateTotals(items []Item, policy PricingPolicy) Totals {
	t := ZeroTotals()
	for _, it := range items {
		t.ItemCount += it.Quantity
		t.Subtotal = t.Subtotal.Add(it.LineTotal())
	}
	t.Shipping = policy.shipping(t.Subtotal, t.ItemCount)
	t.Tax = t.Subtotal.Mul(policy.TaxRate).Round(2)
	t.Total = t.Subtotal.Add(t.Shipping).Add(t.Tax)
	return t
}

func (p PricingPolicy) shipping(subtotal decimal.Decimal, itemCount int) decimal.Decimal {
	if itemCount == 0 || !p.FlatShipping.IsPositive() {
		return decimal.Zero
	}
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShipping
}
