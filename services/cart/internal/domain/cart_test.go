package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
)

func item(price string, qty int) cart.Item {
	return cart.Item{Quantity: qty, Product: cart.ProductSnapshot{Price: decimal.RequireFromString(price)}}
}

func TestItemCount(t *testing.T) {
	tests := []struct {
		name  string
		items []cart.Item
		want  int
	}{
		{"nil items", nil, 0},
		{"single line", []cart.Item{item("1.00", 3)}, 3},
		{"several lines", []cart.Item{item("1.00", 2), item("4.50", 5), item("0.99", 1)}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cart{Items: tt.items}
			assert.Equal(t, tt.want, c.ItemCount())
		})
	}
}

func TestTotals(t *testing.T) {
	c := &Cart{Items: []cart.Item{item("10.00", 2), item("4.25", 2)}}
	policy := cart.PricingPolicy{
		FlatShipping: decimal.RequireFromString("5.00"),
		TaxRate:      decimal.RequireFromString("0.10"),
	}

	got := c.Totals(policy)

	assert.Equal(t, 4, got.ItemCount)
	assert.True(t, decimal.RequireFromString("28.50").Equal(got.Subtotal))
	assert.True(t, decimal.RequireFromString("5.00").Equal(got.Shipping))
	assert.True(t, decimal.RequireFromString("2.85").Equal(got.Tax))
	assert.True(t, decimal.RequireFromString("36.35").Equal(got.Total))
}

func TestTouch(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	c := &Cart{}

	c.Touch(now, 48*time.Hour)

	assert.Equal(t, now, c.UpdatedAt)
	assert.Equal(t, now.Add(48*time.Hour), c.ExpiresAt)
}
