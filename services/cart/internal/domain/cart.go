// Package domain holds the cart service's persisted aggregate.
package domain

import (
	"time"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
)

// Cart is one user's persisted cart. Version increases by one on every save
// and backs optimistic locking.
type Cart struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Items     []cart.Item `json:"items"`
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// ItemCount returns the sum of line quantities.
func (c *Cart) ItemCount() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Totals projects the cart under policy.
func (c *Cart) Totals(policy cart.PricingPolicy) cart.Totals {
	return cart.CalculateTotals(c.Items, policy)
}

// Touch stamps the cart as modified at now and extends its expiry by ttl.
func (c *Cart) Touch(now time.Time, ttl time.Duration) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(ttl)
}
