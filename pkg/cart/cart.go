// Package cart holds the model shared by the cart store, the facade, the
// remote client and the cart service: line items, product snapshots, totals
// and the backend/catalog contracts.
package cart

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the denormalized copy of catalog fields captured when an
// item is added. It is not refreshed when the catalog changes.
type ProductSnapshot struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Images     []string        `json:"images,omitempty"`
	SellerID   string          `json:"seller_id"`
	SellerName string          `json:"seller_name"`
	Inventory  int             `json:"inventory"`
	Unit       string          `json:"unit"`
}

// Item is a single cart line. Quantity is always positive.
type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// LineTotal returns quantity * price.
func (i Item) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Product is a catalog entry as published by the product catalog.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Images     []string        `json:"images"`
	SellerID   string          `json:"seller_id"`
	SellerName string          `json:"seller_name"`
	Inventory  int             `json:"inventory"`
	Unit       string          `json:"unit"`
}

// Snapshot copies the fields a cart line keeps from the product.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		Name:       p.Name,
		Price:      p.Price,
		Images:     slices.Clone(p.Images),
		SellerID:   p.SellerID,
		SellerName: p.SellerName,
		Inventory:  p.Inventory,
		Unit:       p.Unit,
	}
}

// Identity is the signed-in user as supplied by the auth provider. Only ID is
// used by the cart.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

// Backend is the persistent cart store. Every call is scoped to a user so
// the implementation can authorize it. AddCartItem merges by product the
// same way the local store does.
type Backend interface {
	GetCartItems(ctx context.Context, userID string) ([]Item, error)
	AddCartItem(ctx context.Context, userID, productID string, quantity int) (string, error)
	UpdateCartItemQuantity(ctx context.Context, userID, itemID string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, itemID string) error
	ClearCart(ctx context.Context, userID string) (int, error)
}

// Catalog exposes the current product list. Implementations refresh it on
// their own schedule; Products must not block on I/O.
type Catalog interface {
	Products() []Product
}

// StaticCatalog is a fixed, in-memory catalog.
type StaticCatalog []Product

// Products implements Catalog.
func (c StaticCatalog) Products() []Product {
	return c
}

// FindProduct looks a product up by ID in the catalog's current list.
func FindProduct(c Catalog, productID string) (Product, bool) {
	for _, p := range c.Products() {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// IndexOfProduct returns the index of the line holding productID, or -1.
func IndexOfProduct(items []Item, productID string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ProductID == productID })
}

// IndexOfItem returns the index of the line with the given item ID, or -1.
func IndexOfItem(items []Item, itemID string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == itemID })
}

// CloneItems returns a deep copy of items so callers cannot alias store state.
func CloneItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.Product.Images = slices.Clone(it.Product.Images)
		out[i] = it
	}
	return out
}

// MaxQuantityPerItem is the largest quantity one line may hold. The cart
// service rejects writes beyond it, so the local store clamps to it.
const MaxQuantityPerItem = 100

// NormalizeQuantity clamps a requested quantity to a positive integer. The
// +/- stepper in the UI relies on this never failing.
func NormalizeQuantity(quantity int) int {
	if quantity <= 0 {
		return 1
	}
	return quantity
}
