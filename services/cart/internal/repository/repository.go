package repository

import (
	"context"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/pagination"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/domain"
)

// CartRepository persists carts keyed by user.
type CartRepository interface {
	// Get returns the user's cart or an apperrors NOT_FOUND error.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveIfVersion stores cart only if the stored version still equals
	// expectedVersion (0 when no cart exists). On success cart.Version is
	// advanced. It reports false when another writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	// Delete removes the user's cart. Deleting a missing cart is not an error.
	Delete(ctx context.Context, userID string) error
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	// GetByID returns a product or an apperrors NOT_FOUND error.
	GetByID(ctx context.Context, id string) (cart.Product, error)

	// GetBySlug returns the product whose slug matches, or NOT_FOUND.
	GetBySlug(ctx context.Context, slug string) (cart.Product, error)

	// List returns one page of products ordered by name and the total count.
	List(ctx context.Context, params pagination.Params) ([]cart.Product, int, error)
}
