package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	apperrors "github.com/Zchasse63/vercelpickle-sub006/pkg/errors"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/pagination"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/slug"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/domain"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/event"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/repository"
)

// Cart limits.
const (
	// MaxQuantityPerItem is the largest quantity a single line may hold.
	MaxQuantityPerItem = cart.MaxQuantityPerItem
	// MaxItemsPerCart is the largest number of distinct lines in a cart.
	MaxItemsPerCart = 50
	// maxSaveAttempts bounds the optimistic-locking retry loop.
	maxSaveAttempts = 3
)

// AddItemInput is the body of an add-to-cart request. A quantity of zero or
// less is treated as one.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,notblank,max=128"`
	Quantity  int    `json:"quantity" validate:"lte=100"`
}

// UpdateQuantityInput is the body of a quantity update. Zero or less removes
// the line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity" validate:"lte=100"`
}

// CartService implements cart and catalog operations for the HTTP API.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	events   *event.Producer
	pricing  cart.PricingPolicy
	logger   *slog.Logger
	cartTTL  time.Duration
	now      func() time.Time
}

// NewCartService creates a cart service.
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	events *event.Producer,
	pricing cart.PricingPolicy,
	logger *slog.Logger,
	cartTTL time.Duration,
) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		events:   events,
		pricing:  pricing,
		logger:   logger,
		cartTTL:  cartTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetItems returns the lines of userID's cart; a missing cart has none.
func (s *CartService) GetItems(ctx context.Context, userID string) ([]cart.Item, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.CloneItems(c.Items), nil
}

// GetTotals returns the totals of userID's cart under the service's pricing
// policy.
func (s *CartService) GetTotals(ctx context.Context, userID string) (cart.Totals, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return cart.Totals{}, err
	}
	return c.Totals(s.pricing), nil
}

// AddItem adds quantity of a product, merging into the existing line for the
// same product. It returns the ID of the line the quantity landed on.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (string, error) {
	if userID == "" {
		return "", apperrors.InvalidInput("user id is required")
	}
	if input.ProductID == "" {
		return "", apperrors.InvalidInput("product id is required")
	}
	quantity := cart.NormalizeQuantity(input.Quantity)
	if quantity > MaxQuantityPerItem {
		return "", apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.NotFound("product", input.ProductID)
		}
		return "", fmt.Errorf("look up product: %w", err)
	}

	var itemID string
	c, err := s.mutate(ctx, userID, true, func(c *domain.Cart) error {
		if i := cart.IndexOfProduct(c.Items, product.ID); i >= 0 {
			merged := c.Items[i].Quantity + quantity
			if merged > MaxQuantityPerItem {
				return apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
			}
			c.Items[i].Quantity = merged
			itemID = c.Items[i].ID
			return nil
		}

		if len(c.Items) >= MaxItemsPerCart {
			return apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		itemID = uuid.NewString()
		c.Items = append(c.Items, cart.Item{
			ID:        itemID,
			ProductID: product.ID,
			Quantity:  quantity,
			Product:   product.Snapshot(),
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	s.publishUpdated(ctx, c)
	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", product.ID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)
	return itemID, nil
}

// UpdateItemQuantity sets a line's quantity. Zero or less removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}
	if quantity > MaxQuantityPerItem {
		return apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	c, err := s.mutate(ctx, userID, false, func(c *domain.Cart) error {
		i := cart.IndexOfItem(c.Items, itemID)
		if i < 0 {
			return apperrors.NotFound("cart item", itemID)
		}
		if quantity <= 0 {
			c.Items = slices.Delete(c.Items, i, i+1)
			return nil
		}
		c.Items[i].Quantity = quantity
		return nil
	})
	if err != nil {
		return err
	}

	s.publishUpdated(ctx, c)
	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	c, err := s.mutate(ctx, userID, false, func(c *domain.Cart) error {
		i := cart.IndexOfItem(c.Items, itemID)
		if i < 0 {
			return apperrors.NotFound("cart item", itemID)
		}
		c.Items = slices.Delete(c.Items, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}

	s.publishUpdated(ctx, c)
	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)
	return nil
}

// ClearCart deletes userID's cart and returns how many lines it held.
func (s *CartService) ClearCart(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apperrors.InvalidInput("user id is required")
	}

	c, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	removed := len(c.Items)

	if err := s.carts.Delete(ctx, userID); err != nil {
		return 0, fmt.Errorf("delete cart: %w", err)
	}

	if err := s.events.PublishCartCleared(ctx, userID, removed); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
		slog.Int("removed", removed),
	)
	return removed, nil
}

// GetProduct looks a product up by ID, then by slug.
func (s *CartService) GetProduct(ctx context.Context, idOrSlug string) (cart.Product, error) {
	p, err := s.products.GetByID(ctx, idOrSlug)
	if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
		return p, err
	}

	handle := slug.Generate(idOrSlug)
	if handle == "" {
		return cart.Product{}, err
	}
	return s.products.GetBySlug(ctx, handle)
}

// ListProducts returns one page of the catalog.
func (s *CartService) ListProducts(ctx context.Context, params pagination.Params) (pagination.Result[cart.Product], error) {
	products, total, err := s.products.List(ctx, params)
	if err != nil {
		return pagination.Result[cart.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, params), nil
}

// load returns userID's cart, or a new empty one when none is stored.
func (s *CartService) load(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	return c, nil
}

// mutate applies fn to a freshly loaded cart and saves it with a version
// check, reloading and reapplying on conflict. When create is false a
// missing cart is NOT_FOUND.
func (s *CartService) mutate(ctx context.Context, userID string, create bool, fn func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		c, err := s.carts.Get(ctx, userID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrNotFound) && create:
			c = s.newEmptyCart(userID)
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, apperrors.NotFound("cart", userID)
		default:
			return nil, fmt.Errorf("get cart: %w", err)
		}

		expected := c.Version
		if err := fn(c); err != nil {
			return nil, err
		}
		c.Touch(s.now(), s.cartTTL)

		ok, err := s.carts.SaveIfVersion(ctx, c, expected)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if ok {
			return c, nil
		}

		s.logger.WarnContext(ctx, "cart version conflict, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
			slog.Int("expected_version", expected),
		)
	}
	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) publishUpdated(ctx context.Context, c *domain.Cart) {
	if err := s.events.PublishCartUpdated(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", c.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CartService) newEmptyCart(userID string) *domain.Cart {
	now := s.now()
	return &domain.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []cart.Item{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cartTTL),
	}
}
