package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	pkgkafka "github.com/Zchasse63/vercelpickle-sub006/pkg/kafka"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/domain"
)

// Cart domain topics.
var (
	TopicCartUpdated = pkgkafka.Topic("cart", "updated")
	TopicCartCleared = pkgkafka.Topic("cart", "cleared")
)

const (
	AggregateTypeCart = "cart"
	SourceCartService = "cart-service"
)

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	UserID    string          `json:"user_id"`
	Version   int             `json:"version"`
	Items     []CartItemData  `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
}

// CartItemData is one line within a cart.updated event.
type CartItemData struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	SellerID  string          `json:"seller_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	UserID  string `json:"user_id"`
	Removed int    `json:"removed"`
}

// Producer publishes cart domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	pricing   cart.PricingPolicy
	logger    *slog.Logger
}

// NewProducer creates a cart event producer. Totals in events are computed
// under pricing.
func NewProducer(publisher pkgkafka.Publisher, pricing cart.PricingPolicy, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, pricing: pricing, logger: logger}
}

// PublishCartUpdated publishes the cart's current contents.
func (p *Producer) PublishCartUpdated(ctx context.Context, c *domain.Cart) error {
	items := make([]CartItemData, len(c.Items))
	for i, it := range c.Items {
		items[i] = CartItemData{
			ItemID:    it.ID,
			ProductID: it.ProductID,
			SellerID:  it.Product.SellerID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Quantity:  it.Quantity,
		}
	}

	totals := c.Totals(p.pricing)
	data := CartUpdatedData{
		UserID:    c.UserID,
		Version:   c.Version,
		Items:     items,
		ItemCount: totals.ItemCount,
		Subtotal:  totals.Subtotal,
		Total:     totals.Total,
	}

	if err := p.publish(ctx, TopicCartUpdated, c.UserID, data); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", c.UserID),
		slog.Int("item_count", totals.ItemCount),
	)
	return nil
}

// PublishCartCleared publishes that userID's cart was emptied.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string, removed int) error {
	if err := p.publish(ctx, TopicCartCleared, userID, CartClearedData{UserID: userID, Removed: removed}); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published cart.cleared event", slog.String("user_id", userID))
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	event, err := pkgkafka.NewEvent(ctx, topic, userID, AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
