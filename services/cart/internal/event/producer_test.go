package event

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	pkgkafka "github.com/Zchasse63/vercelpickle-sub006/pkg/kafka"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/logger"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/domain"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	events []published
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, published{topic: topic, event: event})
	return nil
}

func newProducer(pub pkgkafka.Publisher) *Producer {
	policy := cart.PricingPolicy{FlatShipping: decimal.RequireFromString("4.99")}
	return NewProducer(pub, policy, slog.New(slog.DiscardHandler))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "pickle.cart.updated", TopicCartUpdated)
	assert.Equal(t, "pickle.cart.cleared", TopicCartCleared)
}

func TestPublishCartUpdated(t *testing.T) {
	pub := &recordingPublisher{}
	p := newProducer(pub)

	c := &domain.Cart{
		UserID:  "user-1",
		Version: 3,
		Items: []cart.Item{{
			ID:        "item-1",
			ProductID: "prod-1",
			Quantity:  2,
			Product:   cart.ProductSnapshot{Name: "Classic Dill Spears", Price: decimal.RequireFromString("10.00"), SellerID: "seller-brine"},
		}},
	}
	ctx := logger.WithCorrelationID(context.Background(), "corr-7")

	require.NoError(t, p.PublishCartUpdated(ctx, c))

	require.Len(t, pub.events, 1)
	got := pub.events[0]
	assert.Equal(t, TopicCartUpdated, got.topic)
	assert.Equal(t, "user-1", got.event.AggregateID)
	assert.Equal(t, AggregateTypeCart, got.event.AggregateType)
	assert.Equal(t, SourceCartService, got.event.Source)
	assert.Equal(t, "corr-7", got.event.CorrelationID)

	var data CartUpdatedData
	require.NoError(t, got.event.UnmarshalData(&data))
	assert.Equal(t, 3, data.Version)
	assert.Equal(t, 2, data.ItemCount)
	assert.True(t, decimal.RequireFromString("20.00").Equal(data.Subtotal))
	assert.True(t, decimal.RequireFromString("24.99").Equal(data.Total))
	require.Len(t, data.Items, 1)
	assert.Equal(t, "item-1", data.Items[0].ItemID)
	assert.Equal(t, "seller-brine", data.Items[0].SellerID)
}

func TestPublishCartCleared(t *testing.T) {
	pub := &recordingPublisher{}
	p := newProducer(pub)

	require.NoError(t, p.PublishCartCleared(context.Background(), "user-1", 4))

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicCartCleared, pub.events[0].topic)

	var data CartClearedData
	require.NoError(t, pub.events[0].event.UnmarshalData(&data))
	assert.Equal(t, CartClearedData{UserID: "user-1", Removed: 4}, data)
}

func TestPublish_Error(t *testing.T) {
	p := newProducer(&recordingPublisher{err: errors.New("broker down")})

	err := p.PublishCartCleared(context.Background(), "user-1", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish pickle.cart.cleared event")
	assert.Contains(t, err.Error(), "broker down")
}
