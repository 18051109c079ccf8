package remote

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
)

// ProductSource lists the full product catalog. *Client implements it.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]cart.Product, error)
}

// CatalogCache keeps a local copy of the product catalog and refreshes it in
// the background. It implements cart.Catalog; Products never blocks on I/O.
type CatalogCache struct {
	source   ProductSource
	interval time.Duration
	logger   *slog.Logger
	group    singleflight.Group

	mu       sync.RWMutex
	products []cart.Product
	updated  time.Time

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ cart.Catalog = (*CatalogCache)(nil)

// NewCatalogCache creates a cache refreshed every interval once started. An
// interval of zero or less disables background refresh.
func NewCatalogCache(source ProductSource, interval time.Duration, logger *slog.Logger) *CatalogCache {
	return &CatalogCache{
		source:   source,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start loads the catalog once and then launches the refresh loop. The
// initial load error is returned but the loop is started regardless, so a
// catalog that is down at startup fills in later.
func (c *CatalogCache) Start(ctx context.Context) error {
	err := c.Refresh(ctx)

	c.startOnce.Do(func() {
		if c.interval <= 0 {
			close(c.done)
			return
		}
		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c.cancel = cancel
		go c.loop(loopCtx)
	})
	return err
}

func (c *CatalogCache) loop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Refresh reloads the catalog now. Concurrent calls share one fetch. On
// failure the previous list is kept.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	v, err, shared := c.group.Do("catalog", func() (any, error) {
		return c.source.ListProducts(ctx)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "catalog refresh failed, keeping previous list",
			slog.String("error", err.Error()),
			slog.Int("cached", c.Len()),
		)
		return err
	}

	products := v.([]cart.Product)
	c.mu.Lock()
	c.products = products
	c.updated = time.Now()
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "catalog refreshed",
		slog.Int("products", len(products)),
		slog.Bool("shared", shared),
	)
	return nil
}

// Products returns a copy of the cached catalog.
func (c *CatalogCache) Products() []cart.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]cart.Product, len(c.products))
	for i, p := range c.products {
		p.Images = slices.Clone(p.Images)
		out[i] = p
	}
	return out
}

// Len returns the number of cached products.
func (c *CatalogCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.products)
}

// LastUpdated returns when the catalog was last loaded successfully.
func (c *CatalogCache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.updated
}

// Close stops the refresh loop and waits for it to exit. It is safe to call
// more than once, and before Start.
func (c *CatalogCache) Close() {
	c.closeOnce.Do(func() {
		c.startOnce.Do(func() { close(c.done) })
		if c.cancel != nil {
			c.cancel()
		}
		<-c.done
	})
}
