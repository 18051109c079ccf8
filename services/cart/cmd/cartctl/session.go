package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart/facade"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart/remote"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart/store"
	pkgconfig "github.com/Zchasse63/vercelpickle-sub006/pkg/config"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/slug"
)

var errNoUser = errors.New("no user: set PICKLE_USER_ID or pass --user")

type cliConfig struct {
	APIURL   string        `env:"PICKLE_API_URL" envDefault:"http://localhost:8003"`
	UserID   string        `env:"PICKLE_USER_ID"`
	Token    string        `env:"PICKLE_TOKEN"`
	LogLevel string        `env:"LOG_LEVEL" envDefault:"warn"`
	Timeout  time.Duration `env:"PICKLE_TIMEOUT" envDefault:"15s"`
	Pricing  cart.PricingPolicy
}

func (c *cliConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("PICKLE_TIMEOUT must be positive, got %s", c.Timeout)
	}
	return c.Pricing.Validate()
}

func loadConfig() (cliConfig, error) {
	var cfg cliConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

// backend is everything cartctl needs from the cart service.
type backend interface {
	cart.Backend
	remote.ProductSource
	Close()
}

type dialer func(cfg cliConfig, logger *slog.Logger) backend

func dialRemote(cfg cliConfig, logger *slog.Logger) backend {
	c := remote.NewDefaultClient(cfg.APIURL, logger)
	if cfg.Token != "" {
		c.SetBearerToken(cfg.Token)
	}
	return c
}

// session is one command's view of a user's cart.
type session struct {
	userID  string
	backend backend
	catalog *remote.CatalogCache
	cart    *facade.Facade
	logger  *slog.Logger
}

func newSession(cfg cliConfig, dial dialer, logger *slog.Logger) *session {
	b := dial(cfg, logger)
	catalog := remote.NewCatalogCache(b, 0, logger)
	st := store.New(b, store.WithLogger(logger), store.WithPricing(cfg.Pricing))
	return &session{
		userID:  cfg.UserID,
		backend: b,
		catalog: catalog,
		cart:    facade.New(st, b, catalog, facade.WithLogger(logger)),
		logger:  logger,
	}
}

func (s *session) Close() {
	s.catalog.Close()
	s.backend.Close()
}

// signIn loads the user's persisted cart into the store.
func (s *session) signIn(ctx context.Context) error {
	if s.userID == "" {
		return errNoUser
	}
	s.cart.SetIdentity(ctx, &cart.Identity{ID: s.userID})
	if err := s.cart.View().Err; err != nil {
		return err
	}
	return nil
}

// loadCatalog fetches the product list once.
func (s *session) loadCatalog(ctx context.Context) error {
	if err := s.catalog.Start(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	return nil
}

// resolveProduct finds a product by exact ID, then by exact name, then by
// the one name containing query.
func (s *session) resolveProduct(query string) (cart.Product, error) {
	if p, ok := cart.FindProduct(s.catalog, query); ok {
		return p, nil
	}

	var matches []cart.Product
	for _, p := range s.catalog.Products() {
		if slug.Match(p.Name, query) {
			return p, nil
		}
		if slug.Contains(p.Name, query) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return cart.Product{}, fmt.Errorf("no product matches %q", query)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, p := range matches {
			names[i] = p.Name
		}
		return cart.Product{}, fmt.Errorf("%q is ambiguous: %s", query, strings.Join(names, ", "))
	}
}

// resolveItem accepts a full item ID or a unique prefix of one.
func (s *session) resolveItem(ref string) (cart.Item, error) {
	var found []cart.Item
	for _, it := range s.cart.View().Items {
		if it.ID == ref {
			return it, nil
		}
		if len(ref) >= 4 && strings.HasPrefix(it.ID, ref) {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return cart.Item{}, fmt.Errorf("item %q is not in the cart", ref)
	case 1:
		return found[0], nil
	default:
		return cart.Item{}, fmt.Errorf("item prefix %q is ambiguous", ref)
	}
}

// writeErr returns the error recorded by the last write-through, if any.
func (s *session) writeErr() error {
	return s.cart.View().Err
}
