package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/health"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/middleware"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/service"
)

// RouterConfig holds the HTTP-layer settings of the router.
type RouterConfig struct {
	RateLimit  middleware.RateLimitConfig
	CORS       middleware.CORSConfig
	PprofCIDRs []string
	// JWTSecret, when set, requires a signed bearer token on cart routes
	// instead of trusting X-User-ID.
	JWTSecret string
}

// NewRouter creates a chi router with all cart service routes registered.
func NewRouter(
	cartService *service.CartService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("cart"))
	r.Use(middleware.Tracing("cart"))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	cartHandler := NewCartHandler(cartService, logger)
	productHandler := NewProductHandler(cartService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			if cfg.JWTSecret != "" {
				r.Use(middleware.JWTAuth(cfg.JWTSecret, logger))
			}
			r.Use(middleware.RequireUserID)
			r.Use(middleware.RequestLogger(logger))
			r.Use(limiter.Middleware)
			r.Use(middleware.CacheControl("no-store"))

			r.Delete("/", cartHandler.ClearCart)
			r.Get("/totals", cartHandler.GetTotals)
			r.Get("/items", cartHandler.ListItems)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{itemId}", cartHandler.UpdateItem)
			r.Delete("/items/{itemId}", cartHandler.RemoveItem)
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.RequestLogger(logger))
			r.Use(limiter.Middleware)
			r.Use(middleware.CacheControl("public, max-age=60"))

			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})
	})

	return r
}
