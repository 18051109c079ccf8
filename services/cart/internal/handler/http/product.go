package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/httputil"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/pagination"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/service"
)

// ProductHandler serves the read-only catalog.
type ProductHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewProductHandler creates a product HTTP handler.
func NewProductHandler(svc *service.CartService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// ListProducts handles GET /api/v1/products?page=&per_page=. The body is a
// pagination.Result, not the data envelope.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListProducts(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /api/v1/products/{id}; id may also be a slug.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}
