package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/httputil"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/middleware"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/validator"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/service"
)

// CartHandler serves the cart endpoints. Every route runs behind
// middleware.RequireUserID.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

type addItemResponse struct {
	ItemID string `json:"item_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type clearResponse struct {
	Removed int `json:"removed"`
}

// ListItems handles GET /api/v1/cart/items.
func (h *CartHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GetItems(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}

// AddItem handles POST /api/v1/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	itemID, err := h.service.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: addItemResponse{ItemID: itemID}})
}

// UpdateItem handles PUT /api/v1/cart/items/{itemId}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	var req service.UpdateQuantityInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.UpdateItemQuantity(r.Context(), userID, itemID.String(), req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := "updated"
	if req.Quantity <= 0 {
		status = "removed"
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: statusResponse{Status: status}})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), middleware.UserIDFromContext(r.Context()), itemID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: statusResponse{Status: "removed"}})
}

// ClearCart handles DELETE /api/v1/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.ClearCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: clearResponse{Removed: removed}})
}

// GetTotals handles GET /api/v1/cart/totals.
func (h *CartHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.GetTotals(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: totals})
}
