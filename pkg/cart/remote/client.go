// Package remote implements cart.Backend and the product catalog over the
// cart service's HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	apperrors "github.com/Zchasse63/vercelpickle-sub006/pkg/errors"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/httpclient"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/logger"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/pagination"
)

const (
	// UserIDHeader carries the authenticated user on every cart request.
	UserIDHeader = "X-User-ID"
	// CorrelationIDHeader propagates the caller's correlation ID.
	CorrelationIDHeader = "X-Correlation-ID"

	serviceName = "cart-api"
)

// Client talks to the cart service. It implements cart.Backend.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
	token   string
}

var _ cart.Backend = (*Client)(nil)

// NewClient creates a client for the service at baseURL, e.g.
// "http://localhost:8003".
func NewClient(baseURL string, hc *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger,
	}
}

// NewDefaultClient wires a client with the default retry and circuit breaker
// settings.
func NewDefaultClient(baseURL string, logger *slog.Logger) *Client {
	hc := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig(serviceName),
		logger,
	)
	return NewClient(baseURL, hc, logger)
}

// SetBearerToken makes every request carry "Authorization: Bearer token".
// The service derives the user from the token when it has JWT auth enabled.
func (c *Client) SetBearerToken(token string) {
	c.token = token
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type addItemResponse struct {
	ItemID string `json:"item_id"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type clearResponse struct {
	Removed int `json:"removed"`
}

// GetCartItems returns the persisted lines of userID's cart.
func (c *Client) GetCartItems(ctx context.Context, userID string) ([]cart.Item, error) {
	var items []cart.Item
	if err := c.do(ctx, http.MethodGet, "/api/v1/cart/items", userID, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []cart.Item{}
	}
	return items, nil
}

// AddCartItem adds quantity of productID and returns the ID of the line it
// landed on.
func (c *Client) AddCartItem(ctx context.Context, userID, productID string, quantity int) (string, error) {
	var resp addItemResponse
	body := addItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/api/v1/cart/items", userID, body, &resp); err != nil {
		return "", err
	}
	if resp.ItemID == "" {
		return "", fmt.Errorf("add cart item: %s returned no item id", serviceName)
	}
	return resp.ItemID, nil
}

// UpdateCartItemQuantity sets a line's quantity; zero or less removes it.
func (c *Client) UpdateCartItemQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	return c.do(ctx, http.MethodPut, itemPath(itemID), userID, updateItemRequest{Quantity: quantity}, nil)
}

// RemoveCartItem deletes a line.
func (c *Client) RemoveCartItem(ctx context.Context, userID, itemID string) error {
	return c.do(ctx, http.MethodDelete, itemPath(itemID), userID, nil, nil)
}

// ClearCart empties the cart and returns how many lines were removed.
func (c *Client) ClearCart(ctx context.Context, userID string) (int, error) {
	var resp clearResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/cart", userID, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// GetTotals returns the totals the service computes for userID's cart under
// its configured pricing policy.
func (c *Client) GetTotals(ctx context.Context, userID string) (cart.Totals, error) {
	var totals cart.Totals
	if err := c.do(ctx, http.MethodGet, "/api/v1/cart/totals", userID, nil, &totals); err != nil {
		return cart.Totals{}, err
	}
	return totals, nil
}

// ListProducts fetches the whole catalog, page by page.
func (c *Client) ListProducts(ctx context.Context) ([]cart.Product, error) {
	var all []cart.Product
	params := pagination.Page(1, pagination.MaxPerPage)

	for {
		var page pagination.Result[cart.Product]
		path := "/api/v1/products?" + params.Query().Encode()
		if err := c.send(ctx, http.MethodGet, path, "", nil, func(r io.Reader) error {
			return json.NewDecoder(r).Decode(&page)
		}); err != nil {
			return nil, err
		}

		all = append(all, page.Data...)
		if !page.HasNext || len(page.Data) == 0 {
			break
		}
		params = params.Next()
	}

	if all == nil {
		all = []cart.Product{}
	}
	return all, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func itemPath(itemID string) string {
	return "/api/v1/cart/items/" + url.PathEscape(itemID)
}

// do sends a JSON request and decodes the data field of the response
// envelope into out, if out is non-nil.
func (c *Client) do(ctx context.Context, method, path, userID string, body, out any) error {
	return c.send(ctx, method, path, userID, body, func(r io.Reader) error {
		if out == nil {
			return nil
		}
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(r).Decode(&env); err != nil {
			return err
		}
		if len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, out)
	})
}

func (c *Client) send(ctx context.Context, method, path, userID string, body any, decode func(io.Reader) error) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(CorrelationIDHeader, id)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.transportError(ctx, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, method, path string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
	}

	c.logger.WarnContext(ctx, "cart service unreachable",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
	return apperrors.ServiceUnavailable(serviceName+" is unreachable", err)
}
