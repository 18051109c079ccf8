// Package facade is the cart API the UI binds to. A Facade pairs one store
// with the persistent backend, the product catalog and the current user, and
// drives syncing as the user signs in and out.
package facade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart/store"
	apperrors "github.com/Zchasse63/vercelpickle-sub006/pkg/errors"
)

// ErrProductNotFound is returned by AddToCart when the product is not in the
// catalog.
var ErrProductNotFound = fmt.Errorf("product: %w", apperrors.ErrNotFound)

// SessionState is the identity state of a facade.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateSyncing
	StateSynced
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// View is what the UI renders.
type View struct {
	Items     []cart.Item
	Totals    cart.Totals
	IsEmpty   bool
	ItemCount int
	IsLoading bool
	Err       error
	State     SessionState
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// Facade is safe for concurrent use.
type Facade struct {
	store   *store.Store
	backend cart.Backend
	catalog cart.Catalog
	logger  *slog.Logger

	// writeMu orders backend writes the same way as the local mutations.
	writeMu sync.Mutex

	mu       sync.Mutex
	identity *cart.Identity
	state    SessionState
	epoch    uint64
}

// New creates a facade over s. backend may be nil, in which case every
// mutation stays local.
func New(s *store.Store, backend cart.Backend, catalog cart.Catalog, opts ...Option) *Facade {
	if catalog == nil {
		catalog = cart.StaticCatalog(nil)
	}
	f := &Facade{
		store:   s,
		backend: backend,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetIdentity moves the facade to a new identity. Signing in or switching
// user syncs once with that user's persisted cart; setting the same user
// again does nothing; signing out resets the store. It returns once the sync
// triggered by the transition, if any, has completed.
func (f *Facade) SetIdentity(ctx context.Context, id *cart.Identity) {
	next := identityID(id)

	f.mu.Lock()
	prev := identityID(f.identity)
	if prev == next {
		f.identity = cloneIdentity(id)
		f.mu.Unlock()
		return
	}

	f.identity = cloneIdentity(id)
	f.epoch++
	epoch := f.epoch
	// Switching straight from one user to another must not show the first
	// user's lines while the second user's cart loads.
	if prev != "" {
		f.store.Reset()
	}
	var gen uint64
	if next == "" {
		f.state = StateUnauthenticated
	} else {
		f.state = StateSyncing
		gen = f.store.BeginSync(next)
	}
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "cart identity changed",
		slog.String("from", prev),
		slog.String("to", next),
	)

	if next == "" {
		return
	}
	f.sync(ctx, next, epoch, gen)
}

// Retry re-runs the sync for the current user, e.g. after a failed load. It
// reports whether the fetched cart was committed.
func (f *Facade) Retry(ctx context.Context) bool {
	f.mu.Lock()
	userID := identityID(f.identity)
	epoch := f.epoch
	var gen uint64
	if userID != "" {
		f.state = StateSyncing
		gen = f.store.BeginSync(userID)
	}
	f.mu.Unlock()

	if userID == "" {
		return false
	}
	return f.sync(ctx, userID, epoch, gen)
}

// sync completes a store sync begun under f.mu. The store discards it if a
// later transition began another sync or reset the store.
func (f *Facade) sync(ctx context.Context, userID string, epoch, gen uint64) bool {
	committed := f.store.CompleteSync(ctx, userID, gen)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch == epoch {
		f.state = StateSynced
	}
	return committed
}

// AddToCart adds quantity of productID, defaulting to 1. The product must be
// in the catalog. The line appears immediately; for a signed-in user the
// add is then written to the backend, and a failed write is reported through
// View().Err rather than returned.
func (f *Facade) AddToCart(ctx context.Context, productID string, quantity int) error {
	product, ok := cart.FindProduct(f.catalog, productID)
	if !ok {
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("product with id %s not found", productID),
			Status:  apperrors.HTTPStatus(apperrors.ErrNotFound),
			Err:     ErrProductNotFound,
		}
	}
	quantity = cart.NormalizeQuantity(quantity)

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	m := f.store.AddItem(productID, product.Snapshot(), quantity)
	if !m.Applied() {
		f.logger.DebugContext(ctx, "cart line already at quantity limit",
			slog.String("product_id", productID),
			slog.Int("limit", cart.MaxQuantityPerItem),
		)
		return nil
	}

	userID, remote := f.writeTarget()
	if !remote {
		f.store.Settle(m, "")
		return nil
	}

	// A line whose earlier add never reached the backend is sent whole.
	sendQty := m.Quantity
	if store.IsLocalID(f.store.ResolveID(m.ItemID)) {
		sendQty = m.LineQuantity
	}

	itemID, err := f.backend.AddCartItem(ctx, userID, productID, sendQty)
	if err != nil {
		f.captureWriteError(ctx, "add", userID, productID, err)
		f.store.Abandon(m)
		return nil
	}
	f.store.Settle(m, itemID)
	return nil
}

// UpdateCartItem sets the quantity of a line; zero or less removes it.
// Unknown item IDs are ignored.
func (f *Facade) UpdateCartItem(ctx context.Context, itemID string, quantity int) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	m := f.store.UpdateItem(itemID, quantity)
	f.writeThrough(ctx, m, "update", func(userID, backendID string) error {
		return f.backend.UpdateCartItemQuantity(ctx, userID, backendID, m.Quantity)
	})
}

// RemoveCartItem removes a line. Unknown item IDs are ignored.
func (f *Facade) RemoveCartItem(ctx context.Context, itemID string) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	m := f.store.RemoveItem(itemID)
	f.writeThrough(ctx, m, "remove", func(userID, backendID string) error {
		return f.backend.RemoveCartItem(ctx, userID, backendID)
	})
}

// EmptyCart removes every line.
func (f *Facade) EmptyCart(ctx context.Context) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	m := f.store.ClearCart()

	userID, remote := f.writeTarget()
	if !remote {
		f.store.Settle(m, "")
		return
	}

	removed, err := f.backend.ClearCart(ctx, userID)
	if err != nil {
		f.captureWriteError(ctx, "clear", userID, "", err)
		f.store.Abandon(m)
		return
	}
	f.logger.DebugContext(ctx, "cart cleared",
		slog.String("user_id", userID),
		slog.Int("removed", removed),
	)
	f.store.Settle(m, "")
}

// writeThrough sends an applied item mutation to the backend and settles it.
// Callers hold writeMu.
func (f *Facade) writeThrough(ctx context.Context, m store.Mutation, action string, write func(userID, backendID string) error) {
	if !m.Applied() {
		return
	}

	userID, remote := f.writeTarget()
	if !remote {
		f.store.Settle(m, "")
		return
	}

	backendID := f.store.ResolveID(m.ItemID)
	if store.IsLocalID(backendID) {
		// The add that created this line never reached the backend; the
		// next sync decides what the line really is.
		f.logger.WarnContext(ctx, "skipping cart write for unpersisted item",
			slog.String("action", action),
			slog.String("user_id", userID),
			slog.String("item_id", backendID),
		)
		f.store.Abandon(m)
		return
	}

	if err := write(userID, backendID); err != nil {
		f.captureWriteError(ctx, action, userID, backendID, err)
		f.store.Abandon(m)
		return
	}
	f.store.Settle(m, "")
}

func (f *Facade) writeTarget() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	userID := identityID(f.identity)
	return userID, userID != "" && f.backend != nil
}

func (f *Facade) captureWriteError(ctx context.Context, action, userID, ref string, err error) {
	f.store.SetError(fmt.Errorf("%s cart item: %w", action, err))
	f.logger.WarnContext(ctx, "cart write-through failed",
		slog.String("action", action),
		slog.String("user_id", userID),
		slog.String("ref", ref),
		slog.String("error", err.Error()),
	)
}

// View returns the current cart as the UI renders it.
func (f *Facade) View() View {
	st := f.store.State()

	f.mu.Lock()
	state := f.state
	f.mu.Unlock()

	return View{
		Items:     st.Items,
		Totals:    st.Totals,
		IsEmpty:   len(st.Items) == 0,
		ItemCount: st.Totals.ItemCount,
		IsLoading: st.IsLoading,
		Err:       st.Err,
		State:     state,
	}
}

// Identity returns the current user, or nil when signed out.
func (f *Facade) Identity() *cart.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()

	return cloneIdentity(f.identity)
}

// Store returns the underlying store.
func (f *Facade) Store() *store.Store {
	return f.store
}

func identityID(id *cart.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}

func cloneIdentity(id *cart.Identity) *cart.Identity {
	if id == nil || id.ID == "" {
		return nil
	}
	c := *id
	return &c
}
