// Package store implements the in-memory cart store: the single source of
// truth for cart lines, derived totals and loading/error flags in one client
// session.
//
// State is kept in two layers. The snapshot is authoritative: the items of
// the last successful backend sync plus every local mutation the backend has
// since confirmed. Mutations not yet confirmed live in an ordered pending
// log. The visible cart is the snapshot with the pending log replayed on top.
//
// A write the backend rejected is abandoned: it stays visible and folds into
// the snapshot until the next sync replaces it.
//
// Local mutations never fail. Missing item IDs make them no-ops, because the
// UI can race a removal. Line quantities are capped at
// cart.MaxQuantityPerItem, as on the backend. Backend failures during a sync
// are captured into the store's error field instead of being returned.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
)

// LocalIDPrefix marks item IDs minted by the store before the backend has
// assigned one.
const LocalIDPrefix = "local-"

// IsLocalID reports whether id was generated locally.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Mutation identifies an optimistic operation recorded in the pending log.
// The zero Mutation means the call was a no-op.
type Mutation struct {
	Seq    uint64
	ItemID string
	// Quantity is what the op recorded after clamping: the amount added for
	// an add, the new quantity for an update, zero otherwise.
	Quantity int
	// LineQuantity is the visible quantity of the line right after the op.
	LineQuantity int
}

// Applied reports whether the call changed the cart.
func (m Mutation) Applied() bool {
	return m.Seq != 0
}

// SyncError is recorded when fetching the persisted cart fails.
type SyncError struct {
	UserID string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync cart for user %s: %v", e.UserID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// State is a copy of the store's visible state.
type State struct {
	Items     []cart.Item
	Totals    cart.Totals
	IsLoading bool
	Err       error
	// Owner is the user whose persisted cart the snapshot was synced from.
	// Empty while the cart has never been synced (guest session).
	Owner string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPricing sets the policy used for shipping and tax.
func WithPricing(p cart.PricingPolicy) Option {
	return func(s *Store) { s.pricing = p }
}

// WithIDGenerator replaces the local item ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Store is safe for concurrent use. Create one per client session and share
// it by reference.
type Store struct {
	backend cart.Backend
	pricing cart.PricingPolicy
	logger  *slog.Logger
	newID   func() string

	mu       sync.RWMutex
	snapshot []cart.Item
	pending  []op
	items    []cart.Item
	totals   cart.Totals
	aliases  map[string]string
	seq      uint64

	// generation is bumped by every sync start and by Reset; a sync whose
	// generation is no longer current when its fetch returns is discarded.
	generation uint64
	isLoading  bool
	err        error
	owner      string
}

// New creates an empty store. backend may be nil for a cart that never
// syncs.
func New(backend cart.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		newID:   func() string { return LocalIDPrefix + uuid.NewString() },
		items:   []cart.Item{},
		totals:  cart.ZeroTotals(),
		aliases: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem adds quantity of productID. A non-positive quantity is clamped to
// 1. If the product already has a line its quantity is incremented;
// otherwise a new line with a local ID is appended. The line never exceeds
// cart.MaxQuantityPerItem; an add to a full line is a no-op.
func (s *Store) AddItem(productID string, snapshot cart.ProductSnapshot, quantity int) Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var itemID string
	current := 0
	if idx := cart.IndexOfProduct(s.items, productID); idx >= 0 {
		itemID = s.items[idx].ID
		current = s.items[idx].Quantity
	}

	quantity = min(cart.NormalizeQuantity(quantity), cart.MaxQuantityPerItem-current)
	if quantity <= 0 {
		return Mutation{}
	}
	if itemID == "" {
		itemID = s.newID()
	}

	return s.record(op{
		kind:      opAdd,
		itemID:    itemID,
		productID: productID,
		product:   snapshot,
		quantity:  quantity,
	})
}

// UpdateItem sets the quantity of a line, capped at cart.MaxQuantityPerItem.
// A non-positive quantity removes the line. Unknown IDs are ignored.
func (s *Store) UpdateItem(itemID string, quantity int) Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(itemID)
	}

	itemID = s.resolveLocked(itemID)
	if cart.IndexOfItem(s.items, itemID) < 0 {
		return Mutation{}
	}

	return s.record(op{kind: opUpdate, itemID: itemID, quantity: min(quantity, cart.MaxQuantityPerItem)})
}

// RemoveItem deletes a line. Unknown IDs are ignored.
func (s *Store) RemoveItem(itemID string) Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(itemID)
}

func (s *Store) removeLocked(itemID string) Mutation {
	itemID = s.resolveLocked(itemID)
	if cart.IndexOfItem(s.items, itemID) < 0 {
		return Mutation{}
	}
	return s.record(op{kind: opRemove, itemID: itemID})
}

// ClearCart empties the cart. Loading and error flags are left alone.
func (s *Store) ClearCart() Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record(op{kind: opClear})
}

// CalculateTotals recomputes the totals from the current items and returns
// them. Repeated calls without an intervening mutation return identical
// values.
func (s *Store) CalculateTotals() cart.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totals = cart.CalculateTotals(s.items, s.pricing)
	return s.totals
}

// SyncWithBackend replaces the cart with the persisted cart of userID. The
// backend is authoritative: pending local mutations are dropped rather than
// merged, so a guest session's lines never leak into a signed-in cart.
//
// Fetch failures are recorded as a *SyncError and leave the items untouched.
// A sync overtaken by a later sync or by Reset is discarded. The result
// reports whether the fetched cart was committed.
func (s *Store) SyncWithBackend(ctx context.Context, userID string) bool {
	return s.CompleteSync(ctx, userID, s.BeginSync(userID))
}

// BeginSync claims a new sync generation for userID and marks the store as
// loading. Any sync begun earlier becomes stale. It returns 0 when there is
// nothing to sync (no user or no backend).
//
// Callers that track identity themselves call BeginSync while holding the
// lock that guards the identity, so the generation order matches the
// identity order, and then CompleteSync outside it.
func (s *Store) BeginSync(userID string) uint64 {
	if userID == "" || s.backend == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.isLoading = true
	return s.generation
}

// CompleteSync fetches userID's cart and commits it if gen is still the
// current generation.
func (s *Store) CompleteSync(ctx context.Context, userID string, gen uint64) bool {
	if gen == 0 {
		return false
	}

	s.logger.DebugContext(ctx, "cart sync started",
		slog.String("user_id", userID),
		slog.Uint64("generation", gen),
	)

	items, err := s.backend.GetCartItems(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.InfoContext(ctx, "discarding stale cart sync",
			slog.String("user_id", userID),
			slog.Uint64("generation", gen),
			slog.Uint64("current_generation", s.generation),
		)
		return false
	}
	s.isLoading = false

	if err != nil {
		s.err = &SyncError{UserID: userID, Err: err}
		s.logger.WarnContext(ctx, "cart sync failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}

	clean, changed := sanitize(items)
	if changed {
		s.logger.WarnContext(ctx, "backend cart violated line invariants, normalized",
			slog.String("user_id", userID),
			slog.Int("received", len(items)),
			slog.Int("kept", len(clean)),
		)
	}

	dropped := len(s.pending)
	s.snapshot = clean
	s.pending = nil
	s.aliases = make(map[string]string)
	s.owner = userID
	s.err = nil
	s.rebuild()

	s.logger.DebugContext(ctx, "cart sync committed",
		slog.String("user_id", userID),
		slog.Int("items", len(s.items)),
		slog.Int("dropped_pending", dropped),
	)
	return true
}

// Settle marks a pending mutation as confirmed by the backend and folds the
// confirmed prefix of the log into the snapshot. For an add, itemID is the
// backend's ID for the line; the local ID is re-keyed to it. Settling a
// mutation that is no longer pending (a sync dropped it) is a no-op.
func (s *Store) Settle(m Mutation, itemID string) bool {
	return s.finish(m, itemID)
}

// Abandon gives up on confirming m, for example after the backend rejected
// the write. The mutation stays visible and no longer holds back later
// settlements; the next sync replaces whatever it changed.
func (s *Store) Abandon(m Mutation) bool {
	return s.finish(m, "")
}

func (s *Store) finish(m Mutation, itemID string) bool {
	if !m.Applied() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := -1
	for j := range s.pending {
		if s.pending[j].seq == m.Seq {
			i = j
			break
		}
	}
	if i < 0 {
		return false
	}

	o := &s.pending[i]
	o.done = true
	if o.kind == opAdd && itemID != "" && itemID != o.itemID {
		s.rekeyLocked(o.itemID, itemID)
	}

	for len(s.pending) > 0 && s.pending[0].done {
		s.snapshot = s.pending[0].apply(s.snapshot)
		s.pending = s.pending[1:]
	}
	s.rebuild()
	return true
}

// ResolveID returns the backend ID a local item ID was re-keyed to, or id
// itself.
func (s *Store) ResolveID(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.resolveLocked(id)
}

// SetError records a failure from outside the sync path, such as a
// write-through that the backend rejected.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// Reset returns the store to its initial empty state and invalidates any
// sync in flight. Call it on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.snapshot = nil
	s.pending = nil
	s.aliases = make(map[string]string)
	s.isLoading = false
	s.err = nil
	s.owner = ""
	s.rebuild()
}

// State returns a copy of the visible state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Items:     cart.CloneItems(s.items),
		Totals:    s.totals,
		IsLoading: s.isLoading,
		Err:       s.err,
		Owner:     s.owner,
	}
}

// Items returns a copy of the visible lines.
func (s *Store) Items() []cart.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cart.CloneItems(s.items)
}

// Totals returns the last computed totals.
func (s *Store) Totals() cart.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.totals
}

// Authoritative returns a copy of the snapshot layer.
func (s *Store) Authoritative() []cart.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cart.CloneItems(s.snapshot)
}

// PendingCount returns the number of unconfirmed mutations.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pending)
}

func (s *Store) record(o op) Mutation {
	s.seq++
	o.seq = s.seq
	s.pending = append(s.pending, o)
	s.rebuild()

	m := Mutation{Seq: o.seq, ItemID: o.itemID, Quantity: o.quantity}
	if idx := cart.IndexOfItem(s.items, o.itemID); idx >= 0 {
		m.LineQuantity = s.items[idx].Quantity
	}
	return m
}

// rebuild re-materializes the visible items and their totals. Callers hold
// the write lock.
func (s *Store) rebuild() {
	s.items = replay(s.snapshot, s.pending)
	s.totals = cart.CalculateTotals(s.items, s.pricing)
}

func (s *Store) resolveLocked(id string) string {
	for range len(s.aliases) + 1 {
		next, ok := s.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
	return id
}

func (s *Store) rekeyLocked(from, to string) {
	s.aliases[from] = to
	for k, v := range s.aliases {
		if v == from {
			s.aliases[k] = to
		}
	}
	for i := range s.pending {
		if s.pending[i].itemID == from {
			s.pending[i].itemID = to
		}
	}
	for i := range s.snapshot {
		if s.snapshot[i].ID == from {
			s.snapshot[i].ID = to
		}
	}
}
