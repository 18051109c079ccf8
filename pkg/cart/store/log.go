package store

import (
	"slices"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
)

type opKind int

const (
	opAdd opKind = iota + 1
	opUpdate
	opRemove
	opClear
)

func (k opKind) String() string {
	switch k {
	case opAdd:
		return "add"
	case opUpdate:
		return "update"
	case opRemove:
		return "remove"
	case opClear:
		return "clear"
	default:
		return "unknown"
	}
}

// op is one optimistic mutation waiting for backend confirmation.
type op struct {
	seq       uint64
	kind      opKind
	itemID    string
	productID string
	product   cart.ProductSnapshot
	quantity  int
	// done is set once the backend confirmed the op or the write was
	// abandoned; done ops at the head of the log fold into the snapshot.
	done bool
}

// apply replays o on top of items. items is modified and returned.
func (o op) apply(items []cart.Item) []cart.Item {
	switch o.kind {
	case opAdd:
		if idx := cart.IndexOfProduct(items, o.productID); idx >= 0 {
			items[idx].Quantity = min(items[idx].Quantity+o.quantity, cart.MaxQuantityPerItem)
			return items
		}
		product := o.product
		product.Images = slices.Clone(product.Images)
		return append(items, cart.Item{
			ID:        o.itemID,
			ProductID: o.productID,
			Quantity:  min(o.quantity, cart.MaxQuantityPerItem),
			Product:   product,
		})
	case opUpdate:
		if idx := cart.IndexOfItem(items, o.itemID); idx >= 0 {
			items[idx].Quantity = o.quantity
		}
		return items
	case opRemove:
		if idx := cart.IndexOfItem(items, o.itemID); idx >= 0 {
			return slices.Delete(items, idx, idx+1)
		}
		return items
	case opClear:
		return items[:0]
	}
	return items
}

// replay materializes the visible item list: the authoritative snapshot with
// every pending op applied in sequence order.
func replay(snapshot []cart.Item, pending []op) []cart.Item {
	items := cart.CloneItems(snapshot)
	for _, o := range pending {
		items = o.apply(items)
	}
	return items
}

// sanitize enforces the line invariants on a backend payload: positive
// quantities and one line per product. It reports whether anything changed.
func sanitize(in []cart.Item) ([]cart.Item, bool) {
	out := make([]cart.Item, 0, len(in))
	changed := false
	for _, it := range in {
		if it.Quantity <= 0 {
			changed = true
			continue
		}
		if idx := cart.IndexOfProduct(out, it.ProductID); idx >= 0 {
			out[idx].Quantity += it.Quantity
			changed = true
			continue
		}
		out = append(out, it)
	}
	return cart.CloneItems(out), changed
}
