// Package orderbook implements the core of a single-instrument limit order
// book: a dual-indexed data structure (one AVL tree per side, plus a
// uid -> (side, price) index) that maintains the live state of resting buy
// and sell limit orders and exposes price-level aggregates and order-level
// mutations at O(log N) in the number of distinct price levels.
//
// It is a passive book. It never matches orders against each other; that is
// an external collaborator's job, same as wire decoding, persistence, and
// language bindings. See LimitOrderBook for the entry point.
package orderbook

import "github.com/shopspring/decimal"

// Side marks which book a resting order belongs to.
type Side int

const (
	// Bid is the buy side. Best price is the maximum.
	Bid Side = iota
	// Ask is the sell side. Best price is the minimum.
	Ask
)

// String renders the side for logging and display.
func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// Action tags what process should do with an Order.
type Action int

const (
	// InsertAction adds a new resting order.
	InsertAction Action = iota
	// RemoveAction cancels a resting order.
	RemoveAction
	// UpdateAction changes a resting order's size in place.
	UpdateAction
)

// Order is a single resting limit order. UID is globally unique across the
// book's lifetime. Price and Side are immutable after insertion — a re-price
// is a Remove followed by an Insert, not an Update. Size may be mutated in
// place by Update.
type Order struct {
	UID       string
	Side      Side
	Price     decimal.Decimal
	Size      decimal.Decimal
	Timestamp string
}
