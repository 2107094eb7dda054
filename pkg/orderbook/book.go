package orderbook

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Level is a read-only snapshot of one price level's aggregate state.
type Level struct {
	Price      decimal.Decimal
	TotalSize  decimal.Decimal
	OrderCount int
}

// LimitOrderBook is a single instrument's resting orders: one AVL tree of
// price levels per side, plus a uid index for O(log N) cancel/update. It is
// passive — it never matches a bid against an ask. That is an external
// collaborator's job, same as wire decoding and persistence.
type LimitOrderBook struct {
	cfg Config

	bids *avlTree
	asks *avlTree
	idx  *orderIndex

	bidCutoff decimal.Decimal
	askCutoff decimal.Decimal
	outliers  int

	itemsProcessed int
	timestamp      string
}

// New returns an empty book with default configuration.
func New() *LimitOrderBook {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig returns an empty book tuned by cfg.
func NewWithConfig(cfg Config) *LimitOrderBook {
	return &LimitOrderBook{
		cfg:  cfg,
		bids: newAVLTree(),
		asks: newAVLTree(),
		idx:  newOrderIndex(),
	}
}

func (b *LimitOrderBook) treeFor(side Side) *avlTree {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

// Process dispatches order by its Action: InsertAction inserts,
// RemoveAction cancels by uid, UpdateAction changes size by uid. It is the
// single entry point a caller driving the book from a decoded wire message
// would use. Dispatch is pure routing: after the underlying call returns,
// itemsProcessed increments and timestamp is set to order.Timestamp,
// regardless of the outcome of the dispatched operation. Calling
// Insert/Remove/Update directly bypasses both; those are the book's
// lower-level primitives, not the counted entry point.
func (b *LimitOrderBook) Process(action Action, order *Order) {
	switch action {
	case InsertAction:
		b.Insert(order)
	case RemoveAction:
		b.Remove(order.UID)
	case UpdateAction:
		b.Update(order.UID, order.Size)
	default:
		panic(fmt.Sprintf("orderbook: unknown action %d", action))
	}
	b.itemsProcessed++
	b.timestamp = order.Timestamp
}

// Insert adds a new resting order, unless its price is judged an outlier
// (see isOutlier), in which case it is silently dropped and Outliers()
// increments. Insert of a uid already present in the index is a no-op: uids
// are caller-supplied and assumed unique for the book's lifetime.
func (b *LimitOrderBook) Insert(order *Order) {
	if _, _, exists := b.idx.Get(order.UID); exists {
		return
	}
	if b.isOutlier(order) {
		b.outliers++
		return
	}
	b.treeFor(order.Side).InsertOrAppend(order.Price, order)
	b.idx.Insert(order.UID, order.Side, order.Price)
}

// isOutlier applies the same guard as the original implementation: a book
// with no resting orders on a side, or a new order that beats the current
// best, always passes and resets that side's cutoff to price/factor (bids)
// or price*factor (asks). Otherwise an order is an outlier once it falls
// below the bid cutoff (bids) or above the ask cutoff (asks). Mutates
// bidCutoff/askCutoff on the non-outlier branches, matching the original's
// "update cutoff only when there's a new best" behavior.
func (b *LimitOrderBook) isOutlier(order *Order) bool {
	switch order.Side {
	case Bid:
		best, ok := b.bids.MaxKey()
		switch {
		case !ok:
			b.bidCutoff = order.Price.Div(b.cfg.OutlierFactor)
			return false
		case order.Price.GreaterThan(best):
			b.bidCutoff = order.Price.Div(b.cfg.OutlierFactor)
			return false
		case order.Price.GreaterThanOrEqual(b.bidCutoff):
			return false
		default:
			return true
		}
	default:
		best, ok := b.asks.MinKey()
		switch {
		case !ok:
			b.askCutoff = order.Price.Mul(b.cfg.OutlierFactor)
			return false
		case order.Price.LessThan(best):
			b.askCutoff = order.Price.Mul(b.cfg.OutlierFactor)
			return false
		case order.Price.LessThanOrEqual(b.askCutoff):
			return false
		default:
			return true
		}
	}
}

// Remove cancels a resting order by uid. Unknown uid is a silent no-op.
func (b *LimitOrderBook) Remove(uid string) {
	side, price, ok := b.idx.Get(uid)
	if !ok {
		return
	}
	tree := b.treeFor(side)
	stack, ok := tree.Get(price)
	if !ok {
		panic("orderbook: index pointed at a price level that does not exist in the tree")
	}
	if _, ok := stack.RemoveByUID(uid); !ok {
		panic("orderbook: index pointed at a level that does not hold the uid it claims to")
	}
	b.idx.Remove(uid)
	if stack.IsEmpty() {
		tree.Remove(price)
	}
}

// Update changes a resting order's size in place. Unknown uid is a silent
// no-op. A newSize of zero or less is equivalent to Remove.
func (b *LimitOrderBook) Update(uid string, newSize decimal.Decimal) {
	side, price, ok := b.idx.Get(uid)
	if !ok {
		return
	}
	if !newSize.IsPositive() {
		b.Remove(uid)
		return
	}
	tree := b.treeFor(side)
	stack, ok := tree.Get(price)
	if !ok {
		panic("orderbook: index pointed at a price level that does not exist in the tree")
	}
	o, ok := stack.GetByUID(uid)
	if !ok {
		panic("orderbook: index pointed at a level that does not hold the uid it claims to")
	}
	o.Size = newSize
}

// BestBid returns the highest resting bid price.
func (b *LimitOrderBook) BestBid() (decimal.Decimal, bool) {
	return b.bids.MaxKey()
}

// BestAsk returns the lowest resting ask price.
func (b *LimitOrderBook) BestAsk() (decimal.Decimal, bool) {
	return b.asks.MinKey()
}

// Len returns the total number of resting orders across both sides — the
// size of the uid index, not the number of price levels (see NodeCount).
func (b *LimitOrderBook) Len() int {
	return b.idx.Len()
}

// NodeCount returns the total number of price levels across both sides.
func (b *LimitOrderBook) NodeCount() int {
	return b.bids.Len() + b.asks.Len()
}

// ItemsProcessed returns the count of Process calls made, successful or not
// (outliers, no-op removes/updates, and duplicate-uid inserts all count).
// Calling Insert/Remove/Update directly, rather than through Process, does
// not affect this counter.
func (b *LimitOrderBook) ItemsProcessed() int {
	return b.itemsProcessed
}

// Outliers returns the count of inserts dropped by the outlier guard.
func (b *LimitOrderBook) Outliers() int {
	return b.outliers
}

// Timestamp returns the Timestamp of the last order passed to Process.
func (b *LimitOrderBook) Timestamp() string {
	return b.timestamp
}

// Has reports whether uid currently identifies a resting order.
func (b *LimitOrderBook) Has(uid string) bool {
	_, _, ok := b.idx.Get(uid)
	return ok
}

// GetOrder returns the resting order for uid, if any.
func (b *LimitOrderBook) GetOrder(uid string) (*Order, bool) {
	side, price, ok := b.idx.Get(uid)
	if !ok {
		return nil, false
	}
	stack, ok := b.treeFor(side).Get(price)
	if !ok {
		return nil, false
	}
	return stack.GetByUID(uid)
}

// Level returns the aggregate state of the price level at price on side, if
// any orders rest there.
func (b *LimitOrderBook) Level(side Side, price decimal.Decimal) (Level, bool) {
	stack, ok := b.treeFor(side).Get(price)
	if !ok {
		return Level{}, false
	}
	return Level{Price: price, TotalSize: stack.TotalSize(), OrderCount: stack.Len()}, true
}

// Levels returns every price level on side, best price first (descending
// for bids, ascending for asks).
func (b *LimitOrderBook) Levels(side Side) []Level {
	var levels []Level
	it := b.levelIter(side)
	for {
		lvl, ok := it()
		if !ok {
			break
		}
		levels = append(levels, lvl)
	}
	return levels
}

// levelIter returns a closure yielding one Level per call, best price
// first, until exhausted.
func (b *LimitOrderBook) levelIter(side Side) func() (Level, bool) {
	tree := b.treeFor(side)
	var it *avlIterator
	if side == Bid {
		it = tree.IterRev()
	} else {
		it = tree.Iter()
	}
	return func() (Level, bool) {
		price, stack, ok := it.Next()
		if !ok {
			return Level{}, false
		}
		return Level{Price: price, TotalSize: stack.TotalSize(), OrderCount: stack.Len()}, true
	}
}

// Iter returns every resting order on side, in price-then-FIFO order (best
// price first).
func (b *LimitOrderBook) Iter(side Side) []*Order {
	tree := b.treeFor(side)
	var treeIt *avlIterator
	if side == Bid {
		treeIt = tree.IterRev()
	} else {
		treeIt = tree.Iter()
	}
	var out []*Order
	for {
		_, stack, ok := treeIt.Next()
		if !ok {
			break
		}
		out = append(out, stack.Orders()...)
	}
	return out
}

// Check walks both trees and reports every invariant violation found as a
// human-readable message. An empty slice means the book is internally
// consistent. This never panics; it is a diagnostic, not a guard.
func (b *LimitOrderBook) Check() []string {
	var msgs []string

	for _, side := range []Side{Bid, Ask} {
		tree := b.treeFor(side)
		if !tree.IsBalanced() {
			msgs = append(msgs, fmt.Sprintf("%s tree: balance factor out of [-1, 1] somewhere", side))
		}
		tree.forEach(func(n *avlNode) {
			if n.parent != nil && n.parent.left != n && n.parent.right != n {
				msgs = append(msgs, fmt.Sprintf("%s tree: node at price %s is not linked from its claimed parent", side, n.key))
			}
			if n.left != nil && n.left.parent != n {
				msgs = append(msgs, fmt.Sprintf("%s tree: node at price %s's left child has a stale parent pointer", side, n.key))
			}
			if n.right != nil && n.right.parent != n {
				msgs = append(msgs, fmt.Sprintf("%s tree: node at price %s's right child has a stale parent pointer", side, n.key))
			}
			if n.stack.IsEmpty() {
				msgs = append(msgs, fmt.Sprintf("%s tree: node at price %s holds an empty stack; it should have been pruned", side, n.key))
			}
			for _, o := range n.stack.Orders() {
				idxSide, idxPrice, ok := b.idx.Get(o.UID)
				if !ok {
					msgs = append(msgs, fmt.Sprintf("order %s rests in %s tree at %s but has no index entry", o.UID, side, n.key))
					continue
				}
				if idxSide != side || !idxPrice.Equal(n.key) {
					msgs = append(msgs, fmt.Sprintf("order %s's index entry (%s, %s) disagrees with its tree location (%s, %s)", o.UID, idxSide, idxPrice, side, n.key))
				}
			}
		})
	}

	if b.idx.Len() != countLive(b) {
		msgs = append(msgs, fmt.Sprintf("index holds %d entries but trees hold %d live orders", b.idx.Len(), countLive(b)))
	}

	return msgs
}

func countLive(b *LimitOrderBook) int {
	n := 0
	for _, side := range []Side{Bid, Ask} {
		b.treeFor(side).forEach(func(node *avlNode) {
			n += node.stack.Len()
		})
	}
	return n
}

// Display renders a human-readable summary of both sides. Once a side's
// node count exceeds cfg.DisplayCutoff, that side's full level list is
// replaced with a one-line notice instead of being dumped in full.
func (b *LimitOrderBook) Display() string {
	var lines []string

	if b.bids.Len() > b.cfg.DisplayCutoff {
		lines = append(lines, fmt.Sprintf(
			"Bids AVL Tree too large to display (%d nodes). Increase DisplayCutoff (%d) to display larger trees",
			b.bids.Len(), b.cfg.DisplayCutoff))
	} else {
		lines = append(lines, fmt.Sprintf("%d bid levels = %v", b.bids.Len(), b.Levels(Bid)))
	}

	if b.asks.Len() > b.cfg.DisplayCutoff {
		lines = append(lines, fmt.Sprintf(
			"Asks AVL Tree too large to display (%d nodes). Increase DisplayCutoff (%d) to display larger trees",
			b.asks.Len(), b.cfg.DisplayCutoff))
	} else {
		lines = append(lines, fmt.Sprintf("%d ask levels = %v", b.asks.Len(), b.Levels(Ask)))
	}

	lines = append(lines, fmt.Sprintf("Outliers ignored by orderbook: %d", b.outliers))
	return strings.Join(lines, "\n")
}
