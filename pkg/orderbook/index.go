package orderbook

import "github.com/shopspring/decimal"

// indexEntry records where a live order rests, so it can be found by uid
// without walking either tree.
type indexEntry struct {
	side  Side
	price decimal.Decimal
}

// orderIndex maps uid -> (Side, Price). It is the book's second index,
// alongside the bid and ask trees, and is what turns Remove/Update from an
// O(N) tree scan into an O(log N) lookup.
type orderIndex struct {
	entries map[string]indexEntry
}

func newOrderIndex() *orderIndex {
	return &orderIndex{entries: make(map[string]indexEntry)}
}

func (idx *orderIndex) Insert(uid string, side Side, price decimal.Decimal) {
	idx.entries[uid] = indexEntry{side: side, price: price}
}

func (idx *orderIndex) Remove(uid string) {
	delete(idx.entries, uid)
}

func (idx *orderIndex) Get(uid string) (Side, decimal.Decimal, bool) {
	e, ok := idx.entries[uid]
	if !ok {
		return 0, decimal.Decimal{}, false
	}
	return e.side, e.price, true
}

func (idx *orderIndex) Len() int {
	return len(idx.entries)
}
