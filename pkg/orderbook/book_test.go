package orderbook

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// S1. Basic insert.
func TestBookBasicInsert(t *testing.T) {
	b := New()
	b.Insert(&Order{UID: "A", Side: Bid, Price: dec(100.0), Size: dec(1.0)})
	b.Insert(&Order{UID: "B", Side: Bid, Price: dec(101.0), Size: dec(2.0)})
	b.Insert(&Order{UID: "C", Side: Ask, Price: dec(102.0), Size: dec(1.5)})

	best, ok := b.BestBid()
	require.True(t, ok)
	require.True(t, best.Equal(dec(101.0)))

	bestAsk, ok := b.BestAsk()
	require.True(t, ok)
	require.True(t, bestAsk.Equal(dec(102.0)))

	require.Equal(t, 3, b.Len())
	require.Equal(t, 3, b.NodeCount())
}

// S2. FIFO at one price.
func TestBookFIFOAtOnePrice(t *testing.T) {
	b := New()
	b.Insert(&Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(1)})
	b.Insert(&Order{UID: "B", Side: Bid, Price: dec(100), Size: dec(2)})
	b.Insert(&Order{UID: "C", Side: Bid, Price: dec(100), Size: dec(3)})
	b.Remove("A")

	require.Equal(t, 1, b.NodeCount())
	require.Equal(t, 2, b.Len())

	lvl, ok := b.Level(Bid, dec(100))
	require.True(t, ok)
	require.True(t, lvl.TotalSize.Equal(dec(5)))
	require.Equal(t, 2, lvl.OrderCount)

	stack, ok := b.bids.Get(dec(100))
	require.True(t, ok)
	require.Equal(t, []string{"B", "C"}, uids(stack.Orders()))

	levels := b.Levels(Bid)
	require.Len(t, levels, 1)
	require.True(t, levels[0].Price.Equal(dec(100)))
	require.True(t, levels[0].TotalSize.Equal(dec(5)))
}

// S3. Last-order-at-price removes node.
func TestBookLastOrderAtPriceRemovesNode(t *testing.T) {
	b := New()
	b.Insert(&Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(1)})
	b.Remove("A")

	_, ok := b.BestBid()
	require.False(t, ok)
	require.Equal(t, 0, b.NodeCount())
	require.Equal(t, 0, b.Len())
	require.Empty(t, b.Check())
}

// S4. Two-children deletion forces rotation.
func TestBookTwoChildrenDeletionForcesRotation(t *testing.T) {
	b := New()
	for i, p := range []int64{40, 28, 60, 32, 50, 70, 65} {
		b.Insert(&Order{UID: fmt.Sprintf("o%d", i), Side: Bid, Price: decimal.NewFromInt(p), Size: dec(1)})
	}
	// price 40 is the root, with children 28 and 60; its successor 50 is
	// spliced in, which leaves 60 -> 70 -> 65 needing an RL rotation.
	b.Remove("o0")

	require.Equal(t, 6, b.NodeCount())
	require.True(t, b.bids.IsBalanced())
	require.Empty(t, b.Check())
}

// S5. Zero-size update is remove.
func TestBookZeroSizeUpdateIsRemove(t *testing.T) {
	b := New()
	b.Insert(&Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(5)})
	b.Update("A", decimal.Zero)

	require.False(t, b.Has("A"))
	require.Equal(t, 0, b.NodeCount())
	_, ok := b.BestBid()
	require.False(t, ok)
}

// S6. Outlier guard.
func TestBookOutlierGuard(t *testing.T) {
	b := NewWithConfig(Config{OutlierFactor: dec(2.0), DisplayCutoff: 1000})
	b.Process(InsertAction, &Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(1), Timestamp: "t1"})
	b.Process(InsertAction, &Order{UID: "B", Side: Bid, Price: dec(10), Size: dec(1), Timestamp: "t2"}) // below 100/2 = 50

	require.False(t, b.Has("B"))
	require.Equal(t, 1, b.Len())
	require.Equal(t, 1, b.NodeCount())
	require.Equal(t, 1, b.Outliers())
	require.Equal(t, 2, b.ItemsProcessed())
	require.Equal(t, "t2", b.Timestamp())
}

func TestBookProcessCountsEveryCallRegardlessOfOutcome(t *testing.T) {
	b := New()
	b.Process(InsertAction, &Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(1)})
	b.Process(RemoveAction, &Order{UID: "absent"}) // no-op remove still counts
	b.Process(UpdateAction, &Order{UID: "absent", Size: dec(5)}) // no-op update still counts

	require.Equal(t, 3, b.ItemsProcessed())
	require.True(t, b.Has("A")) // the inserted order is untouched by the no-op Remove/Update
}

func TestBookInsertRemoveRoundTrip(t *testing.T) {
	b := New()
	order := &Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(1)}
	b.Insert(order)
	b.Remove("A")

	require.Equal(t, 0, b.NodeCount())
	require.Equal(t, 0, b.Len())
	require.True(t, b.bids.IsBalanced())
}

func TestBookIdempotentRemove(t *testing.T) {
	b := New()
	b.Insert(&Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(1)})
	b.Remove("A")
	require.NotPanics(t, func() { b.Remove("A") })
	require.Equal(t, 0, b.NodeCount())
}

func TestBookUpdateOnUnknownUIDIsNoop(t *testing.T) {
	b := New()
	b.Insert(&Order{UID: "A", Side: Bid, Price: dec(100), Size: dec(1)})
	b.Update("absent", dec(99))

	require.Equal(t, 1, b.NodeCount())
	o, ok := b.GetOrder("A")
	require.True(t, ok)
	require.True(t, o.Size.Equal(dec(1)))
}

func TestBookOrderOfBestLaw(t *testing.T) {
	gofakeit.Seed(42)
	b := New()
	orders := newTestOrders(500)
	for _, o := range orders {
		b.Insert(o)
	}

	var maxBid, minAsk decimal.Decimal
	haveBid, haveAsk := false, false
	for _, o := range orders {
		if !b.Has(o.UID) {
			continue // dropped as an outlier
		}
		if o.Side == Bid {
			if !haveBid || o.Price.GreaterThan(maxBid) {
				maxBid, haveBid = o.Price, true
			}
		} else {
			if !haveAsk || o.Price.LessThan(minAsk) {
				minAsk, haveAsk = o.Price, true
			}
		}
	}

	bestBid, ok := b.BestBid()
	if haveBid {
		require.True(t, ok)
		require.True(t, bestBid.Equal(maxBid))
	} else {
		require.False(t, ok)
	}

	bestAsk, ok := b.BestAsk()
	if haveAsk {
		require.True(t, ok)
		require.True(t, bestAsk.Equal(minAsk))
	} else {
		require.False(t, ok)
	}

	require.Empty(t, b.Check())
}

func TestBookManyRandomInsertsAndRemovesStayConsistent(t *testing.T) {
	gofakeit.Seed(7)
	b := New()
	orders := newTestOrders(2000)
	for _, o := range orders {
		b.Insert(o)
	}
	for _, o := range orders {
		if gofakeit.Bool() {
			b.Remove(o.UID)
		}
	}
	require.Empty(t, b.Check())
	require.True(t, b.bids.IsBalanced())
	require.True(t, b.asks.IsBalanced())
}

func uids(orders []*Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.UID
	}
	return out
}

// newTestOrders generates a mix of bid and ask orders with random prices
// and sizes, each with a unique uid, for load and property tests.
func newTestOrders(count int) []*Order {
	var minPrice, maxPrice = 100, 10_000
	var minSize, maxSize = 1, 1_000

	orders := make([]*Order, 0, count)
	for i := 0; i < count; i++ {
		side := Bid
		if gofakeit.Bool() {
			side = Ask
		}
		orders = append(orders, &Order{
			UID:       fmt.Sprintf("order-%d", i),
			Side:      side,
			Price:     decimal.NewFromInt(int64(gofakeit.Number(minPrice, maxPrice))),
			Size:      decimal.NewFromInt(int64(gofakeit.Number(minSize, maxSize))),
			Timestamp: gofakeit.Date().String(),
		})
	}
	return orders
}
