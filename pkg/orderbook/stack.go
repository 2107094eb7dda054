package orderbook

import "github.com/shopspring/decimal"

// OrderStack is a FIFO queue of Orders resting at one price level. Arrival
// order is preserved through removal: pushing to the back and removing by
// uid never reorder the orders that remain.
type OrderStack struct {
	orders []*Order
}

func newOrderStack() *OrderStack {
	return &OrderStack{orders: make([]*Order, 0, 1)}
}

// PushBack appends an order to the tail of the queue. O(1).
func (s *OrderStack) PushBack(o *Order) {
	s.orders = append(s.orders, o)
}

// RemoveByUID scans for the first order with a matching uid, removes it, and
// returns it. The orders on either side keep their relative order. O(k).
func (s *OrderStack) RemoveByUID(uid string) (*Order, bool) {
	for i, o := range s.orders {
		if o.UID == uid {
			removed := o
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return removed, true
		}
	}
	return nil, false
}

// GetByUID returns the order with the given uid, if present. O(k).
func (s *OrderStack) GetByUID(uid string) (*Order, bool) {
	for _, o := range s.orders {
		if o.UID == uid {
			return o, true
		}
	}
	return nil, false
}

// TotalSize sums Size across every order resting at this level. O(k).
func (s *OrderStack) TotalSize() decimal.Decimal {
	total := decimal.Zero
	for _, o := range s.orders {
		total = total.Add(o.Size)
	}
	return total
}

// Len returns the number of orders resting at this level.
func (s *OrderStack) Len() int {
	return len(s.orders)
}

// IsEmpty reports whether the level holds any orders.
func (s *OrderStack) IsEmpty() bool {
	return len(s.orders) == 0
}

// Orders returns the resting orders in FIFO (arrival) order. Callers must
// not mutate the returned slice.
func (s *OrderStack) Orders() []*Order {
	return s.orders
}
