package orderbook

import "github.com/shopspring/decimal"

// avlNode is one price level. Keys are unique per tree: one node per price.
// The parent pointer lets rebalancing walk upward after a removal without an
// auxiliary stack.
type avlNode struct {
	key    decimal.Decimal
	stack  *OrderStack
	parent *avlNode
	left   *avlNode
	right  *avlNode
	height int
}

// removedNode is handed back from avlTree.Remove so the caller (the book)
// can inspect what was detached before discarding it.
type removedNode struct {
	key   decimal.Decimal
	stack *OrderStack
}

// avlTree is a self-balancing ordered map keyed by price, with OrderStack
// values. It keeps height balanced after every insert/remove and exposes
// forward and reverse in-order iteration via parent-pointer traversal.
//
// Keys are compared with decimal.Decimal.Cmp, which never produces an
// incomparable result (unlike float NaN) — the "incomparable keys" fatal
// condition described for the core never arises with this key type.
type avlTree struct {
	root *avlNode
	len  int
}

func newAVLTree() *avlTree {
	return &avlTree{}
}

// Len returns the number of distinct price levels.
func (t *avlTree) Len() int {
	return t.len
}

func (t *avlTree) lookup(key decimal.Decimal) *avlNode {
	n := t.root
	for n != nil {
		switch cmp := key.Cmp(n.key); {
		case cmp == 0:
			return n
		case cmp < 0:
			n = n.left
		default:
			n = n.right
		}
	}
	return nil
}

// Get returns the stack at a price, if a node exists there.
func (t *avlTree) Get(key decimal.Decimal) (*OrderStack, bool) {
	n := t.lookup(key)
	if n == nil {
		return nil, false
	}
	return n.stack, true
}

// Has reports whether a node exists at the given price.
func (t *avlTree) Has(key decimal.Decimal) bool {
	return t.lookup(key) != nil
}

// MinKey returns the smallest key in the tree.
func (t *avlTree) MinKey() (decimal.Decimal, bool) {
	if t.root == nil {
		return decimal.Decimal{}, false
	}
	return leftmost(t.root).key, true
}

// MaxKey returns the largest key in the tree.
func (t *avlTree) MaxKey() (decimal.Decimal, bool) {
	if t.root == nil {
		return decimal.Decimal{}, false
	}
	return rightmost(t.root).key, true
}

// InsertOrAppend creates a new one-order node at key if absent, or appends
// order to the existing stack at key if present. Only the absent case
// touches the tree's shape.
func (t *avlTree) InsertOrAppend(key decimal.Decimal, order *Order) {
	if t.root == nil {
		t.root = &avlNode{key: key, stack: newOrderStack()}
		t.root.stack.PushBack(order)
		t.len++
		return
	}

	node, parent := t.root, (*avlNode)(nil)
	var cmp int
	for node != nil {
		parent = node
		cmp = key.Cmp(node.key)
		switch {
		case cmp == 0:
			node.stack.PushBack(order)
			return
		case cmp < 0:
			node = node.left
		default:
			node = node.right
		}
	}

	n := &avlNode{key: key, stack: newOrderStack(), parent: parent}
	n.stack.PushBack(order)
	if cmp < 0 {
		parent.left = n
	} else {
		parent.right = n
	}
	t.len++
	t.insertFixup(parent)
}

// Remove deletes the node at key, if any, rebalances, and returns the
// detached node so the caller can inspect what it held.
func (t *avlTree) Remove(key decimal.Decimal) (*removedNode, bool) {
	n := t.lookup(key)
	if n == nil {
		return nil, false
	}
	detached := &removedNode{key: n.key, stack: n.stack}

	var fixupStart *avlNode
	switch {
	case n.left == nil && n.right == nil:
		fixupStart = n.parent
		t.replaceInParent(n, nil)
	case n.left == nil:
		fixupStart = n.parent
		t.replaceInParent(n, n.right)
	case n.right == nil:
		fixupStart = n.parent
		t.replaceInParent(n, n.left)
	default:
		succ := leftmost(n.right)
		// succ takes n's place, so it starts from n's height: deleteFixup
		// compares against this to decide whether the walk may stop.
		succ.height = n.height
		if succ.parent == n {
			// successor is n's direct right child: it has no left subtree
			// by definition, so it simply rises and adopts n's left subtree.
			succ.left = n.left
			if succ.left != nil {
				succ.left.parent = succ
			}
			t.replaceInParent(n, succ)
			fixupStart = succ
		} else {
			// successor is deeper: splice its right child into its old
			// slot, then have it adopt both of n's subtrees.
			succParent := succ.parent
			succParent.left = succ.right
			if succ.right != nil {
				succ.right.parent = succParent
			}
			succ.left = n.left
			if succ.left != nil {
				succ.left.parent = succ
			}
			succ.right = n.right
			succ.right.parent = succ
			t.replaceInParent(n, succ)
			fixupStart = succParent
		}
	}

	n.parent, n.left, n.right = nil, nil, nil
	t.len--
	if fixupStart != nil {
		t.deleteFixup(fixupStart)
	}
	return detached, true
}

func leftmost(n *avlNode) *avlNode {
	for n.left != nil {
		n = n.left
	}
	return n
}

func rightmost(n *avlNode) *avlNode {
	for n.right != nil {
		n = n.right
	}
	return n
}

// replaceInParent rewires old's parent to point at newNode in old's place,
// and sets newNode's parent pointer to match. Rotations and removal both
// use it for the swap in old's parent slot; the links below newNode are
// rewired by the caller.
func (t *avlTree) replaceInParent(old, newNode *avlNode) {
	switch {
	case old.parent == nil:
		t.root = newNode
	case old.parent.left == old:
		old.parent.left = newNode
	default:
		old.parent.right = newNode
	}
	if newNode != nil {
		newNode.parent = old.parent
	}
}

func nodeHeight(n *avlNode) int {
	if n == nil {
		return -1
	}
	return n.height
}

func updateNodeHeight(n *avlNode) {
	lh, rh := nodeHeight(n.left), nodeHeight(n.right)
	if lh > rh {
		n.height = lh + 1
	} else {
		n.height = rh + 1
	}
}

func nodeBalanceFactor(n *avlNode) int {
	return nodeHeight(n.right) - nodeHeight(n.left)
}

// insertFixup walks upward from an insertion point. A single rotation
// restores the pre-insertion subtree height, so the walk stops at the first
// rotation; short of that, it stops as soon as a node's height doesn't
// change, since nothing above can be affected once that happens.
func (t *avlTree) insertFixup(start *avlNode) {
	for n := start; n != nil; n = n.parent {
		oldHeight := n.height
		updateNodeHeight(n)
		bf := nodeBalanceFactor(n)
		if bf < -1 || bf > 1 {
			t.rebalance(n)
			return
		}
		if n.height == oldHeight {
			return
		}
	}
}

// deleteFixup walks upward from the point disturbed by a removal. Unlike
// insertion, a single rotation does not necessarily restore the original
// subtree height, so every ancestor must still be checked; the walk only
// stops once a subtree's height is unchanged from before.
func (t *avlTree) deleteFixup(start *avlNode) {
	for n := start; n != nil; {
		parent := n.parent // captured before rebalance can change n.parent
		oldHeight := n.height
		updateNodeHeight(n)
		bf := nodeBalanceFactor(n)
		if bf < -1 || bf > 1 {
			t.rebalance(n)
		} else if n.height == oldHeight {
			return
		}
		n = parent
	}
}

// rebalance restores the AVL property at z, which must have a balance
// factor outside [-1, 1]. It picks one of the four classic cases.
func (t *avlTree) rebalance(z *avlNode) {
	bf := nodeBalanceFactor(z)
	if bf < -1 {
		if nodeBalanceFactor(z.left) > 0 {
			t.rotateLeft(z.left) // LR -> LL
		}
		t.rotateRight(z)
		return
	}
	if nodeBalanceFactor(z.right) < 0 {
		t.rotateRight(z.right) // RL -> RR
	}
	t.rotateLeft(z)
}

// rotateLeft promotes pivot's right child to take pivot's place.
func (t *avlTree) rotateLeft(pivot *avlNode) {
	r := pivot.right
	t.replaceInParent(pivot, r)

	pivot.right = r.left
	if pivot.right != nil {
		pivot.right.parent = pivot
	}

	r.left = pivot
	pivot.parent = r

	updateNodeHeight(pivot)
	updateNodeHeight(r)
}

// rotateRight promotes pivot's left child to take pivot's place.
func (t *avlTree) rotateRight(pivot *avlNode) {
	l := pivot.left
	t.replaceInParent(pivot, l)

	pivot.left = l.right
	if pivot.left != nil {
		pivot.left.parent = pivot
	}

	l.right = pivot
	pivot.parent = l

	updateNodeHeight(pivot)
	updateNodeHeight(l)
}

// IsBalanced reports whether every node's balance factor is within [-1, 1].
func (t *avlTree) IsBalanced() bool {
	var ok = true
	var walk func(n *avlNode)
	walk = func(n *avlNode) {
		if n == nil || !ok {
			return
		}
		bf := nodeBalanceFactor(n)
		if bf < -1 || bf > 1 {
			ok = false
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
	return ok
}

// forEach visits every node in-order. Used by the book's self-audit.
func (t *avlTree) forEach(fn func(n *avlNode)) {
	var walk func(n *avlNode)
	walk = func(n *avlNode) {
		if n == nil {
			return
		}
		walk(n.left)
		fn(n)
		walk(n.right)
	}
	walk(t.root)
}

// avlIterator is a lazy, non-restartable in-order (or reverse in-order)
// sequence of (price, stack) pairs. Its state is one current node pointer;
// mutating the tree while an iterator is live is undefined behavior.
type avlIterator struct {
	current *avlNode
	reverse bool
}

// Iter returns a forward (ascending) iterator.
func (t *avlTree) Iter() *avlIterator {
	var c *avlNode
	if t.root != nil {
		c = leftmost(t.root)
	}
	return &avlIterator{current: c}
}

// IterRev returns a reverse (descending) iterator.
func (t *avlTree) IterRev() *avlIterator {
	var c *avlNode
	if t.root != nil {
		c = rightmost(t.root)
	}
	return &avlIterator{current: c, reverse: true}
}

// Next returns the next (price, stack) pair, or ok=false when exhausted.
func (it *avlIterator) Next() (decimal.Decimal, *OrderStack, bool) {
	if it.current == nil {
		return decimal.Decimal{}, nil, false
	}
	n := it.current
	it.advance()
	return n.key, n.stack, true
}

func (it *avlIterator) advance() {
	n := it.current
	if !it.reverse {
		if n.right != nil {
			it.current = leftmost(n.right)
			return
		}
		for n.parent != nil && n == n.parent.right {
			n = n.parent
		}
		it.current = n.parent
		return
	}
	if n.left != nil {
		it.current = rightmost(n.left)
		return
	}
	for n.parent != nil && n == n.parent.left {
		n = n.parent
	}
	it.current = n.parent
}
