package persistent

import (
	"fmt"
)

// Weight-balance parameters, per Adams' bounded-balance trees. A node is in
// balance while neither child's size exceeds weightDelta times the other's;
// weightRatio picks between a single and a double rotation when restoring it.
const (
	weightDelta = 3
	weightRatio = 2
)

// node is one entry of a tree version, and the root of the subtree below it.
// A node is built once and never modified; any number of map versions may
// reference it concurrently. size counts the entries in the subtree rooted
// here, including the node itself, and is what makes rank queries O(log n).
type node struct {
	key    interface{}
	value  interface{}
	left   *node
	right  *node
	size   uint64
	source *string
}

func newNode(key, value interface{}, left, right *node) *node {
	return &node{
		key:   key,
		value: value,
		left:  left,
		right: right,
		size:  1 + left.count() + right.count(),
	}
}

func (n *node) count() uint64 {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *node) height() int {
	if n == nil {
		return 0
	}
	lh, rh := n.left.height(), n.right.height()
	if lh < rh {
		lh = rh
	}
	return lh + 1
}

// rebuild replaces a node whose children have changed by at most one entry,
// restoring the weight-balance bound with a rotation where necessary. Only
// the rotated nodes are constructed; untouched subtrees are shared as-is.
func rebuild(key, value interface{}, left, right *node) *node {
	ls, rs := left.count(), right.count()
	switch {
	case ls+rs <= 1:
		return newNode(key, value, left, right)
	case rs > weightDelta*ls:
		if right.left.count() < weightRatio*right.right.count() {
			return singleLeft(key, value, left, right)
		}
		return doubleLeft(key, value, left, right)
	case ls > weightDelta*rs:
		if left.right.count() < weightRatio*left.left.count() {
			return singleRight(key, value, left, right)
		}
		return doubleRight(key, value, left, right)
	default:
		return newNode(key, value, left, right)
	}
}

func singleLeft(key, value interface{}, left, right *node) *node {
	return newNode(right.key, right.value,
		newNode(key, value, left, right.left),
		right.right)
}

func doubleLeft(key, value interface{}, left, right *node) *node {
	rl := right.left
	return newNode(rl.key, rl.value,
		newNode(key, value, left, rl.left),
		newNode(right.key, right.value, rl.right, right.right))
}

func singleRight(key, value interface{}, left, right *node) *node {
	return newNode(left.key, left.value,
		left.left,
		newNode(key, value, left.right, right))
}

func doubleRight(key, value interface{}, left, right *node) *node {
	lr := left.right
	return newNode(lr.key, lr.value,
		newNode(left.key, left.value, left.left, lr.left),
		newNode(key, value, lr.right, right))
}

// insertNode descends like an ordinary BST insert, then rebuilds every
// ancestor on the way back up. Subtrees off the search path end up shared
// between the old and new versions. When replace is false and the key is
// already present, the input tree is returned untouched.
func (m Map) insertNode(n *node, key, value interface{}, replace bool) (*node, bool, error) {
	if n == nil {
		return newNode(key, value, nil, nil), true, nil
	}
	cmp, err := m.keyOrder(key, n.key)
	if err != nil {
		return nil, false, fmt.Errorf("keyCompare: %w", err)
	}
	switch {
	case cmp < 0:
		left, inserted, err := m.insertNode(n.left, key, value, replace)
		if err != nil {
			return nil, false, err
		}
		if left == n.left {
			return n, inserted, nil
		}
		return rebuild(n.key, n.value, left, n.right), inserted, nil
	case cmp > 0:
		right, inserted, err := m.insertNode(n.right, key, value, replace)
		if err != nil {
			return nil, false, err
		}
		if right == n.right {
			return n, inserted, nil
		}
		return rebuild(n.key, n.value, n.left, right), inserted, nil
	default:
		if !replace {
			return n, false, nil
		}
		return &node{
			key:   n.key,
			value: value,
			left:  n.left,
			right: n.right,
			size:  n.size,
		}, false, nil
	}
}

// deleteNode removes key by path copying. A node with two children is
// replaced by its in-order successor, which is spliced out of the right
// subtree by deleteMin. Absent keys return the input tree untouched.
func (m Map) deleteNode(n *node, key interface{}) (*node, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	cmp, err := m.keyOrder(key, n.key)
	if err != nil {
		return nil, false, fmt.Errorf("keyCompare: %w", err)
	}
	switch {
	case cmp < 0:
		left, deleted, err := m.deleteNode(n.left, key)
		if err != nil {
			return nil, false, err
		}
		if !deleted {
			return n, false, nil
		}
		return rebuild(n.key, n.value, left, n.right), true, nil
	case cmp > 0:
		right, deleted, err := m.deleteNode(n.right, key)
		if err != nil {
			return nil, false, err
		}
		if !deleted {
			return n, false, nil
		}
		return rebuild(n.key, n.value, n.left, right), true, nil
	default:
		if n.left == nil {
			return n.right, true, nil
		}
		if n.right == nil {
			return n.left, true, nil
		}
		successorKey, successorValue, right := deleteMin(n.right)
		return rebuild(successorKey, successorValue, n.left, right), true, nil
	}
}

// deleteMin splices out the leftmost entry, rebalancing the spine on the way
// back up. Needs no comparator.
func deleteMin(n *node) (key, value interface{}, rest *node) {
	if n.left == nil {
		return n.key, n.value, n.right
	}
	key, value, left := deleteMin(n.left)
	return key, value, rebuild(n.key, n.value, left, n.right)
}

// selectNode returns the node holding the rank-th smallest key, or nil if
// rank >= n.count(). The descent is driven purely by subtree sizes.
func selectNode(n *node, rank uint64) *node {
	for n != nil {
		leftCount := n.left.count()
		switch {
		case rank < leftCount:
			n = n.left
		case rank == leftCount:
			return n
		default:
			rank -= leftCount + 1
			n = n.right
		}
	}
	return nil
}

// rankOfNode returns the zero-based sorted position of key, accumulating
// left-subtree sizes along every rightward step of the search.
func (m Map) rankOfNode(n *node, key interface{}) (uint64, bool, error) {
	var rank uint64
	for n != nil {
		cmp, err := m.keyOrder(key, n.key)
		if err != nil {
			return 0, false, fmt.Errorf("keyCompare: %w", err)
		}
		switch {
		case cmp < 0:
			n = n.left
		case cmp > 0:
			rank += n.left.count() + 1
			n = n.right
		default:
			return rank + n.left.count(), true, nil
		}
	}
	return 0, false, nil
}

// lowerBoundRank returns the rank of the first key not less than key, or the
// tree size if every key is less.
func (m Map) lowerBoundRank(n *node, key interface{}) (uint64, error) {
	var rank uint64
	for n != nil {
		cmp, err := m.keyOrder(n.key, key)
		if err != nil {
			return 0, fmt.Errorf("keyCompare: %w", err)
		}
		if cmp < 0 {
			rank += n.left.count() + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return rank, nil
}

// upperBoundRank returns the rank of the first key greater than key.
func (m Map) upperBoundRank(n *node, key interface{}) (uint64, error) {
	var rank uint64
	for n != nil {
		cmp, err := m.keyOrder(n.key, key)
		if err != nil {
			return 0, fmt.Errorf("keyCompare: %w", err)
		}
		if cmp <= 0 {
			rank += n.left.count() + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return rank, nil
}

func (n *node) iter(f func(key, value interface{}) error) error {
	if n == nil {
		return nil
	}
	if err := n.left.iter(f); err != nil {
		return err
	}
	if err := f(n.key, n.value); err != nil {
		return err
	}
	return n.right.iter(f)
}

// validateNode panics if the subtree rooted at n violates the size
// augmentation, local key order, or weight-balance invariants. Such a breach
// is a bug in this package, not a recoverable condition: every other version
// sharing the subtree would return answers inconsistent with its contract.
func (m Map) validateNode(n *node) {
	if n == nil {
		return
	}
	if n.size != 1+n.left.count()+n.right.count() {
		panic(fmt.Sprintf("node %p size %d inconsistent with children (left %d, right %d)",
			n, n.size, n.left.count(), n.right.count()))
	}
	if n.left != nil {
		cmp, err := m.keyOrder(n.left.key, n.key)
		if err != nil {
			panic(err)
		}
		if cmp >= 0 {
			panic(fmt.Sprintf("node %p left key %v >= %v", n, n.left.key, n.key))
		}
	}
	if n.right != nil {
		cmp, err := m.keyOrder(n.key, n.right.key)
		if err != nil {
			panic(err)
		}
		if cmp >= 0 {
			panic(fmt.Sprintf("node %p right key %v <= %v", n, n.right.key, n.key))
		}
	}
	ls, rs := n.left.count(), n.right.count()
	if ls+rs > 1 && (rs > weightDelta*ls || ls > weightDelta*rs) {
		panic(fmt.Sprintf("node %p out of balance: left %d, right %d", n, ls, rs))
	}
	m.validateNode(n.left)
	m.validateNode(n.right)
}

func (n *node) string(indent string) string {
	if n == nil {
		return ""
	}
	res := n.left.string(indent + "   ")
	res += fmt.Sprintf("%s%v: %v (n=%d)\n", indent, n.key, n.value, n.size)
	res += n.right.string(indent + "   ")
	return res
}

func (m Map) dump() {
	if m.root == nil {
		fmt.Printf("NIL\n")
		return
	}
	fmt.Printf("{\n%s}\n", m.root.string("   "))
}
