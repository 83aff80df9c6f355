package persistent

import "fmt"

// Cursor is an ordinal position over one fixed map version: a root reference
// plus a zero-based rank. Advancing or retreating only changes the rank, so
// cursors never mutate the tree, and a cursor stays usable indefinitely no
// matter what happens to other versions; the tree it points into never
// changes. Dereferencing costs one O(log n) rank-select descent.
//
// Cursors over different versions are not comparable: Equal is only
// meaningful between cursors obtained from the same Map value.
type Cursor struct {
	root *node
	rank uint64
}

// Advance moves the cursor to the next entry in sorted order. Advancing the
// end cursor leaves it invalid.
func (c *Cursor) Advance() {
	c.rank++
}

// Retreat moves the cursor to the previous entry in sorted order. Retreating
// the begin cursor leaves it invalid.
func (c *Cursor) Retreat() {
	c.rank--
}

// Valid reports whether the cursor is positioned on an entry, as opposed to
// the end position or past either end.
func (c Cursor) Valid() bool {
	return c.rank < c.root.count()
}

// Rank returns the cursor's zero-based position.
func (c Cursor) Rank() uint64 {
	return c.rank
}

// Get returns the key and value at the cursor's position, or ErrOutOfRange
// if the cursor is not Valid.
func (c Cursor) Get() (key, value interface{}, _ error) {
	n := selectNode(c.root, c.rank)
	if n == nil {
		return nil, nil, fmt.Errorf("cursor rank %d with size %d: %w", c.rank, c.root.count(), ErrOutOfRange)
	}
	return n.key, n.value, nil
}

// Equal reports whether two cursors over the same version are at the same
// position. Cursors over different versions are never equal.
func (c Cursor) Equal(o Cursor) bool {
	return c.root == o.root && c.rank == o.rank
}
