/*
Package persistent provides an immutable, versioned ordered map with O(log n)
rank queries.  Every mutating operation returns a new Map value; the old
version stays valid and unchanged, and the two versions share every subtree
the mutation didn't touch.  Maps can optionally be flushed to, and loaded
from, anything that can store named blobs: a filesystem, KV store, or blob
store.

Uses

- Cheap snapshots: keep any number of historical versions for the cost of
their differences

- Order statistics: the i-th smallest key, or a key's sorted position, in
O(log n) via the per-node subtree-size augmentation

- Diffing of versions, skipping shared subtrees, integrates CDC/streaming

- Copy-on-write alternative to the builtin map when readers must never see a
writer's changes

How it works

The tree beneath the Map façade is a weight-balanced binary search tree with
a subtree-size count on every node.  Nodes are never modified after
construction: an insert or delete rebuilds only the ancestors of the changed
position (path copying), rebalancing with single or double rotations as it
goes, so a mutation allocates O(log n) nodes and shares the rest.  The same
size counts that keep the tree balanced drive rank-select and key-rank, so
random access by sorted position needs no extra bookkeeping.

Concurrency

A Map value can be handed to another goroutine as-is; both copies then evolve
independently, sharing all unmodified subtrees.  Any number of goroutines may
read any number of versions concurrently without locks, because the nodes
they reach are immutable.  What the package does not arbitrate is multiple
goroutines assigning through one shared Map variable; serialize that variable
yourself, or give each writer its own version and merge results explicitly.
Likewise, flushes of maps that share structure should not run concurrently
with each other.

Persistence

MakeRoot writes a version's nodes into a Persist store under their blake2b
content hashes and returns a small Root handle; Root.LoadMap materializes the
version back.  Unchanged subtrees hash to the names they were already stored
under, so flushing a descendant version stores only what changed, and a
shared NodeCache makes reloaded versions share memory the way the originals
did.
*/
package persistent
