package persistent

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Map is one version of an ordered map. It holds a single reference to an
// immutable tree, so copying a Map is O(1) and every mutating operation
// returns a new Map that shares all unmodified subtrees with its receiver.
// The zero Map is not usable; construct one with NewInMemory,
// NewInMemoryWithKeyOrder, or Root.LoadMap.
type Map struct {
	root      *node
	keyOrder  KeyOrder
	marshal   func(interface{}) ([]byte, error)
	unmarshal func([]byte, interface{}) error
	zeroKey   interface{}
	zeroValue interface{}
	persist   Persist
	nodeCache NodeCache
}

// entry represents a key and value in the tree.
type entry struct {
	Key   interface{}
	Value interface{}
}

// Persist is the interface for loading and storing serialized tree nodes.
// The given string identity corresponds to the content, which is immutable
// (never modified once stored).
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

// StoreConfig controls how nodes are persisted and loaded.
type StoreConfig struct {
	// KeysLike is an instance of the type keys will be deserialized as.
	KeysLike interface{}

	// ValuesLike is an instance of the type values will be deserialized as.
	ValuesLike interface{}

	// StoreImmutablePartsWith is used to store and load serialized nodes.
	StoreImmutablePartsWith Persist

	// KeyOrder overrides the comparator; nil means DefaultKeyCompare.
	KeyOrder KeyOrder

	// Unmarshal function for keys and values, defaults to JSON.
	Unmarshal func([]byte, interface{}) error

	// Marshal function for keys and values, defaults to JSON.
	Marshal func(interface{}) ([]byte, error)

	// NodeCache caches deserialized nodes and may be shared across trees.
	// Loads served by the cache return the same in-memory node, so
	// structural sharing between stored versions survives a round trip.
	NodeCache NodeCache
}

// Root identifies a version of a map whose nodes are accessible in the
// persistent store. Link is nil for the empty map.
type Root struct {
	Link *string
	Size uint64
}

// NewInMemory returns an empty map for use as an in-memory data structure,
// ordered by DefaultKeyCompare.
func NewInMemory() Map {
	return Map{
		keyOrder:  DefaultKeyCompare(json.Marshal),
		marshal:   json.Marshal,
		unmarshal: json.Unmarshal,
	}
}

// NewInMemoryWithKeyOrder returns an empty map ordered by the given
// comparator, which must be a strict weak ordering over every key the map
// will hold.
func NewInMemoryWithKeyOrder(keyOrder KeyOrder) Map {
	m := NewInMemory()
	m.keyOrder = keyOrder
	return m
}

// Size returns the number of entries in this version.
func (m Map) Size() uint64 {
	return m.root.count()
}

// IsEmpty reports whether this version has no entries.
func (m Map) IsEmpty() bool {
	return m.root == nil
}

// Get returns the value for the given key, or ok==false if absent.
func (m Map) Get(key interface{}) (value interface{}, ok bool, err error) {
	n := m.root
	for n != nil {
		cmp, err := m.keyOrder(key, n.key)
		if err != nil {
			return nil, false, fmt.Errorf("keyCompare: %w", err)
		}
		switch {
		case cmp < 0:
			n = n.left
		case cmp > 0:
			n = n.right
		default:
			return n.value, true, nil
		}
	}
	return nil, false, nil
}

// Contains reports whether the given key is present.
func (m Map) Contains(key interface{}) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

// Insert returns a new version with the value set for the given key,
// replacing any existing value. inserted reports whether the key was newly
// added (false means an existing entry was updated). The receiver is
// unaffected.
func (m Map) Insert(key, value interface{}) (_ Map, inserted bool, _ error) {
	root, inserted, err := m.insertNode(m.root, key, value, true)
	if err != nil {
		return Map{}, false, err
	}
	m.root = root
	return m, inserted, nil
}

// InsertIfAbsent is Insert with a keep-existing conflict policy: if the key
// is already present the receiver is returned unchanged, without copying any
// part of the tree, and inserted is false.
func (m Map) InsertIfAbsent(key, value interface{}) (_ Map, inserted bool, _ error) {
	root, inserted, err := m.insertNode(m.root, key, value, false)
	if err != nil {
		return Map{}, false, err
	}
	m.root = root
	return m, inserted, nil
}

// Delete returns a new version without the given key. If the key is absent,
// deleted is false and the receiver is returned unchanged.
func (m Map) Delete(key interface{}) (_ Map, deleted bool, _ error) {
	root, deleted, err := m.deleteNode(m.root, key)
	if err != nil {
		return Map{}, false, err
	}
	m.root = root
	return m, deleted, nil
}

// AtRank returns the key and value at the given zero-based position in
// sorted order. Returns ErrOutOfRange unless 0 <= rank < Size().
func (m Map) AtRank(rank uint64) (key, value interface{}, _ error) {
	n := selectNode(m.root, rank)
	if n == nil {
		return nil, nil, fmt.Errorf("rank %d with size %d: %w", rank, m.Size(), ErrOutOfRange)
	}
	return n.key, n.value, nil
}

// RankOf returns the zero-based sorted position of the given key, or
// ErrNotFound if absent.
func (m Map) RankOf(key interface{}) (uint64, error) {
	rank, found, err := m.rankOfNode(m.root, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("key %v: %w", key, ErrNotFound)
	}
	return rank, nil
}

// Find returns a cursor positioned at the given key, or the end cursor and
// found==false if the key is absent.
func (m Map) Find(key interface{}) (Cursor, bool, error) {
	rank, found, err := m.rankOfNode(m.root, key)
	if err != nil {
		return Cursor{}, false, err
	}
	if !found {
		return m.End(), false, nil
	}
	return Cursor{m.root, rank}, true, nil
}

// LowerBound returns a cursor at the first entry whose key is not less than
// the given key, or the end cursor if there is none.
func (m Map) LowerBound(key interface{}) (Cursor, error) {
	rank, err := m.lowerBoundRank(m.root, key)
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{m.root, rank}, nil
}

// UpperBound returns a cursor at the first entry whose key is greater than
// the given key, or the end cursor if there is none.
func (m Map) UpperBound(key interface{}) (Cursor, error) {
	rank, err := m.upperBoundRank(m.root, key)
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{m.root, rank}, nil
}

// Begin returns a cursor at the smallest key of this version.
func (m Map) Begin() Cursor {
	return Cursor{m.root, 0}
}

// End returns the cursor one past the largest key of this version.
func (m Map) End() Cursor {
	return Cursor{m.root, m.root.count()}
}

// Iter iterates over the entries in sorted key order, invoking the given
// callback for every entry's key and value.
func (m Map) Iter(f func(key, value interface{}) error) error {
	return m.root.iter(f)
}

// keys returns the keys of this version's entries as an array.
func (m Map) keys() ([]interface{}, error) {
	array := make([]interface{}, 0, m.Size())
	err := m.Iter(func(key, _ interface{}) error {
		array = append(array, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return array, nil
}

// toSlice returns an array of this version's entries.
func (m Map) toSlice() ([]entry, error) {
	array := make([]entry, 0, m.Size())
	err := m.Iter(func(key, value interface{}) error {
		array = append(array, entry{key, value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return array, nil
}

// Equal reports whether both versions hold the same keys with the same
// values, by content rather than by shared structure. Values are compared
// with reflect.DeepEqual.
func (m Map) Equal(o Map) (bool, error) {
	if m.root == o.root {
		return true, nil
	}
	if m.Size() != o.Size() {
		return false, nil
	}
	a := newTreeStack(m.root)
	b := newTreeStack(o.root)
	for {
		skipShared(&a, &b)
		ak, av, aok := a.next()
		bk, bv, bok := b.next()
		if !aok {
			return !bok, nil
		}
		if !bok {
			return false, nil
		}
		cmp, err := m.keyOrder(ak, bk)
		if err != nil {
			return false, fmt.Errorf("keyCompare: %w", err)
		}
		if cmp != 0 || !reflect.DeepEqual(av, bv) {
			return false, nil
		}
	}
}

// Order compares two versions lexicographically over their sorted key-value
// sequences: keys by the map's comparator, tied keys by DefaultKeyCompare
// over the values, and a shorter prefix before a longer one.
func (m Map) Order(o Map) (int, error) {
	if m.root == o.root {
		return 0, nil
	}
	valueOrder := DefaultKeyCompare(m.marshal)
	a := newTreeStack(m.root)
	b := newTreeStack(o.root)
	for {
		skipShared(&a, &b)
		ak, av, aok := a.next()
		bk, bv, bok := b.next()
		if !aok && !bok {
			return 0, nil
		}
		if !aok {
			return -1, nil
		}
		if !bok {
			return 1, nil
		}
		cmp, err := m.keyOrder(ak, bk)
		if err != nil {
			return 0, fmt.Errorf("keyCompare: %w", err)
		}
		if cmp != 0 {
			return cmp, nil
		}
		cmp, err = valueOrder(av, bv)
		if err != nil {
			return 0, fmt.Errorf("valueCompare: %w", err)
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
}

// MakeRoot makes a new persistent root, after ensuring all this version's
// nodes have been written to the persistent store.
func (m Map) MakeRoot(ctx context.Context) (*Root, error) {
	if m.root == nil {
		return &Root{nil, 0}, nil
	}
	link, err := m.flush(ctx)
	if err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return &Root{&link, m.Size()}, nil
}

// flush serializes this version's not-yet-stored nodes into the persistent
// store and returns the root's content address.
func (m Map) flush(ctx context.Context) (string, error) {
	if m.persist == nil {
		return "", fmt.Errorf("no persistence mechanism set; set StoreConfig.StoreImmutablePartsWith")
	}
	storeQ := make(chan func() error)
	n := 40
	gate := make(chan interface{}, n)
	for i := 0; i < n; i++ {
		gate <- nil
	}
	seLock := sync.Mutex{}
	var firstStoreError error
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		for {
			f := <-storeQ
			<-gate
			if f == nil {
				break
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { gate <- nil }()
				seLock.Lock()
				if firstStoreError != nil {
					seLock.Unlock()
					return
				}
				seLock.Unlock()
				err := f()
				if err != nil {
					seLock.Lock()
					if firstStoreError == nil {
						firstStoreError = err
					}
					seLock.Unlock()
				}
			}()
		}
		wg.Done()
	}()

	link, err := m.root.store(ctx, m.persist, m.nodeCache, m.marshal, storeQ)
	close(storeQ)
	wg.Wait()
	if err != nil {
		return "", err
	}
	if firstStoreError != nil {
		return "", firstStoreError
	}
	return link, nil
}

// LoadMap loads a map version from a persistent store. Nodes already present
// in the configured NodeCache are shared with other loaded versions instead
// of being reloaded.
func (r *Root) LoadMap(ctx context.Context, config *StoreConfig) (Map, error) {
	m := Map{
		keyOrder:  config.KeyOrder,
		marshal:   config.Marshal,
		unmarshal: config.Unmarshal,
		zeroKey:   config.KeysLike,
		zeroValue: config.ValuesLike,
		persist:   config.StoreImmutablePartsWith,
		nodeCache: config.NodeCache,
	}
	if m.marshal == nil {
		m.marshal = json.Marshal
	}
	if m.unmarshal == nil {
		m.unmarshal = json.Unmarshal
	}
	if m.keyOrder == nil {
		m.keyOrder = DefaultKeyCompare(m.marshal)
	}
	if r.Link != nil {
		root, err := m.loadPersisted(ctx, *r.Link)
		if err != nil {
			return Map{}, fmt.Errorf("load root: %w", err)
		}
		m.root = root
	}
	if m.root.count() != r.Size {
		return Map{}, fmt.Errorf("root size %d inconsistent with loaded tree size %d", r.Size, m.root.count())
	}
	if err := m.checkRoot(); err != nil {
		return Map{}, fmt.Errorf("checkRoot: %w", err)
	}
	return m, nil
}

// checkRoot guards against loading a tree with a different comparator than
// it was stored with, which would quietly break every ordering guarantee.
func (m Map) checkRoot() error {
	n := m.root
	if n == nil {
		return nil
	}
	if n.left != nil {
		cmp, err := m.keyOrder(n.left.key, n.key)
		if err != nil {
			return fmt.Errorf("key order: %w", err)
		}
		if cmp >= 0 {
			return fmt.Errorf("inconsistent key order function; ensure using same function as source")
		}
	}
	if n.right != nil {
		cmp, err := m.keyOrder(n.key, n.right.key)
		if err != nil {
			return fmt.Errorf("key order: %w", err)
		}
		if cmp >= 0 {
			return fmt.Errorf("inconsistent key order function; ensure using same function as source")
		}
	}
	return nil
}
