package persistent

import (
	"context"
	"encoding/base64"
	"fmt"
	"reflect"

	"github.com/minio/blake2b-simd"
)

// loadPersisted materializes the stored subtree named by the given content
// address. The NodeCache short-circuits to the already-loaded node, which
// makes subtrees shared between stored versions come back as shared memory
// too. The stored subtree size is checked against the recomputed one; a
// mismatch means the store is corrupt, reported as an error rather than a
// silently wrong rank index.
func (m *Map) loadPersisted(ctx context.Context, link string) (*node, error) {
	if m.nodeCache != nil {
		if cached, ok := m.nodeCache.Get(link); ok {
			return cached.(*node), nil
		}
	}
	nodeBytes, err := m.persist.Load(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", link, err)
	}
	wire, err := unmarshalNode(nodeBytes)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", link, err)
	}

	if m.zeroKey == nil {
		return nil, fmt.Errorf("cannot unmarshal key in %s: set StoreConfig.KeysLike", link)
	}
	keyType := reflect.TypeOf(m.zeroKey)
	keyCopy := reflect.New(keyType)
	if err = m.unmarshal(wire.Key, keyCopy.Interface()); err != nil {
		return nil, fmt.Errorf("cannot unmarshal key in %s: %w", link, err)
	}
	key := keyCopy.Elem().Interface()

	var value interface{}
	if m.zeroValue != nil {
		valueType := reflect.TypeOf(m.zeroValue)
		valueCopy := reflect.New(valueType)
		if err = m.unmarshal(wire.Value, valueCopy.Interface()); err != nil {
			return nil, fmt.Errorf("cannot unmarshal value in %s: %w", link, err)
		}
		value = valueCopy.Elem().Interface()
	}

	var left, right *node
	if wire.Left != "" {
		if left, err = m.loadPersisted(ctx, wire.Left); err != nil {
			return nil, err
		}
	}
	if wire.Right != "" {
		if right, err = m.loadPersisted(ctx, wire.Right); err != nil {
			return nil, err
		}
	}

	n := newNode(key, value, left, right)
	if n.size != wire.Size {
		return nil, fmt.Errorf("node %s stored size %d inconsistent with children (computed %d)",
			link, wire.Size, n.size)
	}
	n.source = &link
	if m.nodeCache != nil {
		m.nodeCache.Add(link, n)
	}
	return n, nil
}

// store writes the subtree rooted at n into the persistent store, bottom-up,
// and returns its content address. Subtrees that already have a source (they
// were loaded from, or previously flushed to, the store) are skipped whole:
// their content cannot have changed. Store round trips are parallelized
// through storeQ; hashing stays on the calling goroutine since parents need
// their children's addresses.
func (n *node) store(ctx context.Context, persist Persist, cache NodeCache, marshal func(interface{}) ([]byte, error), storeQ chan<- func() error) (string, error) {
	if n == nil {
		return "", nil
	}
	if n.source != nil {
		return *n.source, nil
	}
	leftLink, err := n.left.store(ctx, persist, cache, marshal, storeQ)
	if err != nil {
		return "", err
	}
	rightLink, err := n.right.store(ctx, persist, cache, marshal, storeQ)
	if err != nil {
		return "", err
	}
	encoded, err := marshalNode(n, leftLink, rightLink, marshal)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	hashBytes := blake2b.Sum256(encoded)
	hash := base64.RawURLEncoding.EncodeToString(hashBytes[:])
	if cache != nil && cache.Contains(hash) {
		n.source = &hash
		return hash, nil
	}
	storeQ <- func() error {
		err := persist.Store(ctx, hash, encoded)
		if err != nil {
			return fmt.Errorf("persist store: %w", err)
		}
		return nil
	}
	if cache != nil {
		cache.Add(hash, n)
	}
	n.source = &hash
	return hash, nil
}
