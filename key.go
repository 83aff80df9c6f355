package persistent

import (
	"bytes"
	"fmt"
	"reflect"
)

// KeyOrder compares two keys, returning a negative number if a sorts before
// b, a positive number if after, and 0 if they are equal. It must implement
// a strict weak ordering (irreflexive, transitive, consistent); the tree's
// ordering and rank invariants do not survive anything weaker.
type KeyOrder func(a, b interface{}) (int, error)

// A Key can determine its own sort order relative to another Key.
type Key interface {
	// Order returns -1 if the argument is less than this one, 1 if
	// greater, and 0 if equal.
	Order(Key) int
}

// DefaultKeyCompare orders the builtin comparable types directly and
// anything else by comparing its marshaled form.
func DefaultKeyCompare(marshaler func(interface{}) ([]byte, error)) KeyOrder {
	return func(i, i2 interface{}) (int, error) {
		switch v := i.(type) {
		case Key:
			if v2, ok := i2.(Key); ok {
				return v.Order(v2), nil
			}
		case string:
			if v2, ok := i2.(string); ok {
				if v < v2 {
					return -1, nil
				} else if v > v2 {
					return 1, nil
				}
				return 0, nil
			}
		case int:
			if v2, ok := i2.(int); ok {
				if v < v2 {
					return -1, nil
				} else if v > v2 {
					return 1, nil
				}
				return 0, nil
			}
		case uint:
			if v2, ok := i2.(uint); ok {
				if v < v2 {
					return -1, nil
				} else if v > v2 {
					return 1, nil
				}
				return 0, nil
			}
		case uint64:
			if v2, ok := i2.(uint64); ok {
				if v < v2 {
					return -1, nil
				} else if v > v2 {
					return 1, nil
				}
				return 0, nil
			}
		case int64:
			if v2, ok := i2.(int64); ok {
				if v < v2 {
					return -1, nil
				} else if v > v2 {
					return 1, nil
				}
				return 0, nil
			}
		case []byte:
			if v2, ok := i2.([]byte); ok {
				return bytes.Compare(v, v2), nil
			}
		default:
			if reflect.TypeOf(v) != reflect.TypeOf(i2) {
				return -1, fmt.Errorf("don't know how to compare %T with %T; set KeyOrder or implement Key interface", i, i2)
			}
			b, err := marshaler(i)
			if err != nil {
				return -1, fmt.Errorf("marshal left: %w", err)
			}
			b2, err := marshaler(i2)
			if err != nil {
				return -1, fmt.Errorf("marshal right: %w", err)
			}
			return bytes.Compare(b, b2), nil
		}
		return -1, fmt.Errorf("don't know how to compare %T with %T; set KeyOrder or implement Key interface", i, i2)
	}
}
