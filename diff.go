package persistent

import (
	"fmt"
	"reflect"
)

// iterFrame is one pending piece of an in-order walk: a subtree that has not
// been descended into yet (expanded == false), or a node whose left subtree
// has been walked and whose own entry is due next (expanded == true).
type iterFrame struct {
	n        *node
	expanded bool
}

type treeStack struct {
	frames []iterFrame
}

func newTreeStack(root *node) treeStack {
	var s treeStack
	s.pushTree(root)
	return s
}

func (s *treeStack) pushTree(n *node) {
	if n != nil {
		s.frames = append(s.frames, iterFrame{n, false})
	}
}

func (s *treeStack) top() *iterFrame {
	if len(s.frames) == 0 {
		return nil
	}
	return &s.frames[len(s.frames)-1]
}

func (s *treeStack) popTop() {
	s.frames = s.frames[:len(s.frames)-1]
}

// next yields the next entry in sorted order, expanding subtrees lazily so
// that skipShared can discard whole shared subtrees before they are entered.
func (s *treeStack) next() (key, value interface{}, ok bool) {
	for {
		top := s.top()
		if top == nil {
			return nil, nil, false
		}
		if !top.expanded {
			top.expanded = true
			s.pushTree(top.n.left)
			continue
		}
		n := top.n
		s.popTop()
		s.pushTree(n.right)
		return n.key, n.value, true
	}
}

// skipShared discards subtrees both walks are about to enter when they are
// the same node in memory: shared structure yields identical entries on both
// sides, so neither walk needs to visit it. Only callable when both walks
// are between entries.
func skipShared(a, b *treeStack) {
	for {
		fa, fb := a.top(), b.top()
		if fa == nil || fb == nil || fa.expanded || fb.expanded || fa.n != fb.n {
			return
		}
		a.popTop()
		b.popTop()
	}
}

// DiffIter invokes the given callback for every entry that differs from the
// given older version. Invocation with added==removed==false signifies an
// entry whose value has changed. The iteration stops early if the callback
// returns keepGoing==false or an error. Subtrees shared between the two
// versions are skipped without being visited, so diffing two versions that
// differ by a few mutations costs O(changed · log n), not O(n).
func (m Map) DiffIter(
	old Map,
	f func(added, removed bool,
		key, addedValue, removedValue interface{},
	) (bool, error),
) error {
	newStack := newTreeStack(m.root)
	oldStack := newTreeStack(old.root)
	var (
		newKey, newValue interface{}
		newOk            bool
		oldKey, oldValue interface{}
		oldOk            bool
	)
	advanceNew, advanceOld := true, true
	for {
		if advanceNew && advanceOld {
			skipShared(&newStack, &oldStack)
		}
		if advanceNew {
			newKey, newValue, newOk = newStack.next()
			advanceNew = false
		}
		if advanceOld {
			oldKey, oldValue, oldOk = oldStack.next()
			advanceOld = false
		}
		switch {
		case !newOk && !oldOk:
			return nil
		case !oldOk:
			keepGoing, err := f(true, false, newKey, newValue, nil)
			if err != nil {
				return fmt.Errorf("callback: %w", err)
			}
			if !keepGoing {
				return nil
			}
			advanceNew = true
		case !newOk:
			keepGoing, err := f(false, true, oldKey, nil, oldValue)
			if err != nil {
				return fmt.Errorf("callback: %w", err)
			}
			if !keepGoing {
				return nil
			}
			advanceOld = true
		default:
			cmp, err := m.keyOrder(newKey, oldKey)
			if err != nil {
				return fmt.Errorf("keyCompare: %w", err)
			}
			if cmp < 0 {
				keepGoing, err := f(true, false, newKey, newValue, nil)
				if err != nil {
					return fmt.Errorf("callback: %w", err)
				}
				if !keepGoing {
					return nil
				}
				advanceNew = true
			} else if cmp > 0 {
				keepGoing, err := f(false, true, oldKey, nil, oldValue)
				if err != nil {
					return fmt.Errorf("callback: %w", err)
				}
				if !keepGoing {
					return nil
				}
				advanceOld = true
			} else {
				if !reflect.DeepEqual(newValue, oldValue) {
					keepGoing, err := f(false, false, newKey, newValue, oldValue)
					if err != nil {
						return fmt.Errorf("callback: %w", err)
					}
					if !keepGoing {
						return nil
					}
				}
				advanceNew = true
				advanceOld = true
			}
		}
	}
}
