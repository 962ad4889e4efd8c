// Package arena implements a generational slot map: a single owning store of
// values addressed by stable keys. Removing a value invalidates its key and
// only its key; a freed slot is reused under a new generation, so stale keys
// never resolve to the slot's next occupant.
package arena

import "fmt"

// Key addresses a value in an Arena. The zero Key never resolves.
type Key struct {
	index      uint32
	generation uint32
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) String() string {
	return fmt.Sprintf("%dv%d", k.index, k.generation)
}

type slot[T any] struct {
	value      T
	generation uint32 // odd while occupied
}

// Arena owns values of type T.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	len   int
}

// New returns an empty arena with room for capacity values.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{slots: make([]slot[T], 0, capacity)}
}

// Insert moves v into the arena and returns its key.
func (a *Arena[T]) Insert(v T) Key {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.generation++
	s.value = v
	a.len++
	return Key{index: idx + 1, generation: s.generation}
}

func (a *Arena[T]) lookup(k Key) *slot[T] {
	if k.index == 0 || int(k.index) > len(a.slots) {
		return nil
	}
	s := &a.slots[k.index-1]
	if s.generation != k.generation || s.generation%2 == 0 {
		return nil
	}
	return s
}

// Get returns the value for k.
func (a *Arena[T]) Get(k Key) (T, bool) {
	if s := a.lookup(k); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// MustGet returns the value for k, or panics if k does not resolve.
func (a *Arena[T]) MustGet(k Key) T {
	s := a.lookup(k)
	if s == nil {
		panic(fmt.Sprintf("arena: dangling key %s", k))
	}
	return s.value
}

// Set replaces the value stored under k. It reports false if k does not
// resolve.
func (a *Arena[T]) Set(k Key, v T) bool {
	s := a.lookup(k)
	if s == nil {
		return false
	}
	s.value = v
	return true
}

// Contains reports whether k resolves.
func (a *Arena[T]) Contains(k Key) bool {
	return a.lookup(k) != nil
}

// Remove takes the value for k out of the arena, invalidating k.
func (a *Arena[T]) Remove(k Key) (T, bool) {
	var zero T
	s := a.lookup(k)
	if s == nil {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.generation++
	a.free = append(a.free, k.index-1)
	a.len--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.len
}

// Clear removes every value. All outstanding keys are invalidated.
func (a *Arena[T]) Clear() {
	var zero T
	a.free = a.free[:0]
	for i := range a.slots {
		s := &a.slots[i]
		if s.generation%2 == 1 {
			s.generation++
			s.value = zero
		}
		a.free = append(a.free, uint32(i))
	}
	a.len = 0
}
