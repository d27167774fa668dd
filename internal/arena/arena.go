// Package arena provides a slot allocator with stable keys.
//
// Values are stored in fixed-size chunks, so a pointer returned by Get stays
// valid for the lifetime of the arena even as more values are inserted.
package arena

import "fmt"

const chunkBits = 8

const chunkSize = 1 << chunkBits

// Key identifies a slot. The zero Key is the null key and never refers to a
// value.
type Key uint32

// IsNull reports whether k is the null key.
func (k Key) IsNull() bool { return k == 0 }

// Arena stores values of type T addressed by Key.
//
// Arena is not safe for concurrent use.
type Arena[T any] struct {
	chunks [][]T
	n      int
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert appends v and returns its key.
func (a *Arena[T]) Insert(v T) Key {
	ci := a.n >> chunkBits
	if ci == len(a.chunks) {
		a.chunks = append(a.chunks, make([]T, 0, chunkSize))
	}
	a.chunks[ci] = append(a.chunks[ci], v)
	a.n++
	return Key(a.n)
}

// Get returns a pointer to the value for k. It panics if k was not returned
// by Insert on this arena.
func (a *Arena[T]) Get(k Key) *T {
	if k == 0 || int(k) > a.n {
		panic(fmt.Sprintf("arena: unknown key %d (len %d)", k, a.n))
	}
	i := int(k) - 1
	return &a.chunks[i>>chunkBits][i&(chunkSize-1)]
}

// Lookup is like Get but reports a missing key instead of panicking.
func (a *Arena[T]) Lookup(k Key) (*T, bool) {
	if k == 0 || int(k) > a.n {
		return nil, false
	}
	return a.Get(k), true
}

// Len returns the number of values inserted.
func (a *Arena[T]) Len() int { return a.n }

// Range calls fn for every value in insertion order until fn returns false.
func (a *Arena[T]) Range(fn func(k Key, v *T) bool) {
	for i := 0; i < a.n; i++ {
		if !fn(Key(i+1), &a.chunks[i>>chunkBits][i&(chunkSize-1)]) {
			return
		}
	}
}
