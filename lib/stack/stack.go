package stack

import (
	"iter"
	"runtime"
	"sync/atomic"
)

// node represents a single element of the stack. next is immutable once the
// node is published.
type node[T any] struct {
	value T
	next  *node[T]
}

// Stack is a lock-free append-only stack
type Stack[T any] struct {
	top    atomic.Pointer[node[T]]
	length atomic.Int64
}

// New creates an empty stack
func New[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push prepends value and returns a reference to the stored copy.
// The reference is usable immediately and never invalidated.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Stack[T]) Push(value T) *T {
	n := &node[T]{value: value}

	var backoff uint8 = 0
	for {
		top := s.top.Load()
		n.next = top
		if s.top.CompareAndSwap(top, n) {
			s.length.Add(1)
			return &n.value
		}

		// under contention give other pushers a chance to finish
		if backoff < 4 {
			backoff++
			continue
		}
		runtime.Gosched()
	}
}

// Range calls fn for every value from the top at call time down to the first
// pushed value, stopping early if fn returns false.
//
// Thread-safety: This method is thread-safe and can be called concurrently with Push.
func (s *Stack[T]) Range(fn func(*T) bool) {
	for n := s.top.Load(); n != nil; n = n.next {
		if !fn(&n.value) {
			return
		}
	}
}

// All returns an iterator over the values, see Range
func (s *Stack[T]) All() iter.Seq[*T] {
	return s.Range
}

// Len returns the number of pushed values
func (s *Stack[T]) Len() int {
	return int(s.length.Load())
}
