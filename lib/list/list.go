package list

import "iter"

// chunkSize is the number of nodes allocated at once. Chunks are never
// resized, which keeps node addresses stable.
const chunkSize = 64

// Handle identifies a node of a List. The zero Handle (Nil) never refers to
// a node.
type Handle uint32

// Nil is the handle returned when there is no node (empty list, end of traversal).
const Nil Handle = 0

// node is a single arena cell
type node[T any] struct {
	value T
	prev  Handle
	next  Handle // also used to chain the free-list
	used  bool
}

// List is an arena backed doubly-linked list
type List[T any] struct {
	chunks    []*[chunkSize]node[T]
	allocated int    // number of arena cells ever handed out
	free      Handle // head of the free-list
	head      Handle
	tail      Handle
	length    int
}

// New creates an empty list
func New[T any]() *List[T] {
	return &List[T]{}
}

// --------------------------------------------------------------------------
// Arena Management
// --------------------------------------------------------------------------

// node returns the arena cell for h
func (l *List[T]) node(h Handle) *node[T] {
	i := int(h - 1)
	return &l.chunks[i/chunkSize][i%chunkSize]
}

// alloc returns a fresh (or recycled) cell holding v
func (l *List[T]) alloc(v T) Handle {
	var h Handle
	if l.free != Nil {
		h = l.free
		l.free = l.node(h).next
	} else {
		if l.allocated/chunkSize == len(l.chunks) {
			l.chunks = append(l.chunks, new([chunkSize]node[T]))
		}
		l.allocated++
		h = Handle(l.allocated)
	}

	n := l.node(h)
	n.value = v
	n.prev = Nil
	n.next = Nil
	n.used = true
	return h
}

// release puts the cell of h back on the free-list and returns its value
func (l *List[T]) release(h Handle) T {
	n := l.node(h)
	v := n.value

	// help the go gc
	var zero T
	n.value = zero

	n.used = false
	n.prev = Nil
	n.next = l.free
	l.free = h
	return v
}

// --------------------------------------------------------------------------
// Insertion and Removal
// --------------------------------------------------------------------------

// PushFront inserts v at the front of the list and returns its handle
func (l *List[T]) PushFront(v T) Handle {
	h := l.alloc(v)
	n := l.node(h)

	n.next = l.head
	if l.head != Nil {
		l.node(l.head).prev = h
	} else {
		l.tail = h
	}
	l.head = h
	l.length++
	return h
}

// PushBack inserts v at the back of the list and returns its handle
func (l *List[T]) PushBack(v T) Handle {
	h := l.alloc(v)
	n := l.node(h)

	n.prev = l.tail
	if l.tail != Nil {
		l.node(l.tail).next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.length++
	return h
}

// PopFront removes the first element. The boolean is false if the list is empty.
func (l *List[T]) PopFront() (T, bool) {
	if l.head == Nil {
		var zero T
		return zero, false
	}
	return l.Remove(l.head), true
}

// PopBack removes the last element. The boolean is false if the list is empty.
func (l *List[T]) PopBack() (T, bool) {
	if l.tail == Nil {
		var zero T
		return zero, false
	}
	return l.Remove(l.tail), true
}

// Remove unlinks the node h and returns its value.
// h must belong to this list and must not have been removed before.
func (l *List[T]) Remove(h Handle) T {
	n := l.node(h)

	if n.prev != Nil {
		l.node(n.prev).next = n.next
	} else {
		l.head = n.next
	}

	if n.next != Nil {
		l.node(n.next).prev = n.prev
	} else {
		l.tail = n.prev
	}

	l.length--
	return l.release(h)
}

// Clear removes all elements. Handles obtained before are invalid afterward.
func (l *List[T]) Clear() {
	l.chunks = nil
	l.allocated = 0
	l.free = Nil
	l.head = Nil
	l.tail = Nil
	l.length = 0
}

// --------------------------------------------------------------------------
// Access and Traversal
// --------------------------------------------------------------------------

// Get returns a pointer to the value stored in h.
// The pointer stays valid until h is removed.
func (l *List[T]) Get(h Handle) *T {
	return &l.node(h).value
}

// Contains reports whether h currently refers to a live node of the list
func (l *List[T]) Contains(h Handle) bool {
	if h == Nil || int(h) > l.allocated {
		return false
	}
	return l.node(h).used
}

// Len returns the number of elements
func (l *List[T]) Len() int { return l.length }

// Front returns the handle of the first element (Nil if empty)
func (l *List[T]) Front() Handle { return l.head }

// Back returns the handle of the last element (Nil if empty)
func (l *List[T]) Back() Handle { return l.tail }

// Next returns the handle following h (Nil at the end)
func (l *List[T]) Next(h Handle) Handle { return l.node(h).next }

// Prev returns the handle preceding h (Nil at the start)
func (l *List[T]) Prev(h Handle) Handle { return l.node(h).prev }

// All iterates front to back. It is safe to Remove the yielded handle
// during iteration.
func (l *List[T]) All() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for h := l.head; h != Nil; {
			next := l.node(h).next
			if !yield(h, l.Get(h)) {
				return
			}
			h = next
		}
	}
}

// Backward iterates back to front. It is safe to Remove the yielded handle
// during iteration.
func (l *List[T]) Backward() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for h := l.tail; h != Nil; {
			prev := l.node(h).prev
			if !yield(h, l.Get(h)) {
				return
			}
			h = prev
		}
	}
}

// Values returns a copy of all elements front to back.
// This is O(n) and mostly useful for debugging and tests.
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.length)
	for _, v := range l.All() {
		out = append(out, *v)
	}
	return out
}
