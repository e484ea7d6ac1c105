// This file provides a lock-free Multi-Producer Single-Consumer (MPSC) queue.
//
// Features and Guarantees:
//
//   - Lock-Free writes: producers append with atomic operations only. The mutex is
//     taken only when the consumer has gone to sleep and must be woken
//   - Unbounded Size: the queue grows as needed, limited only by available memory
//   - Single Consumer: values are delivered to one goroutine via the Recv() channel
//   - Drain on Close: every Push that returned true is delivered before Recv() is closed,
//     even when it raced with Close
//   - No Strict FIFO Guarantee across producers: ordering is decided by which producer
//     links its node first
package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node represents a single element in the queue
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// LockFreeMPSC is a linked list of nodes with a sentinel head. Producers link
// new nodes at the tail with CAS, the consumer goroutine advances the head.
type LockFreeMPSC[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan *T
	consumer sync.WaitGroup

	closed   atomic.Bool  // rejects new pushes
	inflight atomic.Int64 // pushes that passed the closed check and have not linked yet
	sealed   atomic.Bool  // closed and no push in flight, the consumer may stop once empty

	// wakes the consumer when it ran out of items
	mu       sync.Mutex
	cond     *sync.Cond
	sleeping atomic.Bool
}

// NewLockFreeMPSC creates a new queue and starts its consumer goroutine
func NewLockFreeMPSC[T any]() *LockFreeMPSC[T] {
	sentinel := &node[T]{}

	q := &LockFreeMPSC[T]{
		out: make(chan *T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push adds an item to the queue.
// Returns false if value is nil or the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *LockFreeMPSC[T]) Push(value *T) bool {
	if value == nil {
		return false
	}

	// Close waits for inflight to drop to zero before it seals the queue, so a
	// push that got past this check is always linked before the consumer stops
	q.inflight.Add(1)
	defer q.inflight.Add(-1)
	if q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}

	var backoff uint8 = 0
	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// may fail if another producer already helped, which is fine
				q.tail.CompareAndSwap(tailNode, newNode)
				q.wake()
				return true
			}
		} else {
			// help a producer that linked its node but did not move the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// spin briefly, then yield
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// wake signals the consumer if it is asleep. The consumer sets sleeping before
// its final emptiness check, so either it sees the new node or this sees the flag.
func (q *LockFreeMPSC[T]) wake() {
	if !q.sleeping.Load() {
		return
	}
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// consume moves items from the linked list to the output channel
func (q *LockFreeMPSC[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			value := next.value
			q.head.Store(next)
			q.out <- value

			// help go gc
			next.value = nil
		}

		// every accepted push is linked before sealed is set, so an empty
		// list observed after sealed is final
		if !hasItems && q.sealed.Load() && q.head.Load().next.Load() == nil {
			return
		}

		if !hasItems {
			q.mu.Lock()
			q.sleeping.Store(true)
			if q.head.Load().next.Load() == nil && !q.sealed.Load() {
				q.cond.Wait()
			}
			q.sleeping.Store(false)
			q.mu.Unlock()
		}
	}
}

// Recv returns a receive-only channel for consuming from the queue.
// The channel is closed once the queue is closed and drained.
func (q *LockFreeMPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close prevents further writes. It waits for pushes that are still linking
// their node, and everything queued is still delivered.
func (q *LockFreeMPSC[T]) Close() {
	q.closed.Store(true)
	for q.inflight.Load() > 0 {
		runtime.Gosched()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.sealed.Store(true)
	q.cond.Signal()
}

// Len returns an approximate count of queued items.
// This is O(n) and should only be used for debugging.
func (q *LockFreeMPSC[T]) Len() int {
	count := 0
	for n := q.head.Load().next.Load(); n != nil; n = n.next.Load() {
		count++
	}
	return count
}
