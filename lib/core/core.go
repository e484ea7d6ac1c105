package core

import (
	"sync/atomic"
	"unsafe"

	"github.com/ValentinKolb/hzrd/lib/hazard"
)

// Core holds one atomically swappable pointer to the current value.
// The pointer is never nil after construction.
//
// Thread-safety: Swap, SwapPointer, CompareAndSwap and Load may be called
// concurrently. Read may be called concurrently as long as every caller passes
// its own slot.
type Core[T any] struct {
	current atomic.Pointer[T]
}

// New creates a Core whose current value is a copy of v
func New[T any](v T) *Core[T] {
	return NewFromPointer(&v)
}

// NewFromPointer creates a Core that takes ownership of p.
// p must not be nil.
func NewFromPointer[T any](p *T) *Core[T] {
	if p == nil {
		panic("core: initial value must not be nil")
	}
	c := &Core[T]{}
	c.current.Store(p)
	return c
}

// Read protects the current value through slot and returns a guard for it.
//
// The caller must own slot and must not call Read with the same slot while a
// guard obtained through it is still in use. As long as the guard is not
// released, the value it references is not reclaimed by the slot's domain.
func (c *Core[T]) Read(slot *hazard.Slot) Guard[T] {
	p := c.current.Load()
	for {
		slot.Protect(unsafe.Pointer(p))
		// the value is safe only if it was still current after it was announced
		p2 := c.current.Load()
		if p2 == p {
			return Guard[T]{value: p, slot: slot}
		}
		p = p2
	}
}

// Swap makes a copy of v the current value and returns the previous one.
// The caller is responsible for retiring the returned pointer.
func (c *Core[T]) Swap(v T) *T {
	return c.SwapPointer(&v)
}

// SwapPointer makes p the current value and returns the previous one.
// p must not be nil and must not be shared with anyone else.
func (c *Core[T]) SwapPointer(p *T) *T {
	if p == nil {
		panic("core: value must not be nil")
	}
	return c.current.Swap(p)
}

// CompareAndSwap makes p the current value if old is still the current value.
// On success the caller owns old and is responsible for retiring it.
func (c *Core[T]) CompareAndSwap(old, p *T) bool {
	if p == nil {
		panic("core: value must not be nil")
	}
	return c.current.CompareAndSwap(old, p)
}

// Load returns the current value without protecting it. It is only safe to
// dereference if no concurrent writer can retire the value, for example while
// the owner tears the Core down.
func (c *Core[T]) Load() *T {
	return c.current.Load()
}

// --------------------------------------------------------------------------
// Guard
// --------------------------------------------------------------------------

// Guard references a value protected by a hazard slot
type Guard[T any] struct {
	value *T
	slot  *hazard.Slot
}

// Value returns the protected value. The pointer must not be used after Release.
func (g Guard[T]) Value() *T {
	return g.value
}

// Release stops protecting the value. The slot stays owned by the caller and
// can be passed to the next Read.
func (g Guard[T]) Release() {
	g.slot.Release()
}
