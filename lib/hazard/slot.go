package hazard

import (
	"sync/atomic"
	"unsafe"
)

// reservedMarker backs the Reserved sentinel. Its address is never a value
// managed by a domain and is never dereferenced through a slot.
var reservedMarker struct{ _ byte }

// reserved is the sentinel stored in a slot that is owned but protects nothing
var reserved = unsafe.Pointer(&reservedMarker)

// State is the logical state of a Slot
type State uint8

const (
	StateFree       State = iota // unowned, available for acquisition
	StateReserved                // owned by a reader, protecting nothing
	StateProtecting              // owned by a reader, protecting an address
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "Free"
	case StateReserved:
		return "Reserved"
	case StateProtecting:
		return "Protecting"
	default:
		return "Unknown"
	}
}

// cacheLine is used to keep slots of different readers on different cache lines
const cacheLine = 64

// Slot is a hazard pointer: one atomically accessed word that is either
// nil (Free), the reserved sentinel (Reserved) or the address it protects.
//
// All transitions are sequentially consistent.
type Slot struct {
	addr unsafe.Pointer
	_    [cacheLine - unsafe.Sizeof(unsafe.Pointer(nil))]byte
}

// newReservedSlot creates a slot that is already owned by the caller
func newReservedSlot() Slot {
	return Slot{addr: reserved}
}

// TryAcquire claims a free slot (Free -> Reserved).
// It returns false if the slot is owned by someone else.
func (s *Slot) TryAcquire() bool {
	return atomic.CompareAndSwapPointer(&s.addr, nil, reserved)
}

// Protect announces that the owner is about to dereference p.
// The caller must own the slot.
func (s *Slot) Protect(p unsafe.Pointer) {
	atomic.StorePointer(&s.addr, p)
}

// Release stops protecting but keeps the slot owned (-> Reserved)
func (s *Slot) Release() {
	atomic.StorePointer(&s.addr, reserved)
}

// Free relinquishes ownership (-> Free). The slot may be handed to another
// owner right after this call.
func (s *Slot) Free() {
	atomic.StorePointer(&s.addr, nil)
}

// Load returns the raw word of the slot
func (s *Slot) Load() unsafe.Pointer {
	return atomic.LoadPointer(&s.addr)
}

// Protected returns the address the slot protects, or nil if it is Free or Reserved
func (s *Slot) Protected() unsafe.Pointer {
	if p := s.Load(); p != reserved {
		return p
	}
	return nil
}

// State returns the current state of the slot
func (s *Slot) State() State {
	switch s.Load() {
	case nil:
		return StateFree
	case reserved:
		return StateReserved
	default:
		return StateProtecting
	}
}
