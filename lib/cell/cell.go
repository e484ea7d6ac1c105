package cell

import (
	"sync/atomic"

	"github.com/ValentinKolb/hzrd/lib/core"
	"github.com/ValentinKolb/hzrd/lib/hazard"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("cell")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options[T any] struct {
	domain  hazard.Domain
	reclaim func(*T)
}

// Option configures a Cell
type Option[T any] func(*options[T])

// WithDomain binds the cell to d instead of the process-wide domain
func WithDomain[T any](d hazard.Domain) Option[T] {
	return func(o *options[T]) { o.domain = d }
}

// WithReclaimer sets the function that runs when a replaced value is reclaimed
// (for example returning it to a pool). Without a reclaimer, replaced values
// are simply left to the garbage collector once no reader holds them.
func WithReclaimer[T any](fn func(*T)) Option[T] {
	return func(o *options[T]) { o.reclaim = fn }
}

// --------------------------------------------------------------------------
// Cell
// --------------------------------------------------------------------------

// Cell is a value that many goroutines can read without locks while writers
// replace it. A replaced value is reclaimed once no reader holds it anymore.
//
// Thread-safety: a Cell bound to a Shared domain or the global domain is safe
// for concurrent use. A Cell bound to a Local domain must only be used from one
// goroutine.
type Cell[T any] struct {
	core    *core.Core[T]
	domain  hazard.Domain
	reclaim func(*T)
	closed  atomic.Bool
}

// New creates a cell holding v
func New[T any](v T, opts ...Option[T]) *Cell[T] {
	return NewFromPointer(&v, opts...)
}

// NewFromPointer creates a cell that takes ownership of p.
// p must not be nil.
func NewFromPointer[T any](p *T, opts ...Option[T]) *Cell[T] {
	o := options[T]{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.domain == nil {
		o.domain = hazard.Default()
	}
	return &Cell[T]{
		core:    core.NewFromPointer(p),
		domain:  o.domain,
		reclaim: o.reclaim,
	}
}

// Read acquires a slot and returns a reference to the current value.
// The reference must be closed when it is no longer used.
func (c *Cell[T]) Read() *Ref[T] {
	slot := c.domain.Acquire()
	return &Ref[T]{guard: c.core.Read(slot), slot: slot}
}

// Get returns a copy of the current value
func (c *Cell[T]) Get() T {
	r := c.Read()
	defer r.Close()
	return *r.Value()
}

// Reader returns a reader that keeps one slot for repeated reads
func (c *Cell[T]) Reader() *Reader[T] {
	return &Reader[T]{cell: c, slot: c.domain.Acquire()}
}

// Set replaces the current value with v and retires the previous one
func (c *Cell[T]) Set(v T) {
	c.retire(c.core.Swap(v))
}

// SetPointer replaces the current value with p and retires the previous one.
// p must not be nil and the cell takes ownership of it.
func (c *Cell[T]) SetPointer(p *T) {
	c.retire(c.core.SwapPointer(p))
}

// Update replaces the current value with fn(current). If another writer
// replaced the value in the meantime fn is called again with the newer value,
// so fn may run more than once. Update returns the value it installed.
func (c *Cell[T]) Update(fn func(T) T) T {
	slot := c.domain.Acquire()
	defer slot.Free()

	for {
		g := c.core.Read(slot)
		old := g.Value()
		next := fn(*old)
		// old is protected by the slot, so it cannot be recycled before the CAS
		if c.core.CompareAndSwap(old, &next) {
			g.Release()
			c.retire(old)
			return next
		}
		g.Release()
	}
}

// Reclaim runs a reclamation pass on the cell's domain, waiting for the queue if needed
func (c *Cell[T]) Reclaim() {
	c.domain.Reclaim()
}

// TryReclaim runs a reclamation pass unless the queue is busy
func (c *Cell[T]) TryReclaim() bool {
	return c.domain.TryReclaim()
}

// Domain returns the domain the cell is bound to
func (c *Cell[T]) Domain() hazard.Domain {
	return c.domain
}

// Close retires the current value. The cell must not be used afterwards;
// readers that still hold a reference keep the value alive until they close it.
func (c *Cell[T]) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.retire(c.core.Load())
	log.Debugf("closed cell in domain %s", c.domain.Name())
}

func (c *Cell[T]) retire(old *T) {
	c.domain.Retire(hazard.NewRetired(old, c.reclaim))
}

// --------------------------------------------------------------------------
// Ref
// --------------------------------------------------------------------------

// Ref is a scoped reference to a cell's value. It owns a slot until Close.
type Ref[T any] struct {
	guard core.Guard[T]
	slot  *hazard.Slot
}

// Value returns the referenced value. It must not be used after Close.
func (r *Ref[T]) Value() *T {
	return r.guard.Value()
}

// Close frees the reference's slot. Close must be called exactly once.
func (r *Ref[T]) Close() {
	r.slot.Free()
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// Reader reads a cell through a slot it owns for its whole lifetime, so
// repeated reads never touch the domain's registry.
//
// Thread-safety: a Reader must only be used by one goroutine. Each goroutine
// should create its own Reader.
type Reader[T any] struct {
	cell *Cell[T]
	slot *hazard.Slot
}

// Read protects the current value. The guard must be released before the
// next Read.
func (r *Reader[T]) Read() core.Guard[T] {
	return r.cell.core.Read(r.slot)
}

// Get returns a copy of the current value
func (r *Reader[T]) Get() T {
	g := r.Read()
	defer g.Release()
	return *g.Value()
}

// Close gives the reader's slot back to the domain
func (r *Reader[T]) Close() {
	r.slot.Free()
}
