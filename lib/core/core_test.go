package core

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/ValentinKolb/hzrd/lib/hazard"
)

func TestReadReturnsCurrent(t *testing.T) {
	d := hazard.NewLocal()
	defer d.Close()

	c := New(10)
	slot := d.Acquire()
	defer slot.Free()

	g := c.Read(slot)
	if *g.Value() != 10 {
		t.Errorf("Expected 10, got %d", *g.Value())
	}
	if slot.Protected() != unsafe.Pointer(g.Value()) {
		t.Errorf("Expected the slot to protect the returned value")
	}

	g.Release()
	if slot.State() != hazard.StateReserved {
		t.Errorf("Expected slot to be Reserved after Release, got %s", slot.State())
	}
}

func TestSwapReturnsPrevious(t *testing.T) {
	c := New("a")
	first := c.Load()

	old := c.Swap("b")
	if old != first || *old != "a" {
		t.Errorf("Expected Swap to return the previous value, got %q", *old)
	}
	if *c.Load() != "b" {
		t.Errorf("Expected current value b, got %q", *c.Load())
	}

	p := new(string)
	*p = "c"
	old = c.SwapPointer(p)
	if *old != "b" || c.Load() != p {
		t.Errorf("Expected SwapPointer to install the given pointer")
	}
}

func TestCompareAndSwap(t *testing.T) {
	c := New(1)
	old := c.Load()

	two := 2
	if !c.CompareAndSwap(old, &two) {
		t.Fatalf("Expected CompareAndSwap with the current value to succeed")
	}

	three := 3
	if c.CompareAndSwap(old, &three) {
		t.Errorf("Expected CompareAndSwap with a stale value to fail")
	}
	if *c.Load() != 2 {
		t.Errorf("Expected current value 2, got %d", *c.Load())
	}
}

func TestNilPointerPanics(t *testing.T) {
	expectPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("Expected %s to panic on nil", name)
			}
		}()
		fn()
	}

	expectPanic("NewFromPointer", func() { NewFromPointer[int](nil) })
	expectPanic("SwapPointer", func() { New(1).SwapPointer(nil) })
	expectPanic("CompareAndSwap", func() {
		c := New(1)
		c.CompareAndSwap(c.Load(), nil)
	})
}

// payload is poisoned by its reclaimer so that use after reclamation is visible
type payload struct {
	seq   int64
	alive atomic.Bool
}

func newPayload(seq int64) *payload {
	p := &payload{seq: seq}
	p.alive.Store(true)
	return p
}

func TestProtectionInvariant(t *testing.T) {
	d := hazard.NewShared()
	defer d.Close()

	const writers = 4
	const swapsPerWriter = 5000

	c := NewFromPointer(newPayload(0))
	retire := func(old *payload) {
		d.Retire(hazard.NewRetired(old, func(p *payload) { p.alive.Store(false) }))
	}

	slot := d.Acquire()
	defer slot.Free()

	// hold one guard across every concurrent swap
	g := c.Read(slot)
	held := g.Value()
	heldSeq := held.seq

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < swapsPerWriter; i++ {
				retire(c.SwapPointer(newPayload(int64(w*swapsPerWriter + i + 1))))
			}
		}(w)
	}
	wg.Wait()
	d.Reclaim()

	if !held.alive.Load() {
		t.Fatalf("Value held by a guard was reclaimed")
	}
	if held.seq != heldSeq {
		t.Errorf("Value held by a guard changed from %d to %d", heldSeq, held.seq)
	}
	if limit := int64(writers * swapsPerWriter); held.seq < 0 || held.seq > limit {
		t.Errorf("Guard returned a value that was never written: %d", held.seq)
	}

	g.Release()
	d.Reclaim()
	if held.alive.Load() {
		t.Errorf("Expected the value to be reclaimed after the guard was released")
	}
	if st := d.Stats(); st.Pending != 0 {
		t.Errorf("Expected an empty queue, got %s", st)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	d := hazard.NewShared()
	defer d.Close()

	const readers = 8
	const writes = 20000

	c := NewFromPointer(newPayload(0))

	var stop atomic.Bool
	var violations atomic.Int64
	var wg sync.WaitGroup

	wg.Add(readers)
	for r := 0; r < readers; r++ {
		go func() {
			defer wg.Done()
			slot := d.Acquire()
			defer slot.Free()

			for !stop.Load() {
				g := c.Read(slot)
				v := g.Value()
				if !v.alive.Load() || v.seq < 0 || v.seq > writes {
					violations.Add(1)
				}
				g.Release()
			}
		}()
	}

	for i := int64(1); i <= writes; i++ {
		old := c.SwapPointer(newPayload(i))
		d.Retire(hazard.NewRetired(old, func(p *payload) { p.alive.Store(false) }))
	}
	stop.Store(true)
	wg.Wait()

	if violations.Load() > 0 {
		t.Fatalf("Readers observed %d reclaimed or unknown values", violations.Load())
	}
	if got := c.Load().seq; got != writes {
		t.Errorf("Expected final value %d, got %d", writes, got)
	}
}

func BenchmarkRead(b *testing.B) {
	d := hazard.NewShared()
	defer d.Close()

	c := New(1)
	b.RunParallel(func(pb *testing.PB) {
		slot := d.Acquire()
		defer slot.Free()
		for pb.Next() {
			g := c.Read(slot)
			_ = *g.Value()
			g.Release()
		}
	})
}

func BenchmarkSwap(b *testing.B) {
	d := hazard.NewShared()
	defer d.Close()

	c := New(0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		old := c.Swap(i)
		d.Retire(hazard.NewRetired[int](old, nil))
	}
}
