package cell

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/hzrd/lib/hazard"
)

func TestGetSet(t *testing.T) {
	d := hazard.NewLocal()
	defer d.Close()

	c := New(1, WithDomain[int](d))
	if got := c.Get(); got != 1 {
		t.Errorf("Expected 1, got %d", got)
	}

	c.Set(2)
	if got := c.Get(); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}

	v := 3
	c.SetPointer(&v)
	if got := c.Get(); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}

	if c.Domain() != hazard.Domain(d) {
		t.Errorf("Expected the cell to report its domain")
	}
}

func TestDefaultDomain(t *testing.T) {
	c := New("x")
	defer c.Close()

	if c.Domain() != hazard.Domain(hazard.Default()) {
		t.Errorf("Expected cells to use the global domain by default")
	}
	if c.Get() != "x" {
		t.Errorf("Expected x, got %q", c.Get())
	}
}

func TestReadHoldsValue(t *testing.T) {
	d := hazard.NewShared()
	defer d.Close()

	var reclaimed []int
	c := New(1, WithDomain[int](d), WithReclaimer(func(p *int) { reclaimed = append(reclaimed, *p) }))

	ref := c.Read()
	c.Set(2)
	c.Set(3)

	// 2 was never read
	if len(reclaimed) != 1 || reclaimed[0] != 2 {
		t.Fatalf("Expected only the unread value to be reclaimed, got %v", reclaimed)
	}
	if *ref.Value() != 1 {
		t.Errorf("Expected the reference to keep value 1, got %d", *ref.Value())
	}

	ref.Close()
	c.Reclaim()

	if len(reclaimed) != 2 || reclaimed[1] != 1 {
		t.Errorf("Expected value 1 to be reclaimed after the reference was closed, got %v", reclaimed)
	}
}

func TestReaderReusesSlot(t *testing.T) {
	d := hazard.NewShared()
	defer d.Close()

	c := New(0, WithDomain[int](d))
	r := c.Reader()

	for i := 0; i < 100; i++ {
		c.Set(i)
		if got := r.Get(); got != i {
			t.Fatalf("Expected %d, got %d", i, got)
		}
	}
	if st := d.Stats(); st.Slots != 1 {
		t.Errorf("Expected the reader to use a single slot, got %s", st)
	}

	g := r.Read()
	if *g.Value() != 99 {
		t.Errorf("Expected 99, got %d", *g.Value())
	}
	g.Release()

	r.Close()
	if st := d.Stats(); st.Owned != 0 {
		t.Errorf("Expected no owned slots after Close, got %s", st)
	}
}

func TestUpdate(t *testing.T) {
	d := hazard.NewShared()
	defer d.Close()

	const goroutines = 8
	const increments = 1000

	c := New(0, WithDomain[int](d))

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				c.Update(func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	if got := c.Get(); got != goroutines*increments {
		t.Errorf("Expected %d, got %d", goroutines*increments, got)
	}
}

func TestCloseRetiresValue(t *testing.T) {
	d := hazard.NewLocal()
	defer d.Close()

	reclaimed := 0
	c := New(5, WithDomain[int](d), WithReclaimer(func(*int) { reclaimed++ }))
	c.Close()
	c.Close()

	if reclaimed != 1 {
		t.Errorf("Expected the final value to be reclaimed exactly once, got %d", reclaimed)
	}
	if st := d.Stats(); st.Pending != 0 {
		t.Errorf("Expected an empty queue, got %s", st)
	}
}

// A reader spins until it sees the value a writer sets once after a delay. It
// must never see anything but the initial or the written value.
func TestWakeScenario(t *testing.T) {
	c := New(0)
	defer c.Close()

	var unexpected atomic.Int64
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			switch v := c.Get(); v {
			case 1:
				return
			case 0:
			default:
				unexpected.Store(int64(v))
				return
			}
		}
	}()

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Set(1)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Reader never observed the written value")
	}
	if v := unexpected.Load(); v != 0 {
		t.Errorf("Reader observed a value that was never written: %d", v)
	}
}

// Two cells share a domain: one is read in a loop while the other is written
// with increasing integers. Every read must return a written value.
func TestSharedDomainScenario(t *testing.T) {
	d := hazard.NewShared()
	defer d.Close()

	const writes = 1000

	type value struct {
		n    int
		dead int32
	}
	poison := func(v *value) { atomic.StoreInt32(&v.dead, 1) }

	read := New(value{}, WithDomain[value](d), WithReclaimer(poison))
	written := New(value{}, WithDomain[value](d), WithReclaimer(poison))
	defer read.Close()
	defer written.Close()

	var stop atomic.Bool
	var bad atomic.Int64
	var wg sync.WaitGroup

	for _, target := range []*Cell[value]{read, written} {
		wg.Add(1)
		go func(target *Cell[value]) {
			defer wg.Done()
			r := target.Reader()
			defer r.Close()
			for !stop.Load() {
				g := r.Read()
				v := g.Value()
				if atomic.LoadInt32(&v.dead) == 1 || v.n < 0 || v.n > writes {
					bad.Add(1)
				}
				g.Release()
			}
		}(target)
	}

	for i := 1; i <= writes; i++ {
		written.SetPointer(&value{n: i})
	}
	stop.Store(true)
	wg.Wait()

	if bad.Load() > 0 {
		t.Fatalf("Readers observed %d values that were reclaimed or never written", bad.Load())
	}
	if got := written.Get(); got.n != writes {
		t.Errorf("Expected final value %d, got %d", writes, got.n)
	}
	d.Reclaim()
	if st := d.Stats(); st.Pending != 0 {
		t.Errorf("Expected every replaced value to be reclaimed, got %s", st)
	}
}

func BenchmarkGet(b *testing.B) {
	d := hazard.NewShared()
	defer d.Close()

	c := New(42, WithDomain[int](d))
	b.RunParallel(func(pb *testing.PB) {
		r := c.Reader()
		defer r.Close()
		for pb.Next() {
			_ = r.Get()
		}
	})
}

func BenchmarkSet(b *testing.B) {
	d := hazard.NewShared()
	defer d.Close()

	c := New(0, WithDomain[int](d))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(i)
	}
}
