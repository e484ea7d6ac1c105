package testing

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/ValentinKolb/hzrd/lib/hazard"
)

// DomainFactory is a function that creates a new instance of a hazard.Domain implementation
type DomainFactory func() hazard.Domain

// RunDomainTests runs a comprehensive test suite for a hazard.Domain implementation.
// Tests that need concurrent access are skipped for domains that report
// Concurrent() == false.
func RunDomainTests(t *testing.T, name string, factory DomainFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Acquire", func(t *testing.T) {
			testAcquire(t, factory())
		})

		t.Run("SlotReuse", func(t *testing.T) {
			testSlotReuse(t, factory())
		})

		t.Run("ReclaimUnprotected", func(t *testing.T) {
			testReclaimUnprotected(t, factory())
		})

		t.Run("ProtectedSurvivesReclaim", func(t *testing.T) {
			testProtectedSurvivesReclaim(t, factory())
		})

		t.Run("ReclaimSafety", func(t *testing.T) {
			testReclaimSafety(t, factory())
		})

		t.Run("ReleaseKeepsOwnership", func(t *testing.T) {
			testReleaseKeepsOwnership(t, factory())
		})

		t.Run("Liveness", func(t *testing.T) {
			testLiveness(t, factory())
		})

		t.Run("Stats", func(t *testing.T) {
			testStats(t, factory())
		})

		t.Run("ConcurrentAcquire", func(t *testing.T) {
			testConcurrentAcquire(t, factory())
		})

		t.Run("ConcurrentRetire", func(t *testing.T) {
			testConcurrentRetire(t, factory())
		})

		t.Run("ReadersNeverSeeReclaimed", func(t *testing.T) {
			testReadersNeverSeeReclaimed(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the domain can be used from several goroutines
// Skip the test if it can not
func requireConcurrency(t testing.TB, domain hazard.Domain) {
	if !domain.Concurrent() {
		t.Skip()
	}
}

// tracked is a value that records whether its reclaimer ran
type tracked struct {
	id        int
	reclaimed atomic.Bool
}

func retireTracked(domain hazard.Domain, v *tracked) {
	domain.Retire(hazard.NewRetired(v, func(p *tracked) {
		p.reclaimed.Store(true)
	}))
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testAcquire(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	const n = 16
	seen := make(map[*hazard.Slot]bool, n)
	slots := make([]*hazard.Slot, 0, n)

	for i := 0; i < n; i++ {
		s := domain.Acquire()
		if s == nil {
			t.Fatalf("Acquire returned nil")
		}
		if s.State() != hazard.StateReserved {
			t.Errorf("Expected acquired slot to be Reserved, got %s", s.State())
		}
		if seen[s] {
			t.Errorf("Acquire handed out slot %p twice", s)
		}
		seen[s] = true
		slots = append(slots, s)
	}

	for _, s := range slots {
		s.Free()
	}
}

func testSlotReuse(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	before := domain.Stats().Slots

	v := 1
	s := domain.Acquire()
	s.Protect(unsafe.Pointer(&v))
	s.Free()

	for i := 0; i < 100; i++ {
		s = domain.Acquire()
		if s.State() != hazard.StateReserved || s.Protected() != nil {
			t.Fatalf("Reused slot shows a stale state: %s", s.State())
		}
		s.Free()
	}

	if grown := domain.Stats().Slots - before; grown > 1 {
		t.Errorf("Expected sequential acquire/free to reuse one slot, registry grew by %d", grown)
	}
}

func testReclaimUnprotected(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	values := make([]tracked, 100)
	for i := range values {
		retireTracked(domain, &values[i])
	}
	domain.Reclaim()
	domain.Close()

	for i := range values {
		if !values[i].reclaimed.Load() {
			t.Errorf("Expected unprotected value %d to be reclaimed", i)
		}
	}
}

func testProtectedSurvivesReclaim(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	v := &tracked{id: 1}
	s := domain.Acquire()
	s.Protect(unsafe.Pointer(v))

	retireTracked(domain, v)
	for i := 0; i < 10; i++ {
		domain.Reclaim()
		if !domain.TryReclaim() && domain.Concurrent() {
			// nothing else holds the queue in this test
			t.Errorf("TryReclaim was skipped without contention")
		}
	}

	if v.reclaimed.Load() {
		t.Fatalf("Protected value was reclaimed")
	}

	s.Release()
	domain.Reclaim()
	domain.Close()

	if !v.reclaimed.Load() {
		t.Errorf("Expected value to be reclaimed after its slot was released")
	}
	s.Free()
}

func testReclaimSafety(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	const n = 64
	values := make([]tracked, n)
	slots := make([]*hazard.Slot, 0, n/2)

	// protect every even value
	for i := 0; i < n; i += 2 {
		s := domain.Acquire()
		s.Protect(unsafe.Pointer(&values[i]))
		slots = append(slots, s)
	}

	for i := range values {
		values[i].id = i
		retireTracked(domain, &values[i])
	}
	domain.Reclaim()
	domain.Close()

	for i := range values {
		protected := i%2 == 0
		if protected && values[i].reclaimed.Load() {
			t.Errorf("Value %d was reclaimed while protected", i)
		}
		if !protected && !values[i].reclaimed.Load() {
			t.Errorf("Value %d was not reclaimed although nothing protects it", i)
		}
	}

	for _, s := range slots {
		s.Free()
	}
}

func testReleaseKeepsOwnership(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	v := 5
	s := domain.Acquire()
	s.Protect(unsafe.Pointer(&v))
	s.Release()

	if s.State() != hazard.StateReserved {
		t.Errorf("Expected Reserved after Release, got %s", s.State())
	}

	other := domain.Acquire()
	if other == s {
		t.Errorf("Acquire returned a slot that is still owned")
	}

	other.Free()
	s.Free()
}

func testLiveness(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	s := domain.Acquire()
	defer s.Free()

	// steady state: every cycle protects the newest value and retires the previous one
	var prev *tracked
	values := make([]tracked, 1000)
	for i := range values {
		cur := &values[i]
		s.Protect(unsafe.Pointer(cur))
		if prev != nil {
			retireTracked(domain, prev)
		}
		prev = cur
	}

	s.Release()
	retireTracked(domain, prev)
	domain.Reclaim()
	domain.Close()

	for i := range values {
		if !values[i].reclaimed.Load() {
			t.Fatalf("Value %d was never reclaimed", i)
		}
	}
}

func testStats(t *testing.T, domain hazard.Domain) {
	defer domain.Close()

	before := domain.Stats()

	v := 9
	s := domain.Acquire()
	s.Protect(unsafe.Pointer(&v))
	domain.Retire(hazard.NewRetired(&v, nil))

	st := domain.Stats()
	if st.Name != domain.Name() {
		t.Errorf("Expected stats name %s, got %s", domain.Name(), st.Name)
	}
	if st.Retired-before.Retired != 1 {
		t.Errorf("Expected one more retired value, got %d", st.Retired-before.Retired)
	}
	if st.Pending < 1 {
		t.Errorf("Expected the protected value to be pending, got %d", st.Pending)
	}
	if st.Protecting < 1 || st.Owned < st.Protecting || st.Slots < st.Owned {
		t.Errorf("Inconsistent slot counters: %s", st)
	}

	s.Free()
	domain.Reclaim()

	st = domain.Stats()
	if st.Reclaimed-before.Reclaimed < 1 {
		t.Errorf("Expected the value to be counted as reclaimed: %s", st)
	}
	if st.Passes <= before.Passes {
		t.Errorf("Expected reclamation passes to be counted: %s", st)
	}
}

func testConcurrentAcquire(t *testing.T, domain hazard.Domain) {
	defer domain.Close()
	requireConcurrency(t, domain)

	const goroutines = 16
	const rounds = 500

	var owners sync.Map
	var wg sync.WaitGroup
	var errorCount atomic.Int32

	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				s := domain.Acquire()
				if prev, loaded := owners.LoadOrStore(s, id); loaded {
					t.Errorf("Slot %p owned by %d and %d at the same time", s, prev, id)
					errorCount.Add(1)
					return
				}
				runtime.Gosched()
				owners.Delete(s)
				s.Free()
			}
		}(g)
	}
	wg.Wait()

	if errorCount.Load() > 0 {
		t.Fatalf("Test had %d ownership violations", errorCount.Load())
	}
}

func testConcurrentRetire(t *testing.T, domain hazard.Domain) {
	defer domain.Close()
	requireConcurrency(t, domain)

	const goroutines = 8
	const perGoroutine = 2000

	values := make([]tracked, goroutines*perGoroutine)
	var wg sync.WaitGroup

	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				retireTracked(domain, &values[g*perGoroutine+i])
				if i%100 == 0 {
					domain.Reclaim()
				}
			}
		}(g)
	}
	wg.Wait()

	domain.Reclaim()
	domain.Close()

	missing := 0
	for i := range values {
		if !values[i].reclaimed.Load() {
			missing++
		}
	}
	if missing > 0 {
		t.Errorf("%d retired values were never reclaimed", missing)
	}
}

// testReadersNeverSeeReclaimed runs the read protocol by hand against an
// atomic pointer: readers protect and re-check, writers swap and retire with a
// reclaimer that poisons the value.
func testReadersNeverSeeReclaimed(t *testing.T, domain hazard.Domain) {
	defer domain.Close()
	requireConcurrency(t, domain)

	const poison = -1
	const readers = 8

	type box struct{ v atomic.Int64 }

	var current atomic.Pointer[box]
	first := &box{}
	current.Store(first)

	var stop atomic.Bool
	var violations atomic.Int64
	var reads atomic.Int64
	var wg sync.WaitGroup

	wg.Add(readers)
	for r := 0; r < readers; r++ {
		go func() {
			defer wg.Done()
			slot := domain.Acquire()
			defer slot.Free()

			for !stop.Load() {
				p := current.Load()
				for {
					slot.Protect(unsafe.Pointer(p))
					p2 := current.Load()
					if p2 == p {
						break
					}
					p = p2
				}
				// hold the value for a moment while writers keep swapping
				for i := 0; i < 4; i++ {
					if p.v.Load() == poison {
						violations.Add(1)
					}
					runtime.Gosched()
				}
				slot.Release()
				reads.Add(1)
			}
		}()
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for i := int64(1); time.Now().Before(deadline); i++ {
		next := &box{}
		next.v.Store(i)
		old := current.Swap(next)
		domain.Retire(hazard.NewRetired(old, func(b *box) { b.v.Store(poison) }))
	}

	stop.Store(true)
	wg.Wait()

	if violations.Load() > 0 {
		t.Fatalf("Readers observed %d reclaimed values", violations.Load())
	}
	if reads.Load() == 0 {
		t.Errorf("Readers made no progress")
	}
}
