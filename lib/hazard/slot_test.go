package hazard

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestSlotTransitions(t *testing.T) {
	var s Slot

	if s.State() != StateFree {
		t.Fatalf("Expected zero slot to be Free, got %s", s.State())
	}

	if !s.TryAcquire() {
		t.Fatalf("Expected TryAcquire on a free slot to succeed")
	}
	if s.State() != StateReserved {
		t.Errorf("Expected Reserved after TryAcquire, got %s", s.State())
	}
	if s.TryAcquire() {
		t.Errorf("Expected TryAcquire on an owned slot to fail")
	}
	if s.Protected() != nil {
		t.Errorf("Expected a reserved slot to protect nothing")
	}

	v := 42
	p := unsafe.Pointer(&v)
	s.Protect(p)
	if s.State() != StateProtecting {
		t.Errorf("Expected Protecting after Protect, got %s", s.State())
	}
	if s.Protected() != p {
		t.Errorf("Expected slot to protect %p, got %p", p, s.Protected())
	}
	if s.TryAcquire() {
		t.Errorf("Expected TryAcquire on a protecting slot to fail")
	}

	s.Release()
	if s.State() != StateReserved {
		t.Errorf("Expected Reserved after Release, got %s", s.State())
	}

	s.Free()
	if s.State() != StateFree {
		t.Errorf("Expected Free after Free, got %s", s.State())
	}
	if !s.TryAcquire() {
		t.Errorf("Expected a freed slot to be acquirable again")
	}
}

func TestNewReservedSlot(t *testing.T) {
	s := newReservedSlot()
	if s.State() != StateReserved {
		t.Errorf("Expected a new registry slot to be Reserved, got %s", s.State())
	}
}

func TestSlotSize(t *testing.T) {
	if size := unsafe.Sizeof(Slot{}); size != cacheLine {
		t.Errorf("Expected a slot to fill one cache line (%d bytes), got %d", cacheLine, size)
	}
}

func TestSlotAcquireRace(t *testing.T) {
	const goroutines = 32

	for round := 0; round < 100; round++ {
		var s Slot
		var winners atomic.Int32
		var wg sync.WaitGroup

		wg.Add(goroutines)
		for i := 0; i < goroutines; i++ {
			go func() {
				defer wg.Done()
				if s.TryAcquire() {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		if winners.Load() != 1 {
			t.Fatalf("Round %d: expected exactly one owner, got %d", round, winners.Load())
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateFree:       "Free",
		StateReserved:   "Reserved",
		StateProtecting: "Protecting",
		State(99):       "Unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

func TestRetiredRunsReclaimerOnce(t *testing.T) {
	v := 7
	calls := 0
	r := NewRetired(&v, func(p *int) {
		if p != &v {
			t.Errorf("Reclaimer received %p, expected %p", p, &v)
		}
		calls++
	})

	if r.Addr() != unsafe.Pointer(&v) {
		t.Errorf("Expected Addr to be the address of the value")
	}

	r.run()
	if calls != 1 {
		t.Errorf("Expected reclaimer to run once, ran %d times", calls)
	}

	// a nil reclaimer is allowed
	NewRetired[int](&v, nil).run()
}
