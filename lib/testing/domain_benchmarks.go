package testing

import (
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/ValentinKolb/hzrd/lib/hazard"
)

// RunDomainBenchmarks runs all benchmarks for a hazard.Domain implementation
func RunDomainBenchmarks(b *testing.B, name string, factory DomainFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("AcquireFree", func(b *testing.B) {
			benchmarkAcquireFree(b, factory())
		})

		b.Run("RetireUnprotected", func(b *testing.B) {
			benchmarkRetireUnprotected(b, factory())
		})

		b.Run("RetireWithReaders", func(b *testing.B) {
			benchmarkRetireWithReaders(b, factory())
		})

		b.Run("ProtectedRead", func(b *testing.B) {
			benchmarkProtectedRead(b, factory())
		})

		b.Run("ParallelAcquireFree", func(b *testing.B) {
			benchmarkParallelAcquireFree(b, factory())
		})

		b.Run("ParallelProtectedRead", func(b *testing.B) {
			benchmarkParallelProtectedRead(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for acquiring and freeing a slot
func benchmarkAcquireFree(b *testing.B, domain hazard.Domain) {
	b.Cleanup(domain.Close)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		domain.Acquire().Free()
	}
}

// Benchmark for Retire when nothing is protected (every pass empties the queue)
func benchmarkRetireUnprotected(b *testing.B, domain hazard.Domain) {
	b.Cleanup(domain.Close)

	values := make([]int, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		domain.Retire(hazard.NewRetired(&values[i%len(values)], nil))
	}
}

// Benchmark for Retire while a number of slots protect other values
func benchmarkRetireWithReaders(b *testing.B, domain hazard.Domain) {
	b.Cleanup(domain.Close)

	const readers = 32
	held := make([]int, readers)
	slots := make([]*hazard.Slot, readers)
	for i := range slots {
		slots[i] = domain.Acquire()
		slots[i].Protect(unsafe.Pointer(&held[i]))
	}
	b.Cleanup(func() {
		for _, s := range slots {
			s.Free()
		}
	})

	values := make([]int, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		domain.Retire(hazard.NewRetired(&values[i%len(values)], nil))
	}
}

// Benchmark for the load-protect-verify read loop against an atomic pointer
func benchmarkProtectedRead(b *testing.B, domain hazard.Domain) {
	b.Cleanup(domain.Close)

	var current atomic.Pointer[int]
	v := 1
	current.Store(&v)

	slot := domain.Acquire()
	defer slot.Free()

	var sum int
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := current.Load()
		for {
			slot.Protect(unsafe.Pointer(p))
			p2 := current.Load()
			if p2 == p {
				break
			}
			p = p2
		}
		sum += *p
		slot.Release()
	}
	_ = sum
}

func benchmarkParallelAcquireFree(b *testing.B, domain hazard.Domain) {
	b.Cleanup(domain.Close)
	requireConcurrency(b, domain)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			domain.Acquire().Free()
		}
	})
}

func benchmarkParallelProtectedRead(b *testing.B, domain hazard.Domain) {
	b.Cleanup(domain.Close)
	requireConcurrency(b, domain)

	var current atomic.Pointer[int]
	v := 1
	current.Store(&v)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		slot := domain.Acquire()
		defer slot.Free()

		for pb.Next() {
			p := current.Load()
			for {
				slot.Protect(unsafe.Pointer(p))
				p2 := current.Load()
				if p2 == p {
					break
				}
				p = p2
			}
			_ = *p
			slot.Release()
		}
	})
}
