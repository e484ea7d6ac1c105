package hazard

import "unsafe"

// Retired is a value whose logical lifetime has ended (it was replaced) but
// whose reclamation is deferred until no slot protects its address.
//
// Reclaiming runs the reclaimer the value was retired with, for example
// returning it to a pool. The retirement queue keeps the value reachable, so
// its address cannot be reused while it is queued.
type Retired struct {
	addr    unsafe.Pointer
	reclaim func()
}

// NewRetired wraps p for retirement. reclaim may be nil, in which case
// reclaiming only drops the domain's reference and leaves p to the garbage collector.
func NewRetired[T any](p *T, reclaim func(*T)) Retired {
	r := Retired{addr: unsafe.Pointer(p)}
	if reclaim != nil {
		r.reclaim = func() { reclaim(p) }
	}
	return r
}

// Addr returns the address of the retired value
func (r Retired) Addr() unsafe.Pointer {
	return r.addr
}

// run executes the reclaimer (if any)
func (r Retired) run() {
	if r.reclaim != nil {
		r.reclaim()
	}
}
