package stress

import "sync"

// Pool is a typed object pool. Payloads replaced in a cell are returned here by
// their reclaimer and handed to the next writer, so a reader that was not
// protected would see its value being overwritten.
type Pool[T any] struct {
	p *sync.Pool
}

// NewPool creates a pool that calls ctor when it has no value to hand out
func NewPool[T any](ctor func() *T) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
}

// Get returns a pooled value or a new one from ctor
func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

// Put makes v available to later Get calls. v must not be used afterwards.
func (p *Pool[T]) Put(v *T) {
	p.p.Put(v)
}
