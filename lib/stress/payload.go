package stress

import (
	"sync/atomic"

	"github.com/ValentinKolb/hzrd/lib/util"
)

const (
	payloadLive     int32 = 1
	payloadRecycled int32 = 2
)

// payload is the value written to the cell under test. sum is derived from
// seq so that a payload that is rewritten while a reader looks at it fails
// verification.
type payload struct {
	seq   uint64
	sum   uint64
	state atomic.Int32
}

// fill prepares a pooled payload for publication
func (p *payload) fill(seq, seed uint64) *payload {
	p.seq = seq
	p.sum = util.Mix64(seq, seed)
	p.state.Store(payloadLive)
	return p
}

// recycle marks the payload as reclaimed
func (p *payload) recycle() {
	p.state.Store(payloadRecycled)
}

// valid reports whether the payload is live and consistent
func (p *payload) valid(seed uint64) bool {
	return p.state.Load() == payloadLive && p.sum == util.Mix64(p.seq, seed)
}
