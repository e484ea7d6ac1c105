package hazard

import (
	"io"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ValentinKolb/hzrd/lib/stack"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Synchronised domain (base of Shared and Global)
// --------------------------------------------------------------------------

// syncDomain keeps its slot registry in a lock-free append-only stack and its
// retirement queue in a slice behind a mutex.
//
// Thread-safety: all methods are safe for concurrent use.
type syncDomain struct {
	opts options

	registry *stack.Stack[Slot]

	// mu guards queue, live and backlog
	mu      sync.Mutex
	queue   []Retired
	live    map[unsafe.Pointer]struct{} // reused by every pass
	backlog int                         // queue length after the last pass

	pending atomic.Int64

	retired   *xsync.Counter
	reclaimed *xsync.Counter
	passes    *xsync.Counter
	skipped   *xsync.Counter

	exec    executor
	metrics *metrics.Set
	closed  atomic.Bool
}

func (d *syncDomain) setup(o options) {
	d.opts = o
	d.registry = stack.New[Slot]()
	d.live = make(map[unsafe.Pointer]struct{})
	d.retired = xsync.NewCounter()
	d.reclaimed = xsync.NewCounter()
	d.passes = xsync.NewCounter()
	d.skipped = xsync.NewCounter()
	d.exec = newExecutor(o)
	d.metrics = newMetricSet(o.name, d.Stats)
}

func (d *syncDomain) Name() string { return d.opts.name }

func (d *syncDomain) Concurrent() bool { return true }

// Acquire scans the registry for a free slot and claims it, or pushes a new
// reserved slot if every slot is owned.
func (d *syncDomain) Acquire() *Slot {
	var slot *Slot
	d.registry.Range(func(s *Slot) bool {
		if s.TryAcquire() {
			slot = s
			return false
		}
		return true
	})
	if slot != nil {
		return slot
	}

	slot = d.registry.Push(newReservedSlot())
	log.Debugf("domain %s: registry grew to %d slots", d.opts.name, d.registry.Len())
	return slot
}

// Retire appends r to the queue and tries to reclaim without blocking
func (d *syncDomain) Retire(r Retired) {
	d.mu.Lock()
	d.queue = append(d.queue, r)
	d.pending.Store(int64(len(d.queue)))
	d.mu.Unlock()

	d.retired.Inc()
	d.TryReclaim()
}

// Reclaim waits for the queue and runs one reclamation pass
func (d *syncDomain) Reclaim() {
	d.mu.Lock()
	freed := d.collectLocked()
	d.mu.Unlock()

	d.finish(freed)
}

// TryReclaim runs one reclamation pass if the queue is not held by someone else
func (d *syncDomain) TryReclaim() bool {
	if !d.mu.TryLock() {
		d.skipped.Inc()
		return false
	}
	freed := d.collectLocked()
	d.mu.Unlock()

	d.finish(freed)
	return true
}

// collectLocked removes every unprotected entry from the queue and returns
// them. The caller must hold mu. Reclaimers are not run here so that they may
// retire values into this domain themselves.
func (d *syncDomain) collectLocked() []Retired {
	d.passes.Inc()
	if len(d.queue) == 0 {
		return nil
	}

	live := liveSet(d.live, d.registry.Range)

	var freed []Retired
	kept := d.queue[:0]
	for _, r := range d.queue {
		if _, ok := live[r.addr]; ok {
			kept = append(kept, r)
		} else {
			freed = append(freed, r)
		}
	}
	// drop the references held by the unused tail
	clear(d.queue[len(kept):])
	d.queue = kept
	d.pending.Store(int64(len(kept)))

	warnBacklog(d.opts.name, d.opts.backlogWarning, d.backlog, len(kept))
	d.backlog = len(kept)

	return freed
}

func (d *syncDomain) finish(freed []Retired) {
	if len(freed) == 0 {
		return
	}
	d.reclaimed.Add(int64(len(freed)))
	d.exec.run(freed)
}

func (d *syncDomain) Stats() Stats {
	s := Stats{
		Name:      d.opts.name,
		Pending:   int(d.pending.Load()),
		Retired:   uint64(d.retired.Value()),
		Reclaimed: uint64(d.reclaimed.Value()),
		Passes:    uint64(d.passes.Value()),
		Skipped:   uint64(d.skipped.Value()),
	}
	s.countSlots(d.registry.Range)
	return s
}

func (d *syncDomain) WriteMetrics(w io.Writer) {
	d.metrics.WritePrometheus(w)
}

// Close runs a final pass and stops the background reclaimer (if any).
// Calling Close more than once has no further effect.
func (d *syncDomain) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.Reclaim()
	d.exec.close()
	log.Debugf("domain %s closed: %s", d.opts.name, d.Stats())
}

// --------------------------------------------------------------------------
// Shared domain
// --------------------------------------------------------------------------

// Shared is an instance-scoped domain that may be used by any number of
// goroutines. Cells bound to different Shared domains never contend with each
// other.
type Shared struct {
	syncDomain
}

var _ Domain = (*Shared)(nil)

// NewShared creates an empty shared domain
func NewShared(opts ...Option) *Shared {
	d := &Shared{}
	d.setup(newOptions("shared", opts))
	log.Debugf("created shared domain %s", d.Name())
	return d
}

// --------------------------------------------------------------------------
// Global domain
// --------------------------------------------------------------------------

// GlobalName is the name of the process-wide domain
const GlobalName = "global"

// Global is the process-wide domain returned by Default. It has the same
// design as Shared and lives until the process exits.
type Global struct {
	syncDomain
}

var _ Domain = (*Global)(nil)

var (
	globalOnce sync.Once
	global     *Global
)

// Default returns the process-wide domain, creating it on first use. The
// domain is registered under GlobalName.
func Default() *Global {
	globalOnce.Do(func() {
		global = &Global{}
		global.setup(newOptions(GlobalName, []Option{WithName(GlobalName)}))
		if err := Register(global); err != nil {
			log.Warningf("could not register the global domain: %v", err)
		}
		log.Debugf("created global domain")
	})
	return global
}

// Close runs a reclamation pass. The global domain itself stays usable.
func (g *Global) Close() {
	g.Reclaim()
}
