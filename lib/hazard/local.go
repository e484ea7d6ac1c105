package hazard

import (
	"io"
	"unsafe"

	"github.com/ValentinKolb/hzrd/lib/list"
)

// Local is an instance-scoped domain without any synchronisation on its
// bookkeeping. Slots are kept in a list of individually allocated slots and
// retired values in a list queue.
//
// Thread-safety: a Local domain must only ever be used from one goroutine at
// a time. Sharing it between goroutines without external synchronisation is a
// programming error and is not detected. Reclaimers started with
// WithAsyncReclaim run elsewhere but never touch the domain.
type Local struct {
	opts options

	registry *list.List[*Slot]
	queue    *list.List[Retired]
	live     map[unsafe.Pointer]struct{}
	backlog  int
	freed    []Retired // reused by every pass

	retired   uint64
	reclaimed uint64
	passes    uint64

	exec   executor
	closed bool
}

var _ Domain = (*Local)(nil)

// NewLocal creates an empty local domain
func NewLocal(opts ...Option) *Local {
	o := newOptions("local", opts)
	d := &Local{
		opts:     o,
		registry: list.New[*Slot](),
		queue:    list.New[Retired](),
		live:     make(map[unsafe.Pointer]struct{}),
		exec:     newExecutor(o),
	}
	log.Debugf("created local domain %s", o.name)
	return d
}

func (d *Local) Name() string { return d.opts.name }

func (d *Local) Concurrent() bool { return false }

func (d *Local) eachSlot(fn func(*Slot) bool) {
	for _, s := range d.registry.All() {
		if !fn(*s) {
			return
		}
	}
}

func (d *Local) Acquire() *Slot {
	for _, s := range d.registry.All() {
		if (*s).TryAcquire() {
			return *s
		}
	}

	slot := new(Slot)
	*slot = newReservedSlot()
	d.registry.PushBack(slot)
	log.Debugf("domain %s: registry grew to %d slots", d.opts.name, d.registry.Len())
	return slot
}

func (d *Local) Retire(r Retired) {
	d.queue.PushBack(r)
	d.retired++
	d.TryReclaim()
}

func (d *Local) Reclaim() {
	d.passes++
	if d.queue.Len() == 0 {
		return
	}

	live := liveSet(d.live, d.eachSlot)

	freed := d.freed[:0]
	for h, r := range d.queue.All() {
		if _, ok := live[r.addr]; !ok {
			freed = append(freed, *r)
			d.queue.Remove(h)
		}
	}

	warnBacklog(d.opts.name, d.opts.backlogWarning, d.backlog, d.queue.Len())
	d.backlog = d.queue.Len()

	if len(freed) == 0 {
		return
	}
	d.reclaimed += uint64(len(freed))
	// a reclaimer may retire into this domain again, so the buffer is
	// detached while the batch runs
	d.freed = nil
	d.exec.run(freed)
	clear(freed)
	d.freed = freed[:0]
}

// TryReclaim never contends with anyone and always runs a pass
func (d *Local) TryReclaim() bool {
	d.Reclaim()
	return true
}

func (d *Local) Stats() Stats {
	s := Stats{
		Name:      d.opts.name,
		Pending:   d.queue.Len(),
		Retired:   d.retired,
		Reclaimed: d.reclaimed,
		Passes:    d.passes,
	}
	s.countSlots(d.eachSlot)
	return s
}

// WriteMetrics writes a snapshot of the domain's metrics. Like every other
// method it must be called from the goroutine that uses the domain.
func (d *Local) WriteMetrics(w io.Writer) {
	snapshot := d.Stats()
	newMetricSet(d.opts.name, func() Stats { return snapshot }).WritePrometheus(w)
}

func (d *Local) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.Reclaim()
	d.exec.close()
	log.Debugf("domain %s closed: %s", d.opts.name, d.Stats())
}
