package hazard

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/ValentinKolb/hzrd/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("hazard")

// defaultBacklogWarning is the pending queue length above which a domain logs a warning
const defaultBacklogWarning = 1024

// domainSeq numbers automatically named domains
var domainSeq atomic.Uint64

// --------------------------------------------------------------------------
// Domain Interface
// --------------------------------------------------------------------------

// Domain owns a registry of hazard slots and a queue of retired values.
//
// Slots handed out by Acquire stay valid for the lifetime of the domain; they
// are recycled through Free, never removed.
type Domain interface {
	// Name returns the name of the domain (used in logs and metrics).
	Name() string

	// Acquire returns a slot owned by the caller (state Reserved). A free slot
	// of the registry is reused if there is one, otherwise the registry grows.
	Acquire() *Slot

	// Retire queues r and opportunistically tries to reclaim.
	Retire(r Retired)

	// Reclaim runs the reclaimer of every retired value that no slot protects.
	// It may block to acquire the queue but never retries.
	Reclaim()

	// TryReclaim is like Reclaim but never blocks. It returns false if the
	// queue was busy and nothing was attempted.
	TryReclaim() bool

	// Concurrent reports whether the domain may be used from several
	// goroutines at once.
	Concurrent() bool

	// Stats returns a snapshot of the domain's bookkeeping.
	Stats() Stats

	// WriteMetrics writes the domain's metrics in Prometheus text format.
	WriteMetrics(w io.Writer)

	// Close reclaims what can be reclaimed and stops a background reclaimer.
	// Retired values that are still protected stay queued.
	Close()
}

// --------------------------------------------------------------------------
// Stats
// --------------------------------------------------------------------------

// Stats is a snapshot of a domain's bookkeeping
type Stats struct {
	Name       string `json:"name"`
	Slots      int    `json:"slots"`       // slots in the registry
	Owned      int    `json:"owned"`       // slots that are Reserved or Protecting
	Protecting int    `json:"protecting"`  // slots that protect an address
	Pending    int    `json:"pending"`     // retired values waiting for reclamation
	Retired    uint64 `json:"retired"`     // values retired since creation
	Reclaimed  uint64 `json:"reclaimed"`   // values reclaimed since creation
	Passes     uint64 `json:"passes"`      // reclamation passes that ran
	Skipped    uint64 `json:"skipped"`     // passes skipped because the queue was busy
}

func (s Stats) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("domain %s: ", s.Name))
	sb.WriteString(fmt.Sprintf("slots=%d owned=%d protecting=%d ", s.Slots, s.Owned, s.Protecting))
	sb.WriteString(fmt.Sprintf("pending=%d retired=%d reclaimed=%d ", s.Pending, s.Retired, s.Reclaimed))
	sb.WriteString(fmt.Sprintf("passes=%d skipped=%d", s.Passes, s.Skipped))
	return sb.String()
}

// countSlots fills the slot counters of s from a slot iterator
func (s *Stats) countSlots(each func(func(*Slot) bool)) {
	each(func(slot *Slot) bool {
		s.Slots++
		switch slot.State() {
		case StateReserved:
			s.Owned++
		case StateProtecting:
			s.Owned++
			s.Protecting++
		}
		return true
	})
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	name           string
	async          bool
	backlogWarning int
}

// Option configures a domain
type Option func(*options)

// WithName sets the name of the domain. Names are used in log lines, metric
// labels and the named registry.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithAsyncReclaim runs reclaimers on a background goroutine instead of the
// goroutine that triggered the reclamation pass.
func WithAsyncReclaim() Option {
	return func(o *options) { o.async = true }
}

// WithBacklogWarning sets the pending queue length above which a warning is
// logged (0 disables the warning).
func WithBacklogWarning(n int) Option {
	return func(o *options) { o.backlogWarning = n }
}

func newOptions(prefix string, opts []Option) options {
	o := options{backlogWarning: defaultBacklogWarning}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = fmt.Sprintf("%s-%d", prefix, domainSeq.Add(1))
	}
	return o
}

// --------------------------------------------------------------------------
// Reclaimer execution
// --------------------------------------------------------------------------

// executor runs the reclaimers of values that passed a reclamation pass
type executor interface {
	run(batch []Retired)
	close()
}

// inlineExecutor runs reclaimers on the calling goroutine
type inlineExecutor struct{}

func (inlineExecutor) run(batch []Retired) {
	for _, r := range batch {
		r.run()
	}
}

func (inlineExecutor) close() {}

// asyncExecutor hands reclaimers to a background goroutine through a lock-free queue
type asyncExecutor struct {
	queue *util.LockFreeMPSC[Retired]
	done  chan struct{}
}

func newAsyncExecutor() *asyncExecutor {
	e := &asyncExecutor{
		queue: util.NewLockFreeMPSC[Retired](),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(e.done)
		for r := range e.queue.Recv() {
			r.run()
		}
	}()
	return e
}

func (e *asyncExecutor) run(batch []Retired) {
	for i := range batch {
		r := batch[i]
		// the queue is closed: nothing protects r anymore, run it here
		if !e.queue.Push(&r) {
			r.run()
		}
	}
}

// close stops the background goroutine after all queued reclaimers ran
func (e *asyncExecutor) close() {
	e.queue.Close()
	<-e.done
}

func newExecutor(o options) executor {
	if o.async {
		return newAsyncExecutor()
	}
	return inlineExecutor{}
}

// --------------------------------------------------------------------------
// Reclamation pass (shared by all variants)
// --------------------------------------------------------------------------

// liveSet collects the addresses protected by the slots yielded by each.
// set is cleared and reused.
func liveSet(set map[unsafe.Pointer]struct{}, each func(func(*Slot) bool)) map[unsafe.Pointer]struct{} {
	clear(set)
	each(func(s *Slot) bool {
		if p := s.Protected(); p != nil {
			set[p] = struct{}{}
		}
		return true
	})
	return set
}

// warnBacklog logs a warning when the pending count crosses the threshold upward
func warnBacklog(name string, threshold, before, after int) {
	if threshold > 0 && before <= threshold && after > threshold {
		log.Warningf("domain %s: %d retired values are still protected (threshold %d)", name, after, threshold)
	}
}
