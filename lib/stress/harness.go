package stress

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/hzrd/lib/cell"
	"github.com/ValentinKolb/hzrd/lib/common"
	"github.com/ValentinKolb/hzrd/lib/hazard"
	"github.com/ValentinKolb/hzrd/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("stress")

// sampleEvery controls how often a read is timed (timing every read would
// serialise the readers on the timer's sample)
const sampleEvery = 64

// newDomain creates the domain for a run. The returned bool reports whether
// the run owns the domain and has to close it.
func newDomain(cfg common.StressConfig) (hazard.Domain, bool) {
	opts := []hazard.Option{hazard.WithBacklogWarning(cfg.BacklogWarning)}
	if cfg.AsyncReclaim {
		opts = append(opts, hazard.WithAsyncReclaim())
	}

	switch cfg.Domain {
	case common.DomainGlobal:
		if cfg.AsyncReclaim {
			log.Warningf("the global domain always reclaims inline, ignoring async reclaim")
		}
		return hazard.Default(), false
	case common.DomainLocal:
		return hazard.NewLocal(opts...), true
	default:
		return hazard.NewShared(opts...), true
	}
}

// --------------------------------------------------------------------------
// Run state
// --------------------------------------------------------------------------

type run struct {
	cfg    common.StressConfig
	seed   uint64
	domain hazard.Domain
	cell   *cell.Cell[payload]
	pool   *Pool[payload]
	stop   atomic.Bool

	seq        atomic.Uint64 // last sequence number handed to a writer
	writes     atomic.Uint64
	recycled   atomic.Uint64
	violations atomic.Uint64
	observed   *xsync.MapOf[uint64, struct{}]

	registry   gometrics.Registry
	readTimer  gometrics.Timer
	writeTimer gometrics.Timer
}

func newRun(cfg common.StressConfig) (*run, bool) {
	domain, owned := newDomain(cfg)
	r := &run{
		cfg:      cfg,
		seed:     util.GenerateSeed(),
		domain:   domain,
		pool:     NewPool(func() *payload { return &payload{} }),
		observed: xsync.NewMapOf[uint64, struct{}](),
		registry: gometrics.NewRegistry(),
	}
	r.readTimer = gometrics.NewRegisteredTimer("read", r.registry)
	r.writeTimer = gometrics.NewRegisteredTimer("write", r.registry)

	first := r.pool.Get().fill(0, r.seed)
	r.cell = cell.NewFromPointer(first,
		cell.WithDomain[payload](domain),
		cell.WithReclaimer(r.reclaim),
	)
	return r, owned
}

// reclaim poisons a replaced payload and returns it to the pool
func (r *run) reclaim(p *payload) {
	p.recycle()
	r.recycled.Add(1)
	r.pool.Put(p)
}

func (r *run) write() {
	start := time.Now()
	p := r.pool.Get().fill(r.seq.Add(1), r.seed)
	r.cell.SetPointer(p)
	r.writes.Add(1)
	r.writeTimer.UpdateSince(start)
}

// noneSeen is the initial last-seen sequence number of a reader, so that its
// first observation is recorded even if it is the initial payload
const noneSeen = ^uint64(0)

// read protects the current payload and verifies it HoldReads+1 times before
// releasing it. last is the sequence number the reader saw before (noneSeen
// for a fresh reader).
func (r *run) read(rd *cell.Reader[payload], last *uint64, timed bool) {
	var start time.Time
	if timed {
		start = time.Now()
	}

	g := rd.Read()
	p := g.Value()
	seq := p.seq
	for i := 0; i <= r.cfg.HoldReads; i++ {
		if !p.valid(r.seed) || p.seq != seq {
			r.violation("payload %d changed while it was protected", seq)
			break
		}
		if i < r.cfg.HoldReads {
			runtime.Gosched()
		}
	}
	g.Release()

	if seq > r.seq.Load() {
		r.violation("observed payload %d that was never written", seq)
	}
	if seq != *last {
		r.observed.Store(seq, struct{}{})
		*last = seq
	}

	if timed {
		r.readTimer.UpdateSince(start)
	}
}

func (r *run) violation(format string, args ...any) {
	// only the first violation is logged, the rest is counted
	if r.violations.Add(1) == 1 {
		log.Errorf(format, args...)
	}
}

// --------------------------------------------------------------------------
// Workers
// --------------------------------------------------------------------------

// runConcurrent starts one goroutine per reader and writer and returns the
// number of reads per reader
func (r *run) runConcurrent() []uint64 {
	perReader := make([]uint64, r.cfg.Readers)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rd := r.cell.Reader()
			defer rd.Close()

			last := noneSeen
			var n uint64
			for !r.stop.Load() {
				r.read(rd, &last, n%sampleEvery == 0)
				n++
			}
			perReader[i] = n
		}(i)
	}

	for i := 0; i < r.cfg.Writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !r.stop.Load() {
				r.write()
				// let readers that hold a value across Gosched run
				runtime.Gosched()
			}
		}()
	}

	wg.Wait()
	return perReader
}

// runSingle interleaves writes and reads on the calling goroutine (local domains)
func (r *run) runSingle() []uint64 {
	var rd *cell.Reader[payload]
	if r.cfg.Readers > 0 {
		rd = r.cell.Reader()
		defer rd.Close()
	}

	last := noneSeen
	var n uint64
	for !r.stop.Load() {
		r.write()
		if rd != nil {
			r.read(rd, &last, n%sampleEvery == 0)
			n++
		}
	}

	if rd == nil {
		return nil
	}
	return []uint64{n}
}

// --------------------------------------------------------------------------
// Run
// --------------------------------------------------------------------------

// Run executes a stress run against a cell bound to the configured domain
// until the configured duration elapsed or ctx is cancelled.
//
// The returned error is non-nil if the configuration is invalid or a reader
// observed a value that was reclaimed or never written. In the latter case the
// result is returned as well.
func Run(ctx context.Context, cfg common.StressConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r, owned := newRun(cfg)
	defer r.readTimer.Stop()
	defer r.writeTimer.Stop()

	log.Infof("starting stress run on domain %s (%d readers, %d writers, %s)",
		r.domain.Name(), cfg.Readers, cfg.Writers, cfg.Duration)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()
	go func() {
		<-ctx.Done()
		r.stop.Store(true)
	}()

	start := time.Now()
	var perReader []uint64
	if cfg.Domain == common.DomainLocal {
		perReader = r.runSingle()
	} else {
		perReader = r.runConcurrent()
	}
	elapsed := time.Since(start)

	// every reader is gone, so after this everything must be reclaimable
	r.cell.Close()
	if owned {
		r.domain.Close()
	} else {
		r.domain.Reclaim()
	}

	res := r.result(elapsed, perReader)
	log.Infof("stress run on domain %s finished: %d reads, %d writes, %d violations",
		r.domain.Name(), res.Reads, res.Writes, res.Violations)

	return res, res.Err()
}

func (r *run) result(elapsed time.Duration, perReader []uint64) *Result {
	spread := util.NewSpread(perReader)
	writes := r.writes.Load()

	var prom bytes.Buffer
	r.domain.WriteMetrics(&prom)

	res := &Result{
		Config:       r.cfg,
		Elapsed:      elapsed,
		Reads:        spread.Total,
		Writes:       writes,
		Distinct:     r.observed.Size(),
		Recycled:     r.recycled.Load(),
		Violations:   r.violations.Load(),
		Readers:      spread,
		ReadLatency:  newLatency(r.readTimer),
		WriteLatency: newLatency(r.writeTimer),
		Domain:       r.domain.Stats(),
		Prometheus:   prom.String(),
		Timers:       r.registry,
	}
	// the initial payload is retired by Close as well
	if total := writes + 1; res.Recycled < total {
		res.Unreclaimed = total - res.Recycled
	}
	return res
}

// --------------------------------------------------------------------------
// Result
// --------------------------------------------------------------------------

// Latency summarises a timer
type Latency struct {
	Count int64         `json:"count"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

func newLatency(t gometrics.Timer) Latency {
	s := t.Snapshot()
	ps := s.Percentiles([]float64{0.5, 0.99})
	return Latency{
		Count: s.Count(),
		Mean:  time.Duration(s.Mean()),
		P50:   time.Duration(ps[0]),
		P99:   time.Duration(ps[1]),
		Max:   time.Duration(s.Max()),
	}
}

func (l Latency) String() string {
	return fmt.Sprintf("n=%d mean=%s p50=%s p99=%s max=%s", l.Count, l.Mean, l.P50, l.P99, l.Max)
}

// Result is the outcome of a stress run
type Result struct {
	Config  common.StressConfig `json:"config"`
	Elapsed time.Duration       `json:"elapsed"`

	Reads    uint64 `json:"reads"`
	Writes   uint64 `json:"writes"`
	Distinct int    `json:"distinct"` // distinct values observed by readers

	Recycled    uint64 `json:"recycled"`    // payloads whose reclaimer ran
	Unreclaimed uint64 `json:"unreclaimed"` // payloads still queued after the final pass
	Violations  uint64 `json:"violations"`

	ReadLatency  Latency                `json:"read_latency"`  // sampled
	WriteLatency Latency                `json:"write_latency"`
	Readers      util.Spread            `json:"readers"` // reads per reader
	Domain       hazard.Stats           `json:"domain"`

	Prometheus string             `json:"-"` // domain metrics in Prometheus text format
	Timers     gometrics.Registry `json:"-"`
}

// Err returns a Violation error if a reader observed an invalid value
func (r *Result) Err() error {
	if r.Violations == 0 {
		return nil
	}
	return common.NewError(common.RetCViolation, fmt.Sprintf("%d reads observed a reclaimed or unknown value", r.Violations))
}

// String returns a formatted report of the run
func (r *Result) String() string {
	var sb bytes.Buffer

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", title))
	}

	addField := func(name string, value any) {
		sb.WriteString(fmt.Sprintf("  %-22s: %v\n", name, value))
	}

	perSecond := func(n uint64) string {
		if r.Elapsed <= 0 {
			return "-"
		}
		return fmt.Sprintf("%.0f/s", float64(n)/r.Elapsed.Seconds())
	}

	addSection("THROUGHPUT")
	addField("Elapsed", r.Elapsed.Round(time.Millisecond))
	addField("Reads", fmt.Sprintf("%d (%s)", r.Reads, perSecond(r.Reads)))
	addField("Writes", fmt.Sprintf("%d (%s)", r.Writes, perSecond(r.Writes)))
	addField("Distinct Observed", r.Distinct)

	addSection("LATENCY")
	addField("Read", r.ReadLatency)
	addField("Write", r.WriteLatency)

	if r.Config.Readers > 0 {
		addSection("READERS")
		addField("Reads per Reader", r.Readers)
	}

	addSection("RECLAMATION")
	addField("Recycled", r.Recycled)
	addField("Unreclaimed", r.Unreclaimed)
	addField("Domain", r.Domain)

	addSection("SAFETY")
	addField("Violations", r.Violations)

	return sb.String()
}
