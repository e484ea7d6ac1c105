package stress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/hzrd/lib/cell"
	"github.com/ValentinKolb/hzrd/lib/common"
	"github.com/ValentinKolb/hzrd/lib/hazard"
)

// Scenario is a small fixed concurrency scenario with a pass/fail outcome
type Scenario struct {
	Name        string
	Description string
	run         func(ctx context.Context) error
}

var scenarios = map[string]Scenario{
	"wake": {
		Name:        "wake",
		Description: "a reader spins until it observes the value a writer sets once after a short delay",
		run:         wakeScenario,
	},
	"shared": {
		Name:        "shared",
		Description: "two cells share a domain, one is read in a loop while the other is written 1000 times",
		run:         sharedScenario,
	},
}

// Scenarios returns all scenarios sorted by name
func Scenarios() []Scenario {
	out := make([]Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunScenario runs the scenario with the given name. It fails with a Timeout
// error if ctx expires first.
func RunScenario(ctx context.Context, name string) error {
	s, ok := scenarios[name]
	if !ok {
		return common.NewError(common.RetCInvalidConfig, fmt.Sprintf("unknown scenario %q", name))
	}

	log.Infof("running scenario %s", name)
	start := time.Now()
	if err := s.run(ctx); err != nil {
		return fmt.Errorf("scenario %s: %w", name, err)
	}
	log.Infof("scenario %s passed in %s", name, time.Since(start).Round(time.Microsecond))
	return nil
}

func timeout(ctx context.Context, what string) error {
	return common.NewError(common.RetCTimeout, fmt.Sprintf("%s: %v", what, ctx.Err()))
}

// wakeScenario: the cell starts at 0, a writer sets 1 after a delay, the
// reader must see 1 eventually and nothing but 0 or 1 before
func wakeScenario(ctx context.Context) error {
	c := cell.New(0)
	defer c.Close()

	result := make(chan error, 1)
	go func() {
		r := c.Reader()
		defer r.Close()
		for ctx.Err() == nil {
			switch v := r.Get(); v {
			case 1:
				result <- nil
				return
			case 0:
			default:
				result <- common.NewError(common.RetCViolation, fmt.Sprintf("reader observed %d", v))
				return
			}
		}
		result <- timeout(ctx, "reader never observed the written value")
	}()

	go func() {
		select {
		case <-time.After(10 * time.Millisecond):
			c.Set(1)
		case <-ctx.Done():
		}
	}()

	return <-result
}

// sharedScenario: every value read from the written cell must be one of
// 0..1000 and must not have been reclaimed
func sharedScenario(ctx context.Context) error {
	const writes = 1000

	d := hazard.NewShared(hazard.WithName("scenario-shared"))
	defer d.Close()

	type value struct {
		n    int
		dead atomic.Bool
	}
	poison := func(v *value) { v.dead.Store(true) }

	idle := cell.NewFromPointer(&value{}, cell.WithDomain[value](d), cell.WithReclaimer(poison))
	written := cell.NewFromPointer(&value{}, cell.WithDomain[value](d), cell.WithReclaimer(poison))
	defer idle.Close()
	defer written.Close()

	var stop atomic.Bool
	var bad atomic.Int64
	var observed atomic.Int64
	var wg sync.WaitGroup

	for _, target := range []*cell.Cell[value]{idle, written} {
		wg.Add(1)
		go func(target *cell.Cell[value]) {
			defer wg.Done()
			r := target.Reader()
			defer r.Close()
			for !stop.Load() {
				g := r.Read()
				v := g.Value()
				if v.dead.Load() || v.n < 0 || v.n > writes {
					bad.Add(1)
				}
				g.Release()
				observed.Add(1)
			}
		}(target)
	}

	var err error
	for i := 1; i <= writes; i++ {
		if ctx.Err() != nil {
			err = timeout(ctx, fmt.Sprintf("only %d of %d writes done", i-1, writes))
			break
		}
		written.SetPointer(&value{n: i})
	}
	stop.Store(true)
	wg.Wait()

	if err != nil {
		return err
	}
	if n := bad.Load(); n > 0 {
		return common.NewError(common.RetCViolation, fmt.Sprintf("%d of %d reads observed a reclaimed or unknown value", n, observed.Load()))
	}
	return nil
}
