package hazard

import (
	"fmt"
	"io"
	"sort"

	"github.com/ValentinKolb/hzrd/lib/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Named domains
// --------------------------------------------------------------------------

// named holds the domains that were registered by name
var named = xsync.NewMapOf[string, Domain]()

// Register makes d available through Lookup and WritePrometheus.
// Only domains that are safe for concurrent use can be registered, since
// other goroutines may look them up.
func Register(d Domain) error {
	if !d.Concurrent() {
		return common.NewError(common.RetCInvalidConfig, fmt.Sprintf("domain %s is not safe for concurrent use and cannot be registered", d.Name()))
	}
	if _, loaded := named.LoadOrStore(d.Name(), d); loaded {
		return common.NewError(common.RetCInvalidConfig, fmt.Sprintf("a domain named %s is already registered", d.Name()))
	}
	return nil
}

// Unregister removes the domain registered under name (if any)
func Unregister(name string) {
	named.Delete(name)
}

// Lookup returns the domain registered under name
func Lookup(name string) (Domain, bool) {
	return named.Load(name)
}

// Registered returns the names of all registered domains in sorted order
func Registered() []string {
	names := make([]string, 0, named.Size())
	named.Range(func(name string, _ Domain) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// WritePrometheus writes the metrics of every registered domain to w.
// If exposeProcessMetrics is set, the process and Go runtime metrics are
// written as well.
func WritePrometheus(w io.Writer, exposeProcessMetrics bool) {
	for _, name := range Registered() {
		if d, ok := Lookup(name); ok {
			d.WriteMetrics(w)
		}
	}
	if exposeProcessMetrics {
		metrics.WriteProcessMetrics(w)
	}
}
