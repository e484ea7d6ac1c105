package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Domain kinds
// --------------------------------------------------------------------------

// DomainKind selects one of the reclamation domain variants
type DomainKind string

const (
	DomainGlobal DomainKind = "global" // process-wide default domain
	DomainShared DomainKind = "shared" // instance-scoped, safe for concurrent use
	DomainLocal  DomainKind = "local"  // instance-scoped, single goroutine only
)

// ParseDomainKind converts a string to a DomainKind
func ParseDomainKind(s string) (DomainKind, error) {
	switch DomainKind(strings.ToLower(strings.TrimSpace(s))) {
	case DomainGlobal:
		return DomainGlobal, nil
	case DomainShared:
		return DomainShared, nil
	case DomainLocal:
		return DomainLocal, nil
	default:
		return "", NewError(RetCInvalidConfig, fmt.Sprintf("invalid domain %q (expected one of: global, shared, local)", s))
	}
}

// --------------------------------------------------------------------------
// Stress configuration struct
// --------------------------------------------------------------------------

// StressConfig holds all parameters of a stress run
type StressConfig struct {
	// Domain variant the cell is bound to
	Domain DomainKind

	// Workers
	Readers int
	Writers int

	// How long the run lasts
	Duration time.Duration

	// Hold each read guard for this many extra reads of the same value
	HoldReads int

	// Run reclaimers on a background goroutine
	AsyncReclaim bool

	// Pending queue length that triggers a backlog warning
	BacklogWarning int

	// Logging configuration
	LogLevel string
}

// DefaultStressConfig returns the defaults used by the CLI
func DefaultStressConfig() StressConfig {
	return StressConfig{
		Domain:         DomainShared,
		Readers:        4,
		Writers:        1,
		Duration:       2 * time.Second,
		HoldReads:      8,
		BacklogWarning: 1024,
		LogLevel:       "info",
	}
}

// Validate checks the configuration for consistency
func (c *StressConfig) Validate() error {
	if _, err := ParseDomainKind(string(c.Domain)); err != nil {
		return err
	}
	if c.Readers < 0 || c.Writers < 1 {
		return NewError(RetCInvalidConfig, fmt.Sprintf("need at least one writer and a non-negative reader count (readers=%d, writers=%d)", c.Readers, c.Writers))
	}
	if c.Duration <= 0 {
		return NewError(RetCInvalidConfig, fmt.Sprintf("duration must be positive, got %s", c.Duration))
	}
	if c.Domain == DomainLocal && (c.Readers > 1 || c.Writers > 1) {
		return NewError(RetCInvalidConfig, "the local domain is single-threaded: use at most one reader and one writer")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *StressConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Domain")
	addField("Kind", string(c.Domain))
	addField("Async Reclaim", strconv.FormatBool(c.AsyncReclaim))
	addField("Backlog Warning", strconv.Itoa(c.BacklogWarning))

	addSection("Workload")
	addField("Readers", strconv.Itoa(c.Readers))
	addField("Writers", strconv.Itoa(c.Writers))
	addField("Duration", c.Duration.String())
	addField("Hold Reads", strconv.Itoa(c.HoldReads))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
