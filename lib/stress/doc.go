// Package stress exercises cells and their reclamation domains under load.
//
// Run starts readers and writers against one cell for a fixed duration. Writers
// publish pooled payloads whose checksum is derived from a sequence number, and
// the reclaimer poisons every replaced payload before it goes back to the pool.
// Readers hold each value for a number of extra checks while writers keep
// replacing it, so a value that was reclaimed too early shows up as a violation.
//
// The Result reports throughput, sampled latencies, the spread of reads over the
// readers, the domain's statistics and the number of violations.
//
// Scenarios are small fixed programs with a pass/fail outcome:
//   - wake: a reader spins until it sees the value set once by a writer
//   - shared: two cells in one Shared domain, one read while the other is written
package stress
