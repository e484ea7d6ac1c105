// Package hazard implements hazard pointers: per-reader slots that announce which
// value a reader is about to dereference, and domains that defer the reclamation
// of replaced values until no slot announces them anymore.
//
// In Go the garbage collector keeps memory alive for as long as it is reachable,
// so reclaiming here means running a reclaimer callback (returning the value to a
// pool, zeroing it, closing it). The package guarantees that a reclaimer never runs
// while a slot of the same domain protects the value's address.
//
// Key Components:
//
//   - Slot: One atomically accessed word that is Free (nil), Reserved (owned but
//     idle) or Protecting an address. Readers acquire a slot from a domain once and
//     reuse it: Protect before dereferencing, Release when done, Free when the slot
//     is no longer needed.
//
//   - Retired: A replaced value together with its reclaimer. Retired values stay
//     queued (and reachable) until a reclamation pass finds them unprotected.
//
//   - Domain: Owns a registry of slots and a queue of retired values. Registries
//     only grow, slots are recycled by state transitions. A reclamation pass takes
//     a snapshot of every protected address and runs the reclaimers of all queued
//     values that are not in it.
//
// Implementations:
//
//	- Global: The process-wide domain returned by Default. Registry in a lock-free
//	  append-only stack, queue behind a mutex.
//
//	- Shared: Same design as Global but created with NewShared, so independent
//	  groups of cells do not contend on one registry.
//
//	- Local: No locks and no atomics on the bookkeeping. Must only be used from a
//	  single goroutine.
//
// Retire queues a value and runs a non-blocking pass (TryReclaim), which skips the
// pass if another goroutine holds the queue. Reclaim waits for the queue but never
// retries. Skipped passes only delay reclamation, they never lose a value.
//
// Domains can be registered by name (Register, Lookup) and expose their counters
// as Prometheus metrics (WriteMetrics, WritePrometheus).
package hazard
