// Package stack provides a lock-free, append-only stack for registries that
// only ever grow.
//
// Features and Guarantees:
//
//   - Lock-Free Push: a single compare-and-swap retry loop on the top pointer
//   - Stable References: Push returns a pointer to the stored value that stays
//     valid for the lifetime of the stack (nodes are never removed)
//   - Lock-Free Iteration: Range and All traverse from the top at call time;
//     nodes pushed concurrently may or may not be observed
//   - Thread-Safe: any number of goroutines may Push and iterate concurrently
//
// There is no Pop. Entries are recycled in place by their owners (for example
// by switching a hazard slot back to free), never unlinked.
package stack
