// Package util provides small building blocks shared by the hzrd packages.
//
// The package contains:
//   - lockfreempsc: A lock-free Multi-Producer Single-Consumer (MPSC) queue used to hand
//     retired values to a background reclaimer without blocking writers
//   - statistics: The spread of per-worker operation counts (min, median, max, standard
//     deviation) and a fairness score, used to report how evenly stress readers progressed
//   - functions: Seed generation and a fast 64-bit mixing function for payload checksums
package util
