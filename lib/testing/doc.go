// Package testing provides standardised tests and benchmarks for
// reclamation domains that satisfy the hazard.Domain interface.
//
// The package contains:
//   - testing: A test suite for the domain contract (slot acquisition and reuse,
//     reclamation safety and liveness, statistics, concurrent readers and writers)
//   - benchmark: Performance tests for slot acquisition, retirement and the
//     protected read loop
//
// Tests that need concurrent access are skipped for domains that are not safe
// for concurrent use (hazard.Local).
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() hazard.Domain {
//		return hazard.NewShared()
//	}
//
//	// Running the standard test suite
//	testing.RunDomainTests(t, "Shared", factory)
//
//	// Running performance benchmarks
//	testing.RunDomainBenchmarks(b, "Shared", factory)
package testing
