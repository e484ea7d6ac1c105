// Package cmd implements the command-line interface of hzrd. It provides
// commands to exercise cells and reclamation domains under load.
//
// The package is organized into several subpackages:
//
//   - stress: Runs readers and writers against one cell and reports throughput,
//     latencies, reclamation statistics and safety violations
//   - scenario: Runs small fixed scenarios with a pass/fail outcome
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See hzrd -help for a list of all commands.
package cmd
