// Package common provides the configuration, error and logging plumbing
// shared by the hzrd library packages and the command-line tool.
//
// Key Components:
//
//   - StressConfig: Parameters of a stress run (domain kind, worker counts,
//     duration, reclaimer mode) with validation and a readable String() form.
//
//   - DomainKind: Names of the three reclamation domain variants
//     (global, shared, local).
//
//   - Error / RetCode: Typed errors for the tooling around the reclamation
//     protocol. The protocol itself never fails.
//
//   - Logger: Custom logging implementation plugged into dragonboat's logger
//     package, so every package can use logger.GetLogger(name) and the CLI
//     controls the level in one place.
package common
