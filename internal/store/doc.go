// Package store provides SQLite-backed persistence for generation runs.
//
// A run records everything needed to reproduce a prime listing: its rule
// set (canonical JSON plus fingerprint), start value, target count, row
// width and output path. A checkpoint per run records how many primes have
// been written and the last one, and is updated after every flushed row, so
// an interrupted run can resume from last+1 without gaps or duplicates.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// uint64 values are stored as decimal text because SQLite integers are
// signed.
package store
