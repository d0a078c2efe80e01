// Package store provides SQLite-backed run history for scriptsync.
//
// Every export and import is recorded as a run: when it started, how it
// ended, how many slots and files it touched, and a BLAKE3 digest of the
// archive it read or wrote. The start time of the latest successful export
// is the "last run" timestamp consulted by the staleness gate.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Queries order by seq (insertion order), never by timestamp, so history
// reads are stable even when the wall clock jumps backwards.
package store
