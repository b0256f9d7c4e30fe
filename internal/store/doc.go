// Package store provides SQLite-backed durable storage for chainexec.
//
// The store holds:
//   - Invocations: one record per top-level execution, with its outcome
//   - Sink writes: every value a store step tried to write, by invocation
//   - Scores, data compounds and boss bars written through Backend
//   - A world snapshot saved and loaded with SaveWorld and LoadWorld
//
// # Ordering
//
// Invocations are ordered by their logical seq, never by wall time, and
// sink writes by their position within the invocation:
//
//	ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Encoding
//
// Data compounds are stored in the canonical encoding of package data, so
// tag types survive a round trip and equal compounds store equal text.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
