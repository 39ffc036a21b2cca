// Package store provides SQLite-backed persistence for canonical datasets.
//
// An import writes three kinds of records:
//   - datasets: one row per import, identified by a UUIDv7
//   - columns: the three-level header of the imported table
//   - cells: every cell in long format, typed by kind
//
// # Idempotency
//
// Imports are keyed by UNIQUE(name, fingerprint), where the fingerprint is
// table.Fingerprint of the canonical CSV encoding. Saving the same content
// twice under one name returns the existing record.
//
// # Ordering
//
// seq is a logical import counter, never a timestamp. Listings use
// ORDER BY seq ASC, id COLLATE BINARY ASC and row selections use
// ORDER BY row_idx ASC, so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a dataset cascades to its columns and cells
package store
