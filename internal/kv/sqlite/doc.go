// Package sqlite provides a SQLite-backed kv backend.
//
// Values live in a single kv_entries table keyed by TEXT. The database is
// configured with:
//   - WAL mode
//   - synchronous=NORMAL
//   - busy_timeout=5000
//
// Schema changes are applied as a linear chain keyed on PRAGMA user_version.
package sqlite
