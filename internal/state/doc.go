// Package state defines the tracker's persisted document and the
// normalization gate every document passes through.
//
// There are two ways into a Document:
//   - NormalizeState coerces arbitrary decoded JSON (map[string]any, []any,
//     float64, ...) into a valid document.
//   - Normalize re-applies the same invariants to an already typed document,
//     which is what the save path does after the caller mutated it.
//
// Invariants after either call:
//   - history is sorted ascending by ts (stable)
//   - interval is a positive number of weeks (default 8)
//   - zones is a non-empty subset of the catalog
//   - schemaVersion is CurrentSchemaVersion
//
// Both functions are total and idempotent. Older document shapes are brought
// forward with Upgrade, which runs the migration chain in migrate.go before
// normalizing.
package state
