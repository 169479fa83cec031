// Package store is the durable home of the tracker document.
//
// A Store persists one document under a primary key and keeps the previous
// blob under a backup key (primary + ".bak"). Every write is preceded by a
// copy of the current primary into the backup slot, so the backup always
// holds the blob that was primary before the latest write and never a
// partially written one.
//
// # Load
//
//  1. Read and parse the primary blob.
//  2. If it is missing, unreadable, unparseable or not a JSON object, read
//     the backup instead; if that fails too, start from a fresh document.
//  3. Copy whatever was read into the backup slot, unconditionally.
//  4. Upgrade (legacy conversion or normalization) and write the result as
//     the new primary.
//
// # Failure model
//
// Backend errors never escape. Read failures are treated as absent keys and
// write failures are skipped; both are logged and counted. The in-memory
// document returned to the caller stays authoritative for the session.
package store
