// Package ambiguity reconciles history entries whose site label is not a
// known zone, typically free text brought in by a CSV import.
//
// Entries are grouped by their literal label so each distinct unknown label
// is resolved once. A Session walks the groups in discovery order:
//
//	Idle --Enqueue(non-empty)--> AwaitingChoice --Choose/Skip...--> Done
//
// In AwaitingChoice the operator picks a catalog zone for the current label
// and either rewrites every entry carrying it (ApplyAll) or only the next one
// (ApplyOne, the rest are asked about again right after). Skip leaves the
// group untouched. When the queue drains the session flushes the document
// once, which persists and re-normalizes it.
package ambiguity
