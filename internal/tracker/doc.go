// Package tracker owns the live injection document of one installation.
//
// A Tracker is the single writer: every mutation takes its lock, applies the
// change to a copy, persists it through the versioned store and then
// publishes the stored form. Validation failures leave the document
// untouched.
package tracker
