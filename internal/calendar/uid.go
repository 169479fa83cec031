package calendar

import "github.com/google/uuid"

// UIDGenerator produces event UIDs.
type UIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event UIDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
