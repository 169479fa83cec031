// Package zone holds the fixed catalog of body sites that injections may be
// rotated across.
//
// The catalog is an ordered, deduplicated list of labels. Membership is the
// only notion of validity the rest of the tracker relies on; regions exist for
// presentation and for ranking suggestions when an unknown label has to be
// mapped back onto the catalog.
//
// The catalog is process-wide and immutable. Every accessor returns a copy.
package zone
