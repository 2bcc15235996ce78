package bt

import "bytes"

// Comparator orders two schema-encoded key buffers. This is the bt
// package's own copy of the seam cond.Comparator describes; BT never
// imports cond (PLN/COND depend on bt, not the other way round), so a
// Comparator built by cond against a bt.Schema is handed in as this
// function type.
type Comparator func(a, b []byte) int

// PadComparator is the comparator selected for PAD-collated schemas.
// It compares two encoded keys byte-for-byte with bytes.Compare and
// applies no padding: trailing spaces are significant, so "a" and
// "a " compare unequal. It behaves exactly like NoPadComparator, and
// DecodeKey does not look at the collation either.
func PadComparator(a, b []byte) int {
	return bytes.Compare(a, b)
}

// NoPadComparator compares two encoded keys byte-for-byte with no
// implicit padding; for this layer's fixed big-endian / length-
// prefixed encoding it is identical to PadComparator, since neither
// encoding ever emits trailing pad bytes. It exists as a distinct,
// named entry point so callers (cursor search, FindSlot) select the
// collation-appropriate comparator explicitly, matching spec §3's
// requirement that "each field uses the comparator determined by its
// declared type and PAD/NO-PAD attribute."
func NoPadComparator(a, b []byte) int {
	return bytes.Compare(a, b)
}

// ComparatorFor resolves the page-level key comparator for a schema,
// per spec §3. Composite keys compare lexicographically field by
// field; since every field here is already self-delimiting
// (fixed-width or length-prefixed), a single whole-buffer byte
// comparison reproduces that field-by-field order directly.
func ComparatorFor(schema Schema) Comparator {
	for _, f := range schema.Fields {
		if f.Collation == NoPad {
			return NoPadComparator
		}
	}
	return PadComparator
}
