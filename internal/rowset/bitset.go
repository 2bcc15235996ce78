// Package rowset implements the row-id bitset shared by VEC's and BT's
// getByBitSet and every PLN bitset combinator (VEC's page-occupancy
// bitmap is kept as raw page bytes instead) (AND/OR/NOT, spec §4.4.3). It is a thin wrapper over
// github.com/bits-and-blooms/bitset, the bitset library the retrieval
// pack itself reaches for when it needs a compact set of integers.
package rowset

import "github.com/bits-and-blooms/bitset"

// Set is an ordered set of row-ids (uint32 handles, per the GLOSSARY).
type Set struct {
	bits *bitset.BitSet
}

// New returns an empty set with room preallocated for hint row-ids.
func New(hint uint) *Set {
	return &Set{bits: bitset.New(hint)}
}

// FromSlice builds a set containing exactly the given row-ids.
func FromSlice(rowIDs []uint32) *Set {
	s := New(uint(len(rowIDs)))
	for _, id := range rowIDs {
		s.Add(id)
	}
	return s
}

func (s *Set) Add(rowID uint32)    { s.bits.Set(uint(rowID)) }
func (s *Set) Remove(rowID uint32) { s.bits.Clear(uint(rowID)) }
func (s *Set) Test(rowID uint32) bool {
	return s.bits.Test(uint(rowID))
}
func (s *Set) Len() uint { return uint(s.bits.Count()) }

// IsEmpty reports whether the set has no members, per the IsEmpty
// predicate grounded on original_source's
// Kernel/Execution/Execution/Predicate/IsEmpty.h.
func (s *Set) IsEmpty() bool { return s.bits.None() }

// Union returns a new set that is the union (OR) of s and other. Used
// by PLN's OR combinator (spec §4.4.3) when every operand is a BitSet
// bucket.
func (s *Set) Union(other *Set) *Set {
	return &Set{bits: s.bits.Union(other.bits)}
}

// Intersect returns a new set that is the intersection (AND) of s and
// other. Used by PLN's AND combinator.
func (s *Set) Intersect(other *Set) *Set {
	return &Set{bits: s.bits.Intersection(other.bits)}
}

// Difference returns a new set containing members of s not in other.
// Used by PLN's NOT combinator, complementing against a narrowing set.
func (s *Set) Difference(other *Set) *Set {
	return &Set{bits: s.bits.Difference(other.bits)}
}

// UnionInPlace merges other into s, mutating s. Used when a single
// index's getByBitSet result is unioned directly into a caller-owned
// accumulator (spec §4.1 getByBitSet).
func (s *Set) UnionInPlace(other *Set) {
	s.bits.InPlaceUnion(other.bits)
}

// Each calls fn once per set member in ascending order, stopping early
// if fn returns false. This is the enumeration primitive
// iter.BitSetScan builds on.
func (s *Set) Each(fn func(rowID uint32) bool) {
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		if !fn(uint32(i)) {
			return
		}
	}
}

// Slice materialises the set members in ascending order.
func (s *Set) Slice() []uint32 {
	out := make([]uint32, 0, s.Len())
	s.Each(func(rowID uint32) bool {
		out = append(out, rowID)
		return true
	})
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return &Set{bits: s.bits.Clone()}
}
