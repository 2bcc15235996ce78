package cond

import "strings"

// Full-width wildcard characters a LIKE pattern may use under a
// multi-byte collation, ADAPTED from spec §4.3's "Prefix match / LIKE"
// note: "Full-width wildcards are escaped and the escape character is
// replaced by an internal '*' before storage so that the ASCII cast in
// comparators is safe."
const (
	fullWidthPercent   = '％'
	fullWidthUnderscore = '＿'
	internalEscape     = '*'
)

// escapeLikeWildcards substitutes any literal internalEscape byte in
// value (which would otherwise collide with the storage-internal
// marker) and folds full-width wildcards down to their ASCII
// equivalents marked with the internal escape, before the pattern is
// written into a LimitCond/Cond buffer.
func escapeLikeWildcards(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case internalEscape:
			b.WriteRune(internalEscape)
			b.WriteRune(internalEscape)
		case fullWidthPercent:
			b.WriteRune(internalEscape)
			b.WriteByte('%')
		case fullWidthUnderscore:
			b.WriteRune(internalEscape)
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeLikeWildcards is the inverse of escapeLikeWildcards, used
// when reparsing a stored LIKE pattern back into its original form.
func unescapeLikeWildcards(value string) string {
	var b strings.Builder
	runes := []rune(value)
	for i := 0; i < len(runes); i++ {
		if runes[i] == internalEscape && i+1 < len(runes) {
			switch runes[i+1] {
			case internalEscape:
				b.WriteRune(internalEscape)
				i++
				continue
			case '%':
				b.WriteRune(fullWidthPercent)
				i++
				continue
			case '_':
				b.WriteRune(fullWidthUnderscore)
				i++
				continue
			}
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// LiteralPrefix returns the longest literal (wildcard-free) prefix of
// a LIKE pattern, used to convert a prefix-anchored LIKE into a range
// scan plus a residual Like-Cond (spec §4.3 "Prefix match / LIKE").
// ok is false if the pattern starts with a wildcard and so has no
// usable prefix at all.
func LiteralPrefix(pattern string, escape rune) (prefix string, ok bool) {
	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if escape != 0 && r == escape && i+1 < len(runes) {
			b.WriteRune(runes[i+1])
			i++
			continue
		}
		if r == '%' || r == '_' || r == fullWidthPercent || r == fullWidthUnderscore {
			break
		}
		b.WriteRune(r)
	}
	prefix = b.String()
	return prefix, len(prefix) > 0
}

// PrefixRange computes the [low, high) byte range a literal prefix
// implies under PAD collation, per spec §4.3: "COND converts it to a
// range [prefix, prefix+1)". The high end is derived by incrementing
// the last literal byte that is not 0xFF (incrementBytes).
func PrefixRange(prefix string) (low, high []byte) {
	low = []byte(prefix)
	high = incrementBytes(low)
	return low, high
}

// PrefixRangeNoPad is the entry point for NO-PAD collation. It returns
// exactly the range PrefixRange returns: the high bound increments the
// last literal byte of the prefix, and trailing spaces get no special
// handling under either collation.
func PrefixRangeNoPad(prefix string) (low, high []byte) {
	return PrefixRange(prefix)
}

// incrementBytes returns the smallest byte string greater than every
// string having b as a prefix, by incrementing the last byte that is
// not already 0xFF and truncating there; if every byte is 0xFF the
// range has no finite upper bound and nil is returned.
func incrementBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
