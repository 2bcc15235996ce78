package cond_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/cond"
	"github.com/relstore/idxengine/internal/kernel"
)

// fakeNode is a minimal cond.Node good enough to drive Parse in tests,
// standing in for the external predicate-tree node spec §1 places out
// of scope.
type fakeNode struct {
	kind       cond.MatchKind
	fieldIndex int
	operands   []cond.Node
	isField    bool
	literal    string
	escape     rune
	collation  cond.Collation
}

func (f *fakeNode) Kind() cond.MatchKind      { return f.kind }
func (f *fakeNode) FieldIndex() int           { return f.fieldIndex }
func (f *fakeNode) Operand() cond.Node        { return nil }
func (f *fakeNode) IsFieldReference() bool    { return f.isField }
func (f *fakeNode) Literal() string           { return f.literal }
func (f *fakeNode) EscapeChar() rune          { return f.escape }
func (f *fakeNode) Operands() []cond.Node     { return f.operands }
func (f *fakeNode) Collation() cond.Collation { return f.collation }

func fieldRef(idx int) *fakeNode {
	return &fakeNode{fieldIndex: idx, isField: true}
}

func literal(v string) *fakeNode {
	return &fakeNode{literal: v}
}

// binary builds a node shaped like "field <kind> literal", alternated
// by Parse when handed the other way round.
func binary(kind cond.MatchKind, left, right cond.Node) *fakeNode {
	return &fakeNode{kind: kind, operands: []cond.Node{left, right}}
}

// Property 1 of spec §8: parse(emit(C)) == C (modulo the LIKE internal
// escape substitution).
func TestEmitParseRoundTrip(t *testing.T) {
	cases := []cond.Term{
		{FieldIndex: 0, Kind: cond.Equals, Values: &cond.ParseValue{Value: "10"}},
		{FieldIndex: 0, Kind: cond.GreaterThanEquals, Values: &cond.ParseValue{Value: "5"}},
		{FieldIndex: 1, Kind: cond.NotEquals, Values: &cond.ParseValue{Value: "x,y)z\\w"}},
		{FieldIndex: 2, Kind: cond.Like, Values: &cond.ParseValue{Value: "ab%", OptionalChar: '*'}},
		{FieldIndex: 0, Kind: cond.Equals, Values: &cond.ParseValue{Value: "5", Normalized: true}},
	}

	for _, want := range cases {
		s, err := cond.Emit(want)
		require.NoError(t, err)
		got, err := cond.Parse1(s)
		require.NoError(t, err)
		require.Equal(t, want.Kind, got.Kind)
		require.Equal(t, want.Values.Value, got.Values.Value)
		require.Equal(t, want.Values.OptionalChar, got.Values.OptionalChar)
		require.Equal(t, want.Values.Normalized, got.Values.Normalized)
	}
}

func TestEmitEscapesSpecialCharacters(t *testing.T) {
	term := cond.Term{Kind: cond.Equals, Values: &cond.ParseValue{Value: `a,b)c\d`}}
	s, err := cond.Emit(term)
	require.NoError(t, err)
	require.Contains(t, s, `a\,b\)c\\d`)

	got, err := cond.Parse1(s)
	require.NoError(t, err)
	require.Equal(t, `a,b)c\d`, got.Values.Value)
}

// Parse alternates a reversed binary comparison so the field reference
// is always the logical left operand.
func TestParseAlternatesReversedComparison(t *testing.T) {
	n := binary(cond.GreaterThan, literal("5"), fieldRef(0))
	term, ok := cond.Parse(n)
	require.True(t, ok)
	require.Equal(t, cond.LessThan, term.Kind)
	require.Equal(t, 0, term.FieldIndex)
	require.Equal(t, "5", term.Values.Value)
}

func TestParseUnrecognisedShapeCannotUseIndex(t *testing.T) {
	n := &fakeNode{kind: cond.Unknown}
	_, ok := cond.Parse(n)
	require.False(t, ok)
}

// S3 from spec §8: LIKE 'ab%' ESCAPE '*' on a PAD-collated VARCHAR key
// yields lower='ab', upper='ac'.
func TestLikePrefixPushDown(t *testing.T) {
	prefix, ok := cond.LiteralPrefix("ab%", '*')
	require.True(t, ok)
	require.Equal(t, "ab", prefix)

	low, high := cond.PrefixRange(prefix)
	require.Equal(t, []byte("ab"), low)
	require.Equal(t, []byte("ac"), high)
}

func TestLiteralPrefixAllWildcardHasNoPrefix(t *testing.T) {
	_, ok := cond.LiteralPrefix("%anything", 0)
	require.False(t, ok)
}

// Classify assigns the leading field both bounds for Equals, and
// demotes a non-leading inequality to the residual set.
func TestClassifyEqualsPrefixThenResidual(t *testing.T) {
	encode := func(t cond.Term) ([]byte, byte, error) {
		return []byte(t.Values.Value), 0, nil
	}
	terms := []cond.Term{
		{FieldIndex: 0, Kind: cond.Equals, Values: &cond.ParseValue{Value: "1"}},
		{FieldIndex: 1, Kind: cond.NotEquals, Values: &cond.ParseValue{Value: "2"}},
	}
	schema := cond.Schema{FieldCollation: []cond.Collation{cond.Pad, cond.Pad}}

	compiled, err := cond.Classify(terms, schema, encode)
	require.NoError(t, err)
	require.NotNil(t, compiled.Lower)
	require.NotNil(t, compiled.Upper)
	require.Equal(t, 1, compiled.EqualFieldLen)
	require.Len(t, compiled.Residual, 1)
	require.Equal(t, cond.NotEquals, compiled.Residual[0].Kind)
}

// A non-leading term whose declared collation disagrees with the
// field's own collation is demoted to residual rather than bounding
// the scan (spec §4.3 step 3).
func TestClassifyCollationMismatchDemotesToResidual(t *testing.T) {
	encode := func(t cond.Term) ([]byte, byte, error) {
		return []byte(t.Values.Value), 0, nil
	}
	terms := []cond.Term{
		{FieldIndex: 0, Kind: cond.Equals, Values: &cond.ParseValue{Value: "1"}},
		{FieldIndex: 1, Kind: cond.GreaterThan, Values: &cond.ParseValue{Value: "2"}, Collation: cond.NoPad},
	}
	schema := cond.Schema{FieldCollation: []cond.Collation{cond.Pad, cond.Pad}}

	compiled, err := cond.Classify(terms, schema, encode)
	require.NoError(t, err)
	require.Equal(t, 1, compiled.EqualFieldLen)
	require.Nil(t, compiled.Upper)
	require.Len(t, compiled.Residual, 1)
	require.Equal(t, cond.GreaterThan, compiled.Residual[0].Kind)
	require.Equal(t, 1, compiled.Residual[0].FieldID)
}

// The same term passes the collation check (and bounds the scan
// instead of going to residual) when its declared collation agrees
// with the field's.
func TestClassifyCollationMatchKeepsBound(t *testing.T) {
	encode := func(t cond.Term) ([]byte, byte, error) {
		return []byte(t.Values.Value), 0, nil
	}
	terms := []cond.Term{
		{FieldIndex: 0, Kind: cond.GreaterThan, Values: &cond.ParseValue{Value: "2"}, Collation: cond.NoPad},
	}
	schema := cond.Schema{FieldCollation: []cond.Collation{cond.NoPad}}

	compiled, err := cond.Classify(terms, schema, encode)
	require.NoError(t, err)
	require.NotNil(t, compiled.Lower)
	require.Empty(t, compiled.Residual)
}

// Two leading equality fields (f0 = 1 AND f1 = 2) concatenate into one
// prefix buffer instead of the second overwriting the first.
func TestClassifyMultiColumnEqualityConcatenatesPrefix(t *testing.T) {
	encode := func(t cond.Term) ([]byte, byte, error) {
		return []byte(t.Values.Value), 0, nil
	}
	terms := []cond.Term{
		{FieldIndex: 0, Kind: cond.Equals, Values: &cond.ParseValue{Value: "1"}},
		{FieldIndex: 1, Kind: cond.Equals, Values: &cond.ParseValue{Value: "2"}},
	}
	schema := cond.Schema{FieldCollation: []cond.Collation{cond.Pad, cond.Pad}}

	compiled, err := cond.Classify(terms, schema, encode)
	require.NoError(t, err)
	require.Equal(t, 2, compiled.EqualFieldLen)
	require.NotNil(t, compiled.Lower)
	require.NotNil(t, compiled.Upper)
	// leading null-bitmap byte, then "1" then "2" concatenated.
	require.Equal(t, []byte{0, '1', '2'}, compiled.Lower.Buffer)
	require.Equal(t, compiled.Lower.Buffer, compiled.Upper.Buffer)
	require.Empty(t, compiled.Residual)
}

func TestOpenOptionRoundTrip(t *testing.T) {
	terms := []cond.Term{
		{FieldIndex: 0, Kind: cond.Equals, Values: &cond.ParseValue{Value: "1"}},
		{FieldIndex: 1, Kind: cond.GreaterThan, Values: &cond.ParseValue{Value: "2"}},
	}
	compiled := cond.Compiled{EqualFieldLen: 1, Reverse: true}

	opt := kernel.NewOpenOption()
	require.NoError(t, cond.EmitOption(compiled, terms, opt))

	parsed, err := cond.ParseOption(opt)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.Equal(t, cond.Equals, parsed[0].Kind)
	require.Equal(t, cond.GreaterThan, parsed[1].Kind)
	require.True(t, opt.GetBool(kernel.Reverse))
}
