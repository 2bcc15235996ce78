package cond

// Term is one recognised predicate term after parsing and alternation:
// a field index, a match kind, and the parsed value chain. ADAPTED
// from the teacher's Condition::parse loop body (one LimitCond/Cond
// per recognised TreeNodeInterface node).
type Term struct {
	FieldIndex int
	Kind       MatchKind
	Values     *ParseValue
	// Collation is the PAD/NO-PAD requirement the predicate tree
	// declared for this term, ADAPTED from the teacher's isNoPad_
	// out-parameter on Condition::checkTwoTerm. Classify checks it
	// against the field's declared collation (spec §4.3 step 3).
	Collation Collation
}

// Parse walks one predicate-tree node and recognises the shapes spec
// §4.3 step 1 lists. It returns ok=false for any node this layer
// cannot turn into an index condition ("cannot-use-index"), exactly as
// the teacher's Condition::parse returns early on an unrecognised
// TreeNodeInterface::Type.
func Parse(n Node) (Term, bool) {
	switch n.Kind() {
	case Equals, NotEquals, GreaterThan, GreaterThanEquals, LessThan, LessThanEquals:
		return parseBinary(n)
	case EqualsToNull:
		return Term{FieldIndex: n.FieldIndex(), Kind: EqualsToNull, Collation: n.Collation()}, true
	case Like:
		return parseLike(n)
	default:
		return Term{}, false
	}
}

// parseBinary alternates the comparison so the field reference always
// ends up as the logical left operand, ADAPTED from the teacher's
// alternateTerm: "vN op field" is rewritten to "field op' vN" with the
// kind flipped (GreaterThan <-> LessThan, etc.) when the tree handed
// it to us the other way round.
func parseBinary(n Node) (Term, bool) {
	ops := n.Operands()
	if len(ops) != 2 {
		return Term{}, false
	}
	left, right := ops[0], ops[1]
	kind := n.Kind()

	if left.IsFieldReference() {
		return Term{FieldIndex: left.FieldIndex(), Kind: kind, Values: valueChain(right), Collation: n.Collation()}, true
	}
	if right.IsFieldReference() {
		return Term{FieldIndex: right.FieldIndex(), Kind: alternate(kind), Values: valueChain(left), Collation: n.Collation()}, true
	}
	return Term{}, false
}

// alternate flips a binary comparison kind when its operands are
// swapped, ADAPTED from the teacher's alternateTerm table.
func alternate(k MatchKind) MatchKind {
	switch k {
	case GreaterThan:
		return LessThan
	case GreaterThanEquals:
		return LessThanEquals
	case LessThan:
		return GreaterThan
	case LessThanEquals:
		return GreaterThanEquals
	default:
		// Equals/NotEquals are symmetric.
		return k
	}
}

// parseLike recognises Like(pattern[, escape]) and records the escape
// character on the parsed value, ADAPTED from the teacher's
// parseLikeNode.
func parseLike(n Node) (Term, bool) {
	if !n.IsFieldReference() {
		// Like's left operand must be the field itself; the teacher
		// never alternates Like.
		return Term{}, false
	}
	pv := &ParseValue{Kind: Like, Value: n.Literal(), OptionalChar: n.EscapeChar()}
	return Term{FieldIndex: n.FieldIndex(), Kind: Like, Values: pv, Collation: n.Collation()}, true
}

func valueChain(n Node) *ParseValue {
	return &ParseValue{Value: n.Literal()}
}

// Schema describes, for each field position, the collation the index
// declared for that field. Parse/Classify never see the full row
// schema — only the part relevant to collation checking (spec §4.3
// step 3).
type Schema struct {
	FieldCollation []Collation
}

func (s Schema) collationOf(fieldIndex int) Collation {
	if fieldIndex < 0 || fieldIndex >= len(s.FieldCollation) {
		return Pad
	}
	return s.FieldCollation[fieldIndex]
}

// Compiled is the output of Classify: the lower/upper scan bounds plus
// the residual conditions that must be re-checked per candidate entry
// after positioning (spec §4.3/§4.4: "Condition matching").
type Compiled struct {
	Lower          *LimitCond
	Upper          *LimitCond
	EqualFieldLen  int // length of the leading equality prefix
	Residual       []Cond
	Reverse        bool
}

// Classify assigns each parsed term to the lower bound, the upper
// bound, or the residual set, per spec §4.3 step 2: "The first key
// field may take both bounds; subsequent fields may only add an
// equality that extends the prefix — otherwise they go to residual."
// Successive equality terms accumulate into one concatenated prefix
// buffer (null-bitmap byte first, then each field's encoded bytes in
// field order) matching the multi-field key layout bt.EncodeKey
// produces, rather than each term replacing the last.
func Classify(terms []Term, schema Schema, encode func(Term) ([]byte, byte, error)) (Compiled, error) {
	out := Compiled{}
	equalPrefix := true

	var prefixFields [][]byte
	var prefixNullBitmap byte

	for _, t := range terms {
		if !checkCollation(t, schema) {
			out.Residual = append(out.Residual, toResidualCond(t))
			continue
		}

		if t.FieldIndex == 0 || (equalPrefix && t.Kind == Equals) {
			if !t.Kind.isBound() {
				out.Residual = append(out.Residual, toResidualCond(t))
				continue
			}
			buf, nullBit, err := encode(t)
			if err != nil {
				return out, err
			}
			switch t.Kind {
			case Equals:
				prefixFields = append(prefixFields, buf)
				if nullBit != 0 {
					prefixNullBitmap |= 1 << uint(t.FieldIndex)
				}
				total := 1
				for _, f := range prefixFields {
					total += len(f)
				}
				combined := make([]byte, 1, total)
				combined[0] = prefixNullBitmap
				for _, f := range prefixFields {
					combined = append(combined, f...)
				}
				lower := LimitCond{Kind: t.Kind, Buffer: combined, NullBitmap: prefixNullBitmap}
				upper := lower
				out.Lower = &lower
				out.Upper = &upper
				out.EqualFieldLen++
			case GreaterThan, GreaterThanEquals:
				out.Lower = &LimitCond{Kind: t.Kind, Buffer: buf, NullBitmap: nullBit}
				equalPrefix = false
			case LessThan, LessThanEquals:
				out.Upper = &LimitCond{Kind: t.Kind, Buffer: buf, NullBitmap: nullBit}
				equalPrefix = false
			}
			continue
		}

		out.Residual = append(out.Residual, toResidualCond(t))
	}

	return out, nil
}

func toResidualCond(t Term) Cond {
	var buf []byte
	var opt rune
	if t.Values != nil {
		buf = []byte(t.Values.Value)
		opt = t.Values.OptionalChar
	}
	return Cond{Kind: t.Kind, Buffer: buf, FieldID: t.FieldIndex, OptionalChar: opt}
}

// checkCollation confirms a non-leading or non-equality term's PAD/
// NO-PAD requirement matches the field's declared collation, per spec
// §4.3 step 3; on mismatch the caller demotes the term to residual.
// Equals terms are exempt: they are the only terms Classify ever lets
// extend the leading key prefix (spec §4.3 step 2), so they are never
// "non-leading or non-equality" in the first place.
func checkCollation(t Term, schema Schema) bool {
	if t.Kind == Equals {
		return true
	}
	return t.Collation == schema.collationOf(t.FieldIndex)
}
