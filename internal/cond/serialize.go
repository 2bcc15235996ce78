package cond

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/relstore/idxengine/internal/kernel"
)

// tag is the short text marker each MatchKind serialises under, per
// spec §4.3 step 4, ADAPTED from the teacher's ParseValue::putStream
// switch over TreeNodeInterface::Type.
func (k MatchKind) tag() (string, bool) {
	switch k {
	case Equals:
		return "eq", true
	case GreaterThan:
		return "gt", true
	case GreaterThanEquals:
		return "ge", true
	case LessThan:
		return "lt", true
	case LessThanEquals:
		return "le", true
	case NotEquals:
		return "ne", true
	case Like:
		return "lk", true
	case EqualsToNull:
		return "nl", true
	case Unknown:
		return "uk", true
	default:
		return "", false
	}
}

var tagToKind = map[string]MatchKind{
	"eq": Equals,
	"gt": GreaterThan,
	"ge": GreaterThanEquals,
	"lt": LessThan,
	"le": LessThanEquals,
	"ne": NotEquals,
	"lk": Like,
	"nl": EqualsToNull,
	"uk": Unknown,
}

// escapeValue backslash-escapes '\', ',' and ')' in a value before it
// is embedded in the `#tag(...)` form, ADAPTED from the teacher's
// ParseValue::putStreamValue.
func escapeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ',', ')':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// unescapeValue reverses escapeValue, ADAPTED from
// ParseValue::getStreamValue.
func unescapeValue(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Emit serialises one parsed term's value chain into the
// `#tag(value[,#oc(c)][,#ns])` text form of spec §4.3 step 4, ADAPTED
// from ParseValue::putStream. Like values are additionally passed
// through the full-width-wildcard escape substitution (like.go)
// before backslash-escaping.
func Emit(t Term) (string, error) {
	tag, ok := t.Kind.tag()
	if !ok {
		return "", errors.Errorf("cond: kind %s has no serialisation tag", t.Kind)
	}

	value := ""
	var v *ParseValue
	if t.Values != nil {
		v = t.Values
		value = v.Value
		if t.Kind == Like {
			value = escapeLikeWildcards(value)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#%s(%s", tag, escapeValue(value))
	if v != nil && v.OptionalChar != 0 {
		fmt.Fprintf(&b, ",#oc(%c)", v.OptionalChar)
	}
	if v != nil && v.Normalized {
		b.WriteString(",#ns")
	}
	b.WriteByte(')')
	return b.String(), nil
}

// Parse1 reparses one `#tag(...)` serialised term back into a Term,
// the inverse of Emit, ADAPTED from ParseValue::getStream. Per spec
// §4.3's invariant, Parse1(Emit(t)) == t modulo the LIKE wildcard
// escape substitution.
func Parse1(s string) (Term, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || s[0] != '#' {
		return Term{}, errors.Errorf("cond: malformed condition %q", s)
	}
	open := strings.IndexByte(s, '(')
	if open < 0 || s[len(s)-1] != ')' {
		return Term{}, errors.Errorf("cond: malformed condition %q", s)
	}
	tag := s[1:open]
	kind, ok := tagToKind[tag]
	if !ok {
		return Term{}, errors.Errorf("cond: unknown condition tag %q", tag)
	}

	body := s[open+1 : len(s)-1]
	parts := splitUnescaped(body)
	if len(parts) == 0 {
		return Term{}, errors.Errorf("cond: empty condition body %q", s)
	}

	raw := unescapeValue(parts[0])
	if kind == Like {
		raw = unescapeLikeWildcards(raw)
	}
	pv := &ParseValue{Kind: kind, Value: raw}

	for _, opt := range parts[1:] {
		switch {
		case opt == "#ns":
			pv.Normalized = true
		case strings.HasPrefix(opt, "#oc(") && strings.HasSuffix(opt, ")"):
			inner := opt[len("#oc(") : len(opt)-1]
			if len(inner) > 0 {
				pv.OptionalChar = []rune(inner)[0]
			}
		default:
			return Term{}, errors.Errorf("cond: unknown option %q in %q", opt, s)
		}
	}

	return Term{Kind: kind, Values: pv}, nil
}

// splitUnescaped splits body on unescaped top-level commas, leaving
// backslash-escaped commas inside the first field intact for
// unescapeValue to resolve.
func splitUnescaped(body string) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range body {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			cur.WriteRune(r)
			escaped = true
			continue
		}
		if r == ',' {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}

// EmitOption serialises a whole Compiled set into the open-option map
// of spec §4.3 step 4 / §6: condition count, per-condition strings,
// the equal-field prefix length, and the reverse flag.
func EmitOption(c Compiled, terms []Term, opt *kernel.OpenOption) error {
	opt.Set(kernel.ConditionCount, len(terms))
	for i, t := range terms {
		s, err := Emit(t)
		if err != nil {
			return err
		}
		opt.SetIndexed(kernel.Condition, i, s)
	}
	opt.Set(kernel.EqualFieldNumber, c.EqualFieldLen)
	opt.Set(kernel.Reverse, c.Reverse)
	return nil
}

// ParseOption reparses a whole condition set back out of the
// open-option map at Open time (spec §4.3 step 5).
func ParseOption(opt *kernel.OpenOption) ([]Term, error) {
	n := opt.GetInt(kernel.ConditionCount)
	terms := make([]Term, 0, n)
	for i := 0; i < n; i++ {
		s := opt.GetStringIndexed(kernel.Condition, i)
		t, err := Parse1(s)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}
