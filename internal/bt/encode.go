package bt

import (
	"encoding/binary"
	"math"

	"github.com/relstore/idxengine/internal/kernel"
)

// FieldType is one key or value field's on-page representation, per
// spec §3's entry layout ("Concatenation of the key fields ... up to
// eight positions null-tracked by a null-bitmap byte; variable-length
// fields are length-prefixed").
type FieldType int

const (
	FieldInt32 FieldType = iota
	FieldInt64
	FieldFloat64
	FieldString // variable-length, length-prefixed
	FieldBytes  // variable-length, length-prefixed
)

func (t FieldType) fixedWidth() (int, bool) {
	switch t {
	case FieldInt32:
		return 4, true
	case FieldInt64:
		return 8, true
	case FieldFloat64:
		return 8, true
	default:
		return 0, false
	}
}

// Field describes one column of a BT schema.
type Field struct {
	Type      FieldType
	Collation Collation
}

// Collation is a field's declared string-comparison mode, mirroring
// cond.Collation (duplicated here rather than imported to keep bt
// free of a cond dependency; the two enums are kept in lockstep by
// convention, as the teacher keeps SlotType/BLTErr free of external
// package coupling too).
type Collation int

const (
	Pad Collation = iota
	NoPad
)

// Schema is the ordered field list a BT index key is built from. The
// null-bitmap byte covers at most the first 8 fields (spec §3);
// Schema.nullableCount clamps to that.
type Schema struct {
	Fields []Field
}

func (s Schema) nullableCount() int {
	if len(s.Fields) > 8 {
		return 8
	}
	return len(s.Fields)
}

// Value is one field's runtime value: Null set means SQL NULL.
type Value struct {
	Null  bool
	Int   int64
	Float float64
	Bytes []byte
}

// EncodeKey marshals a tuple of field values into the null-bitmap +
// fixed/length-prefixed layout spec §3 describes, ADAPTED from the
// teacher's flat single-byte length-prefixed key, generalized to a
// schema-driven multi-field one.
func EncodeKey(schema Schema, values []Value) ([]byte, byte, error) {
	if len(values) != len(schema.Fields) {
		return nil, 0, kernel.ErrBadArgument("bt: encode key: got %d values, schema has %d fields", len(values), len(schema.Fields))
	}

	var nullBitmap byte
	for i := 0; i < schema.nullableCount(); i++ {
		if values[i].Null {
			nullBitmap |= 1 << uint(i)
		}
	}

	buf := make([]byte, 0, 32)
	buf = append(buf, nullBitmap)

	for i, f := range schema.Fields {
		if values[i].Null {
			continue
		}
		buf = appendField(buf, f, values[i])
	}
	return buf, nullBitmap, nil
}

func appendField(buf []byte, f Field, v Value) []byte {
	switch f.Type {
	case FieldInt32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(int32(v.Int)))
		return append(buf, tmp[:]...)
	case FieldInt64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.Int))
		return append(buf, tmp[:]...)
	case FieldFloat64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], floatBits(v.Float))
		return append(buf, tmp[:]...)
	default: // FieldString, FieldBytes
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(v.Bytes)))
		buf = append(buf, lenBuf[:]...)
		return append(buf, v.Bytes...)
	}
}

func floatBits(f float64) uint64 {
	// Big-endian IEEE-754 bits with the sign-flip trick so the byte
	// comparison order matches numeric order, per spec §3's
	// lexicographic-comparator invariant.
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// DecodeKey reverses EncodeKey given the same schema.
func DecodeKey(schema Schema, raw []byte) ([]Value, error) {
	if len(raw) < 1 {
		return nil, kernel.ErrBadArgument("bt: decode key: empty buffer")
	}
	nullBitmap := raw[0]
	pos := 1
	values := make([]Value, len(schema.Fields))

	for i, f := range schema.Fields {
		if i < schema.nullableCount() && nullBitmap&(1<<uint(i)) != 0 {
			values[i] = Value{Null: true}
			continue
		}
		if width, fixed := f.Type.fixedWidth(); fixed {
			if pos+width > len(raw) {
				return nil, kernel.ErrUnexpected("bt: decode key: truncated fixed field %d", i)
			}
			switch f.Type {
			case FieldInt32:
				values[i] = Value{Int: int64(int32(binary.BigEndian.Uint32(raw[pos:])))}
			case FieldInt64:
				values[i] = Value{Int: int64(binary.BigEndian.Uint64(raw[pos:]))}
			case FieldFloat64:
				bits := binary.BigEndian.Uint64(raw[pos:])
				if bits&(1<<63) != 0 {
					bits &^= 1 << 63
				} else {
					bits = ^bits
				}
				values[i] = Value{Float: math.Float64frombits(bits)}
			}
			pos += width
			continue
		}
		if pos+2 > len(raw) {
			return nil, kernel.ErrUnexpected("bt: decode key: truncated length prefix for field %d", i)
		}
		n := int(binary.BigEndian.Uint16(raw[pos:]))
		pos += 2
		if pos+n > len(raw) {
			return nil, kernel.ErrUnexpected("bt: decode key: truncated variable field %d", i)
		}
		b := make([]byte, n)
		copy(b, raw[pos:pos+n])
		values[i] = Value{Bytes: b}
		pos += n
	}
	return values, nil
}
