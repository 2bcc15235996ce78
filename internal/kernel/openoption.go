package kernel

// OptionKey enumerates the open-option dictionary keys of spec §6. The
// same map threads the COND → BT/VEC contract: COND serialises a
// compiled condition into a string value under ConditionN, and the
// driver re-parses it at Open time.
type OptionKey int

const (
	OpenMode OptionKey = iota
	FieldSelect
	TargetFieldNumber
	TargetFieldIndex // indexed: use IndexedKey(TargetFieldIndex, i)
	GetByBitSet
	SearchByBitSet
	GetForConstraintLock
	Estimate
	ConditionCount
	Condition // indexed: use IndexedKey(Condition, i)
	EqualFieldNumber
	Reverse
	FetchFieldNumber
)

// OpenModeValue is the OpenMode option's value domain.
type OpenModeValue int

const (
	ModeRead OpenModeValue = iota
	ModeSearch
	ModeUpdate
	ModeInitialize
	ModeBatch
)

// IndexedKey packs a base key and an integer index into a single map
// key, mirroring the C++ source's per-field option keys
// (TargetFieldIndex[i], per-condition strings).
type IndexedKey struct {
	Base OptionKey
	Idx  int
}

// OpenOption is the string/int/bool/object dictionary of spec §6. Keys
// are either a plain OptionKey or an IndexedKey.
type OpenOption struct {
	scalar map[OptionKey]any
	vector map[IndexedKey]any
}

func NewOpenOption() *OpenOption {
	return &OpenOption{
		scalar: make(map[OptionKey]any),
		vector: make(map[IndexedKey]any),
	}
}

func (o *OpenOption) Set(k OptionKey, v any) { o.scalar[k] = v }

func (o *OpenOption) Get(k OptionKey) (any, bool) {
	v, ok := o.scalar[k]
	return v, ok
}

func (o *OpenOption) SetIndexed(base OptionKey, idx int, v any) {
	o.vector[IndexedKey{Base: base, Idx: idx}] = v
}

func (o *OpenOption) GetIndexed(base OptionKey, idx int) (any, bool) {
	v, ok := o.vector[IndexedKey{Base: base, Idx: idx}]
	return v, ok
}

func (o *OpenOption) GetBool(k OptionKey) bool {
	v, ok := o.Get(k)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (o *OpenOption) GetInt(k OptionKey) int {
	v, ok := o.Get(k)
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

func (o *OpenOption) GetString(k OptionKey) string {
	v, ok := o.Get(k)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (o *OpenOption) GetStringIndexed(base OptionKey, idx int) string {
	v, ok := o.GetIndexed(base, idx)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
