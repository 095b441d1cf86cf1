package pbx

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ValueKind discriminates the three leaf attribute value categories.
type ValueKind int

const (
	ScalarValue ValueKind = iota
	SequenceValue
	MappingValue
)

func (vk ValueKind) String() string {
	switch vk {
	case ScalarValue:
		return "Scalar"
	case SequenceValue:
		return "Sequence"
	case MappingValue:
		return "Mapping"
	default:
		return "<unknown value kind>"
	}
}

// Value is a leaf attribute value: a scalar string, an ordered sequence of
// strings, or a mapping from string to Value. Mapping values nest so build
// settings can hold lists.
type Value struct {
	Kind   ValueKind
	Scalar string
	Seq    []string
	Map    map[string]*Value
}

func Scalar(s string) *Value {
	return &Value{Kind: ScalarValue, Scalar: s}
}

func Sequence(ss ...string) *Value {
	return &Value{Kind: SequenceValue, Seq: ss}
}

func Mapping(m map[string]*Value) *Value {
	if m == nil {
		m = map[string]*Value{}
	}
	return &Value{Kind: MappingValue, Map: m}
}

func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	res := &Value{Kind: v.Kind, Scalar: v.Scalar}
	if v.Seq != nil {
		res.Seq = slices.Clone(v.Seq)
	}
	if v.Map != nil {
		res.Map = make(map[string]*Value, len(v.Map))
		for k, mv := range v.Map {
			res.Map[k] = mv.Clone()
		}
	}
	return res
}

func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ScalarValue:
		return v.Scalar == o.Scalar
	case SequenceValue:
		return slices.Equal(v.Seq, o.Seq)
	case MappingValue:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, mv := range v.Map {
			if !mv.Equal(o.Map[k]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AsSequence coerces a lone scalar to a one-element sequence.
func (v *Value) AsSequence() []string {
	if v == nil {
		return nil
	}
	if v.Kind == ScalarValue {
		return []string{v.Scalar}
	}
	return v.Seq
}

func (v *Value) SortedKeys() []string {
	if v == nil || v.Map == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(v.Map))
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case ScalarValue:
		return v.Scalar
	case SequenceValue:
		return "[" + strings.Join(v.Seq, ", ") + "]"
	case MappingValue:
		parts := make([]string, 0, len(v.Map))
		for _, k := range v.SortedKeys() {
			parts = append(parts, k+": "+v.Map[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<unknown>"
	}
}

// ValueFromAny converts a decoded YAML value to a Value. Numbers and bools
// become scalar strings; nil maps to a nil Value.
func ValueFromAny(x any) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return nil, nil
	case string:
		return Scalar(t), nil
	case bool:
		return Scalar(strconv.FormatBool(t)), nil
	case int:
		return Scalar(strconv.Itoa(t)), nil
	case int64:
		return Scalar(strconv.FormatInt(t, 10)), nil
	case uint64:
		return Scalar(strconv.FormatUint(t, 10)), nil
	case float64:
		return Scalar(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case []any:
		seq := make([]string, 0, len(t))
		for _, e := range t {
			ev, err := ValueFromAny(e)
			if err != nil {
				return nil, err
			}
			if ev == nil || ev.Kind != ScalarValue {
				return nil, fmt.Errorf("%w: sequence element is not a scalar", ErrSchema)
			}
			seq = append(seq, ev.Scalar)
		}
		return Sequence(seq...), nil
	case map[string]any:
		m := make(map[string]*Value, len(t))
		for k, e := range t {
			ev, err := ValueFromAny(e)
			if err != nil {
				return nil, err
			}
			m[k] = ev
		}
		return Mapping(m), nil
	default:
		if ms, keys, ok := anyMapSlice(x); ok {
			m := make(map[string]*Value, len(keys))
			for _, k := range keys {
				ev, err := ValueFromAny(ms[k])
				if err != nil {
					return nil, err
				}
				m[k] = ev
			}
			return Mapping(m), nil
		}
		return nil, fmt.Errorf("%w: unsupported value %T", ErrSchema, x)
	}
}

// ToAny converts a Value back to the generic shape used by the YAML encoder.
func (v *Value) ToAny() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ScalarValue:
		return v.Scalar
	case SequenceValue:
		res := make([]any, len(v.Seq))
		for i, s := range v.Seq {
			res[i] = s
		}
		return res
	case MappingValue:
		res := make(map[string]any, len(v.Map))
		for k, mv := range v.Map {
			res[k] = mv.ToAny()
		}
		return res
	default:
		return nil
	}
}
