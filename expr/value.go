package expr

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Value is the result of evaluating an expression.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
}

// IntValue wraps an integer.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatValue wraps a float.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// BoolValue returns 1 for true and 0 for false.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// IsNumeric reports whether v can take part in arithmetic. Single character
// strings count as their character code.
func (v Value) IsNumeric() bool {
	return v.Kind != KindString || len(v.Str) == 1
}

// AsInt returns v as an integer. Floats are truncated.
func (v Value) AsInt() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.Int, nil
	case KindFloat:
		return int64(v.Float), nil
	default:
		if len(v.Str) == 1 {
			return int64(v.Str[0]), nil
		}
		return 0, fmt.Errorf("%w: string %q used as a number", ErrTypeMismatch, v.Str)
	}
}

// AsFloat returns v as a float.
func (v Value) AsFloat() (float64, error) {
	if v.Kind == KindFloat {
		return v.Float, nil
	}
	i, err := v.AsInt()
	return float64(i), err
}

// Bool reports whether v is non-zero. Strings are true when non-empty.
func (v Value) Bool() bool {
	switch v.Kind {
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	default:
		return v.Str != ""
	}
}

// Equal compares two values. Numbers of different kinds compare as floats.
func (v Value) Equal(o Value) bool {
	if v.Kind == KindString && o.Kind == KindString {
		return v.Str == o.Str
	}
	if v.Kind == KindInt && o.Kind == KindInt {
		return v.Int == o.Int
	}
	if !v.IsNumeric() || !o.IsNumeric() {
		return false
	}
	a, _ := v.AsFloat()
	b, _ := o.AsFloat()
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return strconv.Quote(v.Str)
	}
}
