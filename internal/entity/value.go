package entity

import (
	"math"
	"strconv"
)

// ValueType identifies which member of a Value is set.
type ValueType uint8

// Value types.
const (
	TypeNone ValueType = iota
	TypeUint
	TypeByte
	TypeFloat
	TypeBool
	TypeString
)

// String returns the type name.
func (t ValueType) String() string {
	switch t {
	case TypeUint:
		return "uint"
	case TypeByte:
		return "byte"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	default:
		return "none"
	}
}

// Value is a tagged union of the value types an entity can hold.
// The zero Value is "no value yet".
type Value struct {
	typ ValueType
	u   uint32
	f   float64
	b   bool
	s   string
}

// Uint returns an unsigned integer Value.
func Uint(v uint32) Value { return Value{typ: TypeUint, u: v} }

// Byte returns a raw byte Value.
func Byte(v uint8) Value { return Value{typ: TypeByte, u: uint32(v)} }

// Float returns a measurement Value.
func Float(v float64) Value { return Value{typ: TypeFloat, f: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{typ: TypeBool, b: v} }

// String returns a text Value.
func String(v string) Value { return Value{typ: TypeString, s: v} }

// Type returns the held type.
func (v Value) Type() ValueType { return v.typ }

// Valid reports whether a value is held.
func (v Value) Valid() bool { return v.typ != TypeNone }

// Float returns the value as a float64 for numeric and boolean types.
// NaN floats are reported as absent.
func (v Value) Float() (float64, bool) {
	switch v.typ {
	case TypeUint, TypeByte:
		return float64(v.u), true
	case TypeFloat:
		if math.IsNaN(v.f) {
			return 0, false
		}
		return v.f, true
	case TypeBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Bool returns the boolean member.
func (v Value) Bool() (bool, bool) {
	if v.typ != TypeBool {
		return false, false
	}
	return v.b, true
}

// Text returns the string member.
func (v Value) Text() (string, bool) {
	if v.typ != TypeString {
		return "", false
	}
	return v.s, true
}

// Equal reports whether both values have the same type and content.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeUint, TypeByte:
		return v.u == o.u
	case TypeFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case TypeBool:
		return v.b == o.b
	case TypeString:
		return v.s == o.s
	default:
		return true
	}
}

// Any returns the held value as a plain Go value for encoding, or nil.
func (v Value) Any() any {
	switch v.typ {
	case TypeUint:
		return v.u
	case TypeByte:
		return uint8(v.u) //nolint:gosec // constructed from a byte
	case TypeFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil
		}
		return v.f
	case TypeBool:
		return v.b
	case TypeString:
		return v.s
	default:
		return nil
	}
}

// String formats the value for logs.
func (v Value) String() string {
	switch v.typ {
	case TypeUint, TypeByte:
		return strconv.FormatUint(uint64(v.u), 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeString:
		return v.s
	default:
		return "<none>"
	}
}
