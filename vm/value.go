package vm

import (
	"math"
	"strconv"
)

// ValueType tags the variant held by a Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValString
)

var valueTypeNames = [...]string{
	ValNil:    "nil",
	ValBool:   "bool",
	ValNumber: "number",
	ValString: "string",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "ValueType(" + strconv.Itoa(int(t)) + ")"
}

// Value is a minilang runtime value: a closed tagged union of nil, boolean,
// double-precision number and text. Values are copied by value and have no
// identity; the zero Value is nil.
type Value struct {
	typ ValueType
	b   bool
	n   float64
	s   string
}

// Nil is the absent value.
var Nil = Value{}

// Pre-defined booleans
var (
	True  = Value{typ: ValBool, b: true}
	False = Value{typ: ValBool, b: false}
)

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// FromBool creates a boolean Value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromFloat64 creates a number Value.
func FromFloat64(f float64) Value {
	return Value{typ: ValNumber, n: f}
}

// FromString creates a text Value.
func FromString(s string) Value {
	return Value{typ: ValString, s: s}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Type returns the variant tag.
func (v Value) Type() ValueType { return v.typ }

// IsNil returns true if v is the absent value.
func (v Value) IsNil() bool { return v.typ == ValNil }

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool { return v.typ == ValBool }

// IsNumber returns true if v holds a float64.
func (v Value) IsNumber() bool { return v.typ == ValNumber }

// IsString returns true if v holds text.
func (v Value) IsString() bool { return v.typ == ValString }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Bool returns v as a bool.
// Panics if v is not a boolean.
func (v Value) Bool() bool {
	if v.typ != ValBool {
		panic("Value.Bool: not a boolean")
	}
	return v.b
}

// Float64 returns v as a float64.
// Panics if v is not a number.
func (v Value) Float64() float64 {
	if v.typ != ValNumber {
		panic("Value.Float64: not a number")
	}
	return v.n
}

// Text returns v as a string.
// Panics if v is not text.
func (v Value) Text() string {
	if v.typ != ValString {
		panic("Value.Text: not a string")
	}
	return v.s
}

// ---------------------------------------------------------------------------
// Semantics
// ---------------------------------------------------------------------------

// IsFalsey reports whether v counts as false in a condition.
// nil, false and numeric zero are falsey; everything else, including the
// empty string, is truthy.
func (v Value) IsFalsey() bool {
	switch v.typ {
	case ValNil:
		return true
	case ValBool:
		return !v.b
	case ValNumber:
		return v.n == 0
	default:
		return false
	}
}

// Equal compares two values structurally. Values of different types are
// never equal; nil equals nil.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case ValNil:
		return true
	case ValBool:
		return v.b == other.b
	case ValNumber:
		return v.n == other.n
	case ValString:
		return v.s == other.s
	}
	return false
}

// String renders v the way PRINT writes it.
func (v Value) String() string {
	switch v.typ {
	case ValNil:
		return "nil"
	case ValBool:
		if v.b {
			return "true"
		}
		return "false"
	case ValNumber:
		return FormatNumber(v.n)
	case ValString:
		return v.s
	}
	return "unknown"
}

// FormatNumber renders f in its shortest round-tripping form, choosing
// between fixed and scientific notation by length. Fixed notation wins a
// tie, so 1000 prints as "1000" and 1000000 as "1e+06".
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	if len(sci) < len(fixed) {
		return sci
	}
	return fixed
}
