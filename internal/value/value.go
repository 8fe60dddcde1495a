// Package value implements the AntEater tagged-value model (spec §3).
//
// Grounded in original_source/ant.h's AntValue (a tagged union over
// int/float/string-id/array with CheckType/ToString accessors), translated
// to an exhaustive Go type switch per spec §9's "Replacing idioms"
// guidance ("The tagged-union Value is modelled as a sum type ...;
// dispatch is exhaustive pattern matching"). Values are plain data: they
// carry no behavior that needs the VM's error-reporting context, so
// type-mismatch diagnostics are raised by callers (internal/vm), which know
// the source line/column and the right ErrorKind for the operation being
// attempted.
package value

import (
	"strconv"
	"strings"

	"anteater/internal/strtable"
)

// Kind is the closed set of value kinds (spec §3).
type Kind int

const (
	Invalid Kind = iota
	Int
	Float
	String
	Array
	Null
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "<invalid>"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Array:
		return "array"
	case Null:
		return "null"
	default:
		return "<unknown>"
	}
}

// Value is the tagged-union value AntEater scripts operate on. It is
// value-typed: OP_ASSIGN gives the stored Array its own backing slice
// rather than sharing the one it was copied from (spec §3's "Arrays are
// value-typed"); see internal/vm's cloneArray for where that copy happens
// and why OP_PUSH_VAR deliberately does not also clone.
type Value struct {
	Kind Kind
	I    int32   // valid when Kind == Int
	F    float32 // valid when Kind == Float
	S    int     // interned string id, valid when Kind == String
	A    []Value // valid when Kind == Array
}

// VInt, VFloat, VString, VArray, and VNull construct Values of the
// corresponding kind; the zero Value is Invalid.
func VInt(i int32) Value     { return Value{Kind: Int, I: i} }
func VFloat(f float32) Value { return Value{Kind: Float, F: f} }
func VString(id int) Value   { return Value{Kind: String, S: id} }
func VArray(a []Value) Value { return Value{Kind: Array, A: a} }
func VNull() Value           { return Value{Kind: Null} }

func (v Value) IsInt() bool     { return v.Kind == Int }
func (v Value) IsFloat() bool   { return v.Kind == Float }
func (v Value) IsString() bool  { return v.Kind == String }
func (v Value) IsArray() bool   { return v.Kind == Array }
func (v Value) IsNull() bool    { return v.Kind == Null }
func (v Value) IsNumber() bool  { return v.Kind == Int || v.Kind == Float }
func (v Value) IsInvalid() bool { return v.Kind == Invalid }

// AsFloat64 returns v's numeric value widened to float64, for use once a
// caller has already established v.IsNumber().
func (v Value) AsFloat64() float64 {
	if v.Kind == Int {
		return float64(v.I)
	}
	return float64(v.F)
}

// ToString renders v the way OP_PRINT and string concatenation do (spec
// §4.6's ADD-with-String rule and §6.3's output log), grounded in
// original_source/ant.cpp's AntValue::ToString.
func (v Value) ToString(strings_ *strtable.Table) string {
	switch v.Kind {
	case Invalid:
		return "<invalid>"
	case Int:
		return strconv.FormatInt(int64(v.I), 10)
	case Float:
		return strconv.FormatFloat(float64(v.F), 'g', -1, 32)
	case String:
		return strings_.Lookup(v.S)
	case Null:
		return "null"
	case Array:
		var b strings.Builder
		b.WriteString("[")
		for i, elem := range v.A {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(elem.ToString(strings_))
		}
		b.WriteString("]")
		return b.String()
	default:
		return "<unknown>"
	}
}

// Equal reports whether a and b are equal under OP_EQUAL's rules for
// kind-matched operands. It does not perform numeric promotion; the VM
// handles Int/Float comparison itself since that needs promotion before
// calling Equal, and String equality compares interned ids directly (spec
// §8: "two String values compare equal under OP_EQUAL iff their underlying
// ids match").
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Int:
		return a.I == b.I
	case Float:
		return a.F == b.F
	case String:
		return a.S == b.S
	case Null:
		return true
	default:
		return false
	}
}
