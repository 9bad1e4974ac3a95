package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind distinguishes the word types held on the operand stack and in
// local slots.
type ValueKind uint8

const (
	// TopValue fills the second word of a double.
	TopValue ValueKind = iota
	IntValue
	DoubleValue
	RefValue
)

// Value is one stack word. int, char and boolean values are IntValue; a
// double occupies a DoubleValue word followed by a TopValue word.
type Value struct {
	kind ValueKind
	i    int32
	d    float64
	ref  Object
}

var top = Value{kind: TopValue}

func Int(i int32) Value      { return Value{kind: IntValue, i: i} }
func Double(d float64) Value { return Value{kind: DoubleValue, d: d} }
func Ref(o Object) Value     { return Value{kind: RefValue, ref: o} }
func Null() Value            { return Value{kind: RefValue} }

func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func (v Value) Kind() ValueKind   { return v.kind }
func (v Value) AsInt() int32      { return v.i }
func (v Value) AsDouble() float64 { return v.d }
func (v Value) AsObject() Object  { return v.ref }
func (v Value) AsBool() bool      { return v.i != 0 }
func (v Value) IsNull() bool      { return v.kind == RefValue && v.ref == nil }
func (v Value) String() string    { return v.Inspect() }

// Inspect renders v for listings and test failures.
func (v Value) Inspect() string {
	switch v.kind {
	case IntValue:
		return strconv.Itoa(int(v.i))
	case DoubleValue:
		return FormatDouble(v.d)
	case RefValue:
		switch o := v.ref.(type) {
		case nil:
			return "null"
		case *String:
			return strconv.Quote(o.Value)
		case *Array:
			return fmt.Sprintf("%s[%d]", o.Type, len(o.Elems))
		case *Instance:
			return o.Class.Name + "@" + strconv.FormatInt(int64(o.hash), 16)
		}
	}
	return "<top>"
}

// --- Heap objects ---

// Object is a heap value referenced by a RefValue.
type Object interface {
	object()
}

// Instance is an object of a declared or library class. Fields are keyed
// by "owner.name" so a subclass field never hides a superclass field.
// Library classes keep their state in Native.
type Instance struct {
	Class  *Class
	Fields map[string]Value
	Native any
	hash   int32
}

// Array holds the elements of an array; Type is its descriptor ("[I").
type Array struct {
	Type  string
	Elems []Value
}

// String is an immutable java.lang.String.
type String struct {
	Value string
}

func (*Instance) object() {}
func (*Array) object()    {}
func (*String) object()   {}

func fieldKey(owner, name string) string { return owner + "." + name }

// zeroValue returns the default value for a field or array element with
// descriptor desc.
func zeroValue(desc string) Value {
	switch desc {
	case "I", "C", "Z":
		return Int(0)
	case "D":
		return Double(0)
	}
	return Null()
}

// FormatDouble renders d the way java.lang.Double.toString does for the
// values J-- programs produce.
func FormatDouble(d float64) string {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case math.IsInf(d, 1):
		return "Infinity"
	case math.IsInf(d, -1):
		return "-Infinity"
	case d == 0:
		if math.Signbit(d) {
			return "-0.0"
		}
		return "0.0"
	}
	if abs := math.Abs(d); abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(d, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(d, 'E', -1, 64)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	exp = strings.TrimPrefix(exp, "+")
	neg := strings.HasPrefix(exp, "-")
	exp = strings.TrimLeft(strings.TrimPrefix(exp, "-"), "0")
	if neg {
		exp = "-" + exp
	}
	return mant + "E" + exp
}
