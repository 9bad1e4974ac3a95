package types

import (
	"strings"
)

// Type is the interface implemented by all type representations.
type Type interface {
	// String returns the source-level spelling of the type ("int",
	// "java.lang.String", "int[]").
	String() string
	// Descriptor returns the JVM field descriptor ("I", "Ljava/lang/String;").
	Descriptor() string

	// typeNode() is a marker method to ensure only types defined in this package
	// can be assigned to the Type interface.
	typeNode()
}

// Width returns the number of local slots and stack words a value of t
// occupies: 2 for double, 0 for void, 1 otherwise.
func Width(t Type) int {
	switch t {
	case Double:
		return 2
	case Void:
		return 0
	}
	return 1
}

// IsNumeric reports whether t takes part in arithmetic.
func IsNumeric(t Type) bool {
	return t == Int || t == Double || t == Char
}

// IsIntegral reports whether t is int or char.
func IsIntegral(t Type) bool {
	return t == Int || t == Char
}

// IsReference reports whether values of t are object references.
func IsReference(t Type) bool {
	switch t.(type) {
	case *ClassType, *ArrayType:
		return true
	}
	return t == Null
}

// IsPrimitive reports whether t is one of the primitive value types.
func IsPrimitive(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && p != Null && p != Any
}

// InternalName returns the slash-separated name used in member references.
// Array types use their descriptor, as the JVM does.
func InternalName(t Type) string {
	switch tt := t.(type) {
	case *ClassType:
		return strings.ReplaceAll(tt.Name, ".", "/")
	case *ArrayType:
		return tt.Descriptor()
	}
	return t.String()
}

// MethodDescriptor builds "(params)ret".
func MethodDescriptor(params []Type, ret Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(p.Descriptor())
	}
	sb.WriteByte(')')
	sb.WriteString(ret.Descriptor())
	return sb.String()
}

// IsThrowable reports whether t is java.lang.Throwable or a subclass.
func IsThrowable(t Type) bool {
	ct, ok := t.(*ClassType)
	return ok && ct.inherits("java.lang.Throwable")
}

// IsChecked reports whether t is a checked exception type: throwable, but
// neither a RuntimeException nor an Error.
func IsChecked(t Type) bool {
	ct, ok := t.(*ClassType)
	if !ok || !ct.inherits("java.lang.Throwable") {
		return false
	}
	return !ct.inherits("java.lang.RuntimeException") && !ct.inherits("java.lang.Error")
}
