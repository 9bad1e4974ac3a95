package types

// --- Type Assignability ---

// IsSubtype reports whether sub is source-compatible with sup by reference
// widening: identity, superclass and superinterface chains, and array
// covariance over reference element types. Every reference type is a
// subtype of java.lang.Object.
func IsSubtype(sub, sup Type) bool {
	if sub == sup {
		return true
	}
	switch s := sub.(type) {
	case *ClassType:
		target, ok := sup.(*ClassType)
		if !ok {
			return false
		}
		return s.isSubclassOf(target)
	case *ArrayType:
		switch t := sup.(type) {
		case *ClassType:
			return t.Name == "java.lang.Object"
		case *ArrayType:
			if IsReference(s.Elem) && IsReference(t.Elem) {
				return IsSubtype(s.Elem, t.Elem)
			}
		}
	}
	return false
}

func (ct *ClassType) isSubclassOf(target *ClassType) bool {
	if target.Name == "java.lang.Object" {
		return true
	}
	seen := map[*ClassType]bool{}
	var walk func(c *ClassType) bool
	walk = func(c *ClassType) bool {
		if c == nil || seen[c] {
			return false
		}
		seen[c] = true
		if c == target {
			return true
		}
		if walk(c.Super) {
			return true
		}
		for _, iface := range c.Interfaces {
			if walk(iface) {
				return true
			}
		}
		return false
	}
	return walk(ct)
}

// IsAssignable checks if a value of type source can be stored in a variable
// of type target without a cast. Any on either side is always assignable so
// that one error does not cascade into more.
func IsAssignable(source, target Type) bool {
	if source == nil || target == nil {
		return false
	}
	if source == Any || target == Any {
		return true
	}
	if source == target {
		return true
	}

	// Primitive widening: char -> int -> double.
	switch target {
	case Int:
		return source == Char
	case Double:
		return source == Int || source == Char
	}
	if IsPrimitive(target) {
		return false
	}

	if source == Null {
		return IsReference(target)
	}
	return IsSubtype(source, target)
}

// IsCastable reports whether an explicit cast from source to target is
// legal: between numeric primitives, or between references when either is
// a subtype of the other or an interface is involved.
func IsCastable(source, target Type) bool {
	if source == Any || target == Any || source == target {
		return true
	}
	if IsNumeric(source) && IsNumeric(target) {
		return true
	}
	if !IsReference(source) || !IsReference(target) {
		return false
	}
	if source == Null || target == Null || IsSubtype(source, target) || IsSubtype(target, source) {
		return true
	}
	sc, sok := source.(*ClassType)
	tc, tok := target.(*ClassType)
	if sok && tok && (sc.IsInterface() && !tc.IsFinal() || tc.IsInterface() && !sc.IsFinal()) {
		return true
	}
	return false
}

// BinaryNumericPromotion returns the common type of two numeric operands:
// double if either is double, int otherwise.
func BinaryNumericPromotion(a, b Type) Type {
	if a == Double || b == Double {
		return Double
	}
	return Int
}
