package types

// ArrayType represents T[]. Instances are interned by the Registry, so two
// array types are the same type exactly when their pointers are equal.
type ArrayType struct {
	Elem Type
}

func (at *ArrayType) String() string     { return at.Elem.String() + "[]" }
func (at *ArrayType) Descriptor() string { return "[" + at.Elem.Descriptor() }
func (at *ArrayType) typeNode()          {}

// Dimensions returns the array depth and the innermost element type.
func (at *ArrayType) Dimensions() (int, Type) {
	dims := 1
	elem := at.Elem
	for {
		inner, ok := elem.(*ArrayType)
		if !ok {
			return dims, elem
		}
		dims++
		elem = inner.Elem
	}
}
