package errors

// ErrorKind classifies semantic errors. Every checker diagnostic carries one.
type ErrorKind int

const (
	UnresolvedType ErrorKind = iota
	DuplicateBinding
	TypeMismatch
	UndeclaredException
	NonThrowableCatch
	ThrowInInitializer
	MissingImplementation
	InvalidAssignmentTarget
	IllegalStatementExpression
	UnresolvedName
	UnresolvedMember
	IllegalInheritance
	UninitializedRead
	FinalReassignment
	IllegalControlFlow
	MissingReturn
	StaticContext
)

var kindNames = [...]string{
	UnresolvedType:             "UnresolvedType",
	DuplicateBinding:           "DuplicateBinding",
	TypeMismatch:               "TypeMismatch",
	UndeclaredException:        "UndeclaredException",
	NonThrowableCatch:          "NonThrowableCatch",
	ThrowInInitializer:         "ThrowInInitializer",
	MissingImplementation:      "MissingImplementation",
	InvalidAssignmentTarget:    "InvalidAssignmentTarget",
	IllegalStatementExpression: "IllegalStatementExpression",
	UnresolvedName:             "UnresolvedName",
	UnresolvedMember:           "UnresolvedMember",
	IllegalInheritance:         "IllegalInheritance",
	UninitializedRead:          "UninitializedRead",
	FinalReassignment:          "FinalReassignment",
	IllegalControlFlow:         "IllegalControlFlow",
	MissingReturn:              "MissingReturn",
	StaticContext:              "StaticContext",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UnknownError"
}

// ParseErrorKind maps a kind name back to its ErrorKind. Used by the
// conformance suite, whose YAML cases name expected diagnostics.
func ParseErrorKind(name string) (ErrorKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return ErrorKind(k), true
		}
	}
	return 0, false
}
