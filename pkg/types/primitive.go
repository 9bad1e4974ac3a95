package types

// --- Primitive Types ---

// Primitive represents a fundamental, non-composite type. Null and Any are
// modelled as primitives too: Null is the type of the null literal and Any
// is the placeholder given to expressions that failed analysis.
type Primitive struct {
	Name string
	desc string
}

func (p *Primitive) String() string     { return p.Name }
func (p *Primitive) Descriptor() string { return p.desc }
func (p *Primitive) typeNode()          {}

// Pre-defined instances for the primitive types
var (
	Int     = &Primitive{Name: "int", desc: "I"}
	Double  = &Primitive{Name: "double", desc: "D"}
	Boolean = &Primitive{Name: "boolean", desc: "Z"}
	Char    = &Primitive{Name: "char", desc: "C"}
	Void    = &Primitive{Name: "void", desc: "V"}
	Null    = &Primitive{Name: "null", desc: "Ljava/lang/Object;"}
	Any     = &Primitive{Name: "any", desc: "Ljava/lang/Object;"}
)

var primitivesByName = map[string]*Primitive{
	"int":     Int,
	"double":  Double,
	"boolean": Boolean,
	"char":    Char,
	"void":    Void,
}

// LookupPrimitive returns the primitive named name, or nil.
func LookupPrimitive(name string) *Primitive {
	return primitivesByName[name]
}
