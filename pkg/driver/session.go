package driver

import (
	"fmt"
	"io"
	"strings"

	"jmm/pkg/config"
	"jmm/pkg/modules"
	"jmm/pkg/source"
)

// Session is an interactive compilation session. Type declarations
// entered earlier stay visible to later entries; any other entry is a
// statement list that runs as the body of a fresh static method. Every
// entry executes in a new VM, so static state does not carry over.
type Session struct {
	cfg     *config.Config
	out     io.Writer
	decls   *modules.MemoryResolver
	names   []string // declared type names, in entry order
	entries int
}

// NewSession creates a session that prints program output to out.
func NewSession(cfg *config.Config, out io.Writer) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Session{cfg: cfg, out: out, decls: modules.NewMemoryResolver("session")}
}

// Declarations returns the names of the types entered so far.
func (s *Session) Declarations() []string {
	return append([]string(nil), s.names...)
}

// Eval compiles and runs one entry. When compilation fails the result
// carries the diagnostics and nothing runs.
func (s *Session) Eval(input string) (*Result, error) {
	s.entries++
	if name, ok := declaredType(input); ok {
		return s.declare(name, input)
	}

	class := fmt.Sprintf("JmmEntry%d", s.entries)
	// The method header shares the first line with the input so that
	// diagnostics carry the line numbers the user typed.
	src := s.imports("") + "class " + class + " { static void main() { " + input + "\n} }\n"
	res, err := Compile(s.options(), source.NewReplSource(src))
	if err != nil || !res.OK() {
		return res, err
	}
	return res, res.Run(class, s.out)
}

func (s *Session) declare(name, input string) (*Result, error) {
	res, err := Compile(s.options(), source.NewReplSource(s.imports(name)+input))
	if err != nil || !res.OK() {
		return res, err
	}
	s.decls.AddSource(name, input)
	if !contains(s.names, name) {
		s.names = append(s.names, name)
	}
	return res, nil
}

// imports makes every earlier declaration except skip reachable from the
// next entry. It stays on one line so that entry line numbers are
// unchanged.
func (s *Session) imports(skip string) string {
	var b strings.Builder
	for _, name := range s.names {
		if name == skip {
			continue
		}
		fmt.Fprintf(&b, "import %s; ", name)
	}
	return b.String()
}

func (s *Session) options() Options {
	return Options{Config: s.cfg, Resolvers: []modules.SourceResolver{s.decls}}
}

// declaredType reports the name of the class or interface that input
// declares, if it starts with a type declaration.
func declaredType(input string) (string, bool) {
	fields := strings.Fields(input)
	for i, f := range fields {
		switch f {
		case "public", "abstract", "final":
			continue
		case "class", "interface":
			if i+1 < len(fields) {
				name := strings.FieldsFunc(fields[i+1], func(r rune) bool { return r == '{' || r == '<' })
				if len(name) > 0 {
					return name[0], true
				}
			}
		}
		return "", false
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
