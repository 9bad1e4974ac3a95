package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jmm/pkg/checker"
	"jmm/pkg/compiler"
	"jmm/pkg/config"
	"jmm/pkg/errors"
	"jmm/pkg/modules"
	"jmm/pkg/parser"
	"jmm/pkg/source"
	"jmm/pkg/types"
	"jmm/pkg/vm"
)

const debugDriver = false

func debugPrintf(format string, args ...interface{}) {
	if debugDriver {
		fmt.Printf(format, args...)
	}
}

// Options configure one compilation.
type Options struct {
	Config    *config.Config           // nil means config.Default()
	Trace     io.Writer                // phase log, when set
	Resolvers []modules.SourceResolver // where imported units are found
}

// Result is the outcome of one compilation. Units with errors are checked
// but never emitted; Program holds the classes of the units that passed.
type Result struct {
	Units    []*parser.CompilationUnit
	Emitted  []*parser.CompilationUnit
	Registry *types.Registry
	Program  *vm.Program
	Errors   []errors.JmmError
	Warnings []*errors.Warning

	config *config.Config
}

// OK reports whether the compilation recorded no errors.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Compile runs the whole pipeline over files and every unit their imports
// pull in through the resolvers. The returned error is reserved for
// failures outside the program itself, such as an unreadable import;
// diagnostics are in the Result.
func Compile(opts Options, files ...*source.SourceFile) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	trace := func(format string, args ...interface{}) {
		if opts.Trace != nil {
			fmt.Fprintf(opts.Trace, "[jmm] "+format+"\n", args...)
		}
	}

	reg := types.NewRegistry()
	errs := errors.NewCollector()
	errs.Suppress = cfg.Suppressed
	res := &Result{Registry: reg, config: cfg}

	known := func(name string) bool { return reg.Lookup(name) != nil }
	loader := modules.NewLoader(known, opts.Resolvers...)
	units, syntaxErrs, err := loader.Load(files...)
	if err != nil {
		return nil, err
	}
	for _, e := range syntaxErrs {
		errs.Add(e)
	}
	res.Units = units
	stats := loader.Stats()
	trace("parse: %d unit(s), %d imported, %d syntax error(s)", stats.Parsed, stats.Resolved, len(syntaxErrs))

	// Units that failed to parse are not analyzed.
	var parsed []*parser.CompilationUnit
	for _, cu := range units {
		if !errs.HasErrorsIn(cu.Source) {
			parsed = append(parsed, cu)
		}
	}

	c := checker.New(reg, errs)
	c.DeclareTypes(parsed...)
	c.ResolveSignatures(parsed...)
	trace("phase 1: %d type(s) declared", countTypes(parsed))
	for _, cu := range parsed {
		c.CheckBodies(cu)
		trace("phase 2: %s", cu.Source.DisplayPath())
	}
	if cfg.WarningsAsErrors {
		errs.PromoteWarnings()
	}

	asm := vm.NewAssembler()
	gen := compiler.New(asm, reg)
	for _, cu := range parsed {
		if errs.HasErrorsIn(cu.Source) {
			trace("gate: %s has errors, not emitted", cu.Source.DisplayPath())
			continue
		}
		gen.Compile(cu)
		res.Emitted = append(res.Emitted, cu)
	}
	prog, err := asm.Finish()
	if err != nil {
		errs.Add(&errors.CompileError{Msg: err.Error(), Cause: err})
	} else {
		res.Program = prog
		trace("emit: %d class(es) from %d unit(s)", len(prog.Classes), len(res.Emitted))
	}

	res.Errors = errs.Errors()
	res.Warnings = errs.Warnings()
	debugPrintf("// [Driver] %d error(s), %d warning(s)\n", len(res.Errors), len(res.Warnings))
	return res, nil
}

// CompileString compiles one in-memory unit.
func CompileString(src string, opts Options) (*Result, error) {
	return Compile(opts, source.NewEvalSource(src))
}

// CompileFiles reads and compiles the named files. A directory stands for
// every unit beneath it.
func CompileFiles(opts Options, paths ...string) (*Result, error) {
	var files []*source.SourceFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := modules.NewOSFileSystemResolver(p).Files(".")
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		sf, err := source.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, sf)
	}
	return Compile(opts, files...)
}

// SourcePath turns directories into resolvers, in search order.
func SourcePath(dirs []string) []modules.SourceResolver {
	resolvers := make([]modules.SourceResolver, len(dirs))
	for i, dir := range dirs {
		r := modules.NewOSFileSystemResolver(dir)
		r.SetPriority(100 + i)
		resolvers[i] = r
	}
	return resolvers
}

// Run executes the static main method of class, a dotted name, writing
// program output to out. An uncaught exception comes back as an
// *errors.RuntimeError.
func (r *Result) Run(class string, out io.Writer) error {
	if r.Program == nil {
		return &errors.RuntimeError{Msg: "no program to run"}
	}
	name := strings.ReplaceAll(class, ".", "/")
	if r.Program.Class(name) == nil {
		return &errors.RuntimeError{Msg: fmt.Sprintf("class %s was not compiled", class)}
	}
	machine, err := vm.New(r.Program, r.Registry, r.vmOptions(out)...)
	if err != nil {
		return err
	}
	return machine.Run(name)
}

func (r *Result) vmOptions(out io.Writer) []vm.Option {
	opts := []vm.Option{vm.WithOutput(out)}
	if r.config.Run.StepLimit > 0 {
		opts = append(opts, vm.WithStepLimit(r.config.Run.StepLimit))
	}
	if r.config.Run.MaxDepth > 0 {
		opts = append(opts, vm.WithMaxDepth(r.config.Run.MaxDepth))
	}
	return opts
}

// Report prints the diagnostics with source excerpts.
func (r *Result) Report(w io.Writer) {
	errors.DisplayErrors(w, r.Errors)
	errors.DisplayWarnings(w, r.Warnings)
}

// WriteListings writes one disassembly listing per class into dir,
// following the package layout: app/Main becomes dir/app/Main.jasm.
func (r *Result) WriteListings(dir string) ([]string, error) {
	if r.Program == nil {
		return nil, nil
	}
	var written []string
	for _, c := range r.Program.Classes {
		path := filepath.Join(dir, filepath.FromSlash(c.Name)+".jasm")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, fmt.Errorf("writing listing: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("writing listing: %w", err)
		}
		c.Disassemble(f)
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("writing listing: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

func countTypes(units []*parser.CompilationUnit) int {
	n := 0
	for _, cu := range units {
		n += len(cu.Types)
	}
	return n
}
