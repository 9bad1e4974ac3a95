package modules

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/source"
)

const moduleLoaderDebug = false

func debugPrintf(format string, args ...interface{}) {
	if moduleLoaderDebug {
		fmt.Printf(format, args...)
	}
}

// Loader parses compilation units and pulls in the units that their
// imports name, following imports transitively. Types the runtime library
// already provides are never looked up.
type Loader struct {
	resolvers []SourceResolver
	known     func(qualified string) bool

	requested map[string]bool // import names already looked up
	parsed    map[string]bool // units already parsed, by identity key
	stats     LoaderStats
}

// LoaderStats counts what one Loader has done.
type LoaderStats struct {
	Parsed   int // units parsed, roots included
	Resolved int // units found through a resolver
	Missing  int // imports no resolver could satisfy
}

// NewLoader creates a loader. known reports whether a qualified name is
// already available and may be nil.
func NewLoader(known func(qualified string) bool, resolvers ...SourceResolver) *Loader {
	l := &Loader{
		known:     known,
		requested: make(map[string]bool),
		parsed:    make(map[string]bool),
	}
	for _, r := range resolvers {
		l.AddResolver(r)
	}
	return l
}

// AddResolver adds a resolver to the chain, keeping the chain ordered by
// priority.
func (l *Loader) AddResolver(r SourceResolver) {
	l.resolvers = append(l.resolvers, r)
	sort.SliceStable(l.resolvers, func(i, j int) bool {
		return l.resolvers[i].Priority() < l.resolvers[j].Priority()
	})
}

// Stats returns the loader's counters.
func (l *Loader) Stats() LoaderStats { return l.stats }

// Load parses roots and then every unit reachable through imports. The
// roots come first in the result, followed by imported units in discovery
// order. Units with syntax errors are still returned; their errors are in
// the second result. An import no resolver satisfies is left for name
// resolution to report.
func (l *Loader) Load(roots ...*source.SourceFile) ([]*parser.CompilationUnit, []errors.JmmError, error) {
	var units []*parser.CompilationUnit
	var errs []errors.JmmError
	queue := append([]*source.SourceFile(nil), roots...)

	for len(queue) > 0 {
		sf := queue[0]
		queue = queue[1:]
		key := unitKey(sf)
		if l.parsed[key] {
			continue
		}
		l.parsed[key] = true

		debugPrintf("// [Loader] parsing %s\n", sf.DisplayPath())
		cu, perrs := parser.ParseSource(sf)
		l.stats.Parsed++
		errs = append(errs, perrs...)
		if cu == nil {
			continue
		}
		units = append(units, cu)

		for _, imp := range cu.Imports {
			found, err := l.resolveImport(imp)
			if err != nil {
				return units, errs, err
			}
			queue = append(queue, found...)
		}
	}
	return units, errs, nil
}

// resolveImport looks an import up once. It returns nil when the name is
// known, already requested, or missing.
func (l *Loader) resolveImport(imp string) ([]*source.SourceFile, error) {
	if l.requested[imp] {
		return nil, nil
	}
	l.requested[imp] = true
	pkg, onDemand := strings.CutSuffix(imp, ".*")
	if !onDemand && l.known != nil && l.known(imp) {
		return nil, nil
	}

	for _, r := range l.resolvers {
		var files []*source.SourceFile
		var err error
		if onDemand {
			files, err = r.ResolvePackage(pkg)
		} else {
			var sf *source.SourceFile
			sf, err = r.Resolve(imp)
			files = []*source.SourceFile{sf}
		}
		if stderrors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolving import %s with %s: %w", imp, r.Name(), err)
		}
		debugPrintf("// [Loader] %s resolved %s to %d unit(s)\n", r.Name(), imp, len(files))
		l.stats.Resolved += len(files)
		return files, nil
	}
	if !onDemand {
		l.stats.Missing++
	}
	return nil, nil
}

func unitKey(sf *source.SourceFile) string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name + "\x00" + sf.Content
}
