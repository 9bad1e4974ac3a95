package modules

import (
	stderrors "errors"

	"jmm/pkg/source"
)

// ErrNotFound is wrapped by resolvers that hold no source for a name.
var ErrNotFound = stderrors.New("source not found")

// SourceResolver finds the compilation unit that declares a type, so that
// units named by imports can be compiled alongside the ones given
// explicitly.
type SourceResolver interface {
	// Name returns a human-readable name for this resolver
	Name() string

	// Resolve returns the unit for a qualified type name such as
	// "shapes.Circle".
	Resolve(qualified string) (*source.SourceFile, error)

	// ResolvePackage returns every unit of a package, for on-demand
	// imports. The empty string names the default package.
	ResolvePackage(pkg string) ([]*source.SourceFile, error)

	// Priority returns the priority of this resolver (lower = higher priority)
	Priority() int
}
