package modules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"jmm/pkg/source"
)

// MemoryResolver resolves types from sources registered in memory. The
// interactive runner and tests use it.
type MemoryResolver struct {
	name     string
	mutex    sync.RWMutex
	units    map[string]string // qualified type name -> source
	priority int
}

// NewMemoryResolver creates a new memory-based resolver
func NewMemoryResolver(name string) *MemoryResolver {
	if name == "" {
		name = "Memory"
	}
	return &MemoryResolver{
		name:     name,
		units:    make(map[string]string),
		priority: 50, // ahead of the file system
	}
}

func (r *MemoryResolver) Name() string { return r.name }

func (r *MemoryResolver) Priority() int { return r.priority }

// AddSource registers the unit declaring qualified.
func (r *MemoryResolver) AddSource(qualified, content string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.units[qualified] = content
}

// RemoveSource forgets a registered unit.
func (r *MemoryResolver) RemoveSource(qualified string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.units, qualified)
}

func (r *MemoryResolver) Resolve(qualified string) (*source.SourceFile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	content, ok := r.units[qualified]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, qualified)
	}
	return r.file(qualified, content), nil
}

func (r *MemoryResolver) ResolvePackage(pkg string) ([]*source.SourceFile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var names []string
	for name := range r.units {
		if packageOf(name) == pkg {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: package %s", ErrNotFound, pkg)
	}
	sort.Strings(names)
	files := make([]*source.SourceFile, len(names))
	for i, name := range names {
		files[i] = r.file(name, r.units[name])
	}
	return files, nil
}

func (r *MemoryResolver) file(qualified, content string) *source.SourceFile {
	return source.NewSourceFile(packageDir(qualified)+Extension, "", content)
}

func packageOf(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[:i]
	}
	return ""
}
