package modules

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"jmm/pkg/source"
)

// Extension is the file extension of J-- compilation units.
const Extension = ".java"

// FileSystemResolver resolves types from a source tree laid out by
// package: type a.b.C lives in a/b/C.java under the root.
type FileSystemResolver struct {
	name     string
	fs       fs.FS
	baseDir  string // prefix for display paths
	priority int
}

// NewFileSystemResolver creates a resolver over any fs.FS.
func NewFileSystemResolver(filesystem fs.FS, baseDir string) *FileSystemResolver {
	return &FileSystemResolver{
		name:     "FileSystem",
		fs:       filesystem,
		baseDir:  baseDir,
		priority: 100,
	}
}

// NewOSFileSystemResolver creates a resolver rooted at a directory on disk.
func NewOSFileSystemResolver(baseDir string) *FileSystemResolver {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		abs = baseDir
	}
	r := NewFileSystemResolver(os.DirFS(abs), abs)
	r.name = "OSFileSystem"
	return r
}

func (r *FileSystemResolver) Name() string { return r.name }

func (r *FileSystemResolver) Priority() int { return r.priority }

// SetPriority sets the resolver priority
func (r *FileSystemResolver) SetPriority(priority int) {
	r.priority = priority
}

func (r *FileSystemResolver) Resolve(qualified string) (*source.SourceFile, error) {
	return r.open(packageDir(qualified) + Extension)
}

func (r *FileSystemResolver) ResolvePackage(pkg string) ([]*source.SourceFile, error) {
	dir := "."
	if pkg != "" {
		dir = packageDir(pkg)
	}
	entries, err := fs.ReadDir(r.fs, dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: package %s", ErrNotFound, pkg)
		}
		return nil, err
	}
	var files []*source.SourceFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		sf, err := r.open(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, sf)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: package %s", ErrNotFound, pkg)
	}
	return files, nil
}

// Files returns every unit under dir, in lexical path order.
func (r *FileSystemResolver) Files(dir string) ([]*source.SourceFile, error) {
	var files []*source.SourceFile
	err := fs.WalkDir(r.fs, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, Extension) {
			return nil
		}
		sf, err := r.open(p)
		if err != nil {
			return err
		}
		files = append(files, sf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return files, nil
}

func (r *FileSystemResolver) open(p string) (*source.SourceFile, error) {
	data, err := fs.ReadFile(r.fs, p)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, err
	}
	display := p
	if r.baseDir != "" {
		display = filepath.Join(r.baseDir, filepath.FromSlash(p))
	}
	return source.NewSourceFile(path.Base(p), display, string(data)), nil
}

// packageDir turns a dotted name into a slash-separated path.
func packageDir(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}
