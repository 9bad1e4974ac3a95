package modules

import (
	stderrors "errors"
	"testing"
	"testing/fstest"

	"jmm/pkg/source"
)

func TestFileSystemResolverLayout(t *testing.T) {
	testFS := fstest.MapFS{
		"shapes/Circle.java": &fstest.MapFile{Data: []byte("package shapes; public class Circle { }")},
		"shapes/Square.java": &fstest.MapFile{Data: []byte("package shapes; public class Square { }")},
		"shapes/notes.txt":   &fstest.MapFile{Data: []byte("not a unit")},
		"Main.java":          &fstest.MapFile{Data: []byte("class Main { }")},
	}
	r := NewFileSystemResolver(testFS, "src")

	sf, err := r.Resolve("shapes.Circle")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sf.Name != "Circle.java" || sf.Path != "src/shapes/Circle.java" {
		t.Errorf("got name %q path %q", sf.Name, sf.Path)
	}

	if _, err := r.Resolve("shapes.Triangle"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("missing type: err = %v, want ErrNotFound", err)
	}

	pkg, err := r.ResolvePackage("shapes")
	if err != nil {
		t.Fatalf("ResolvePackage: %v", err)
	}
	if len(pkg) != 2 || pkg[0].Name != "Circle.java" || pkg[1].Name != "Square.java" {
		t.Errorf("package units: %v", pkg)
	}

	all, err := r.Files(".")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Files found %d units, want 3", len(all))
	}
}

func TestMemoryResolverPackages(t *testing.T) {
	r := NewMemoryResolver("")
	r.AddSource("geo.Point", "package geo; public class Point { }")
	r.AddSource("geo.Line", "package geo; public class Line { }")
	r.AddSource("geo.sub.Deep", "package geo.sub; public class Deep { }")

	files, err := r.ResolvePackage("geo")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].Name != "geo/Line.java" || files[1].Name != "geo/Point.java" {
		t.Errorf("got %v", files)
	}
	r.RemoveSource("geo.Point")
	if _, err := r.Resolve("geo.Point"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("removed source still resolves: %v", err)
	}
}

func TestLoaderFollowsImports(t *testing.T) {
	mem := NewMemoryResolver("")
	mem.AddSource("geo.Point", "package geo; import util.Fmt; public class Point { }")
	mem.AddSource("util.Fmt", "package util; import geo.Point; public class Fmt { }")
	mem.AddSource("extra.A", "package extra; public class A { }")
	mem.AddSource("extra.B", "package extra; public class B { }")

	known := func(name string) bool { return name == "java.util.ArrayList" }
	l := NewLoader(known, mem)
	root := source.NewEvalSource(`import geo.Point;
import java.util.ArrayList;
import extra.*;
import nowhere.Missing;
class Main { }`)

	units, errs, err := l.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	var names []string
	for _, cu := range units {
		names = append(names, cu.Source.Name)
	}
	want := []string{"<eval>", "geo/Point.java", "extra/A.java", "extra/B.java", "util/Fmt.java"}
	if len(names) != len(want) {
		t.Fatalf("loaded %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("loaded %v, want %v", names, want)
		}
	}

	stats := l.Stats()
	if stats.Parsed != 5 || stats.Resolved != 4 || stats.Missing != 1 {
		t.Errorf("stats %+v", stats)
	}
}

func TestLoaderPrefersLowerPriority(t *testing.T) {
	disk := NewFileSystemResolver(fstest.MapFS{
		"p/T.java": &fstest.MapFile{Data: []byte("package p; class T { int disk; }")},
	}, "")
	mem := NewMemoryResolver("")
	mem.AddSource("p.T", "package p; class T { int memory; }")

	l := NewLoader(nil, disk, mem)
	units, _, err := l.Load(source.NewEvalSource("import p.T; class Main { }"))
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 || units[1].Source.Name != "p/T.java" || units[1].Source.Path != "" {
		t.Errorf("expected the in-memory unit, got %+v", units[len(units)-1].Source)
	}
}
