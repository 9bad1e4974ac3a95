package driver

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"jmm/pkg/config"
	"jmm/pkg/errors"
	"jmm/pkg/modules"
	"jmm/pkg/source"
)

// conformanceSuite is one YAML file under testdata/conformance.
type conformanceSuite struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Tests       []conformanceCase `yaml:"tests"`
}

type conformanceCase struct {
	Name   string            `yaml:"name"`
	Skip   string            `yaml:"skip,omitempty"`
	Source string            `yaml:"source"`
	Units  map[string]string `yaml:"units,omitempty"` // imported units by qualified name
	Main   string            `yaml:"main,omitempty"`
	Werror bool              `yaml:"werror,omitempty"`
	Expect expectation       `yaml:"expect"`
}

type expectation struct {
	Output     *string  `yaml:"output,omitempty"`
	Errors     []string `yaml:"errors,omitempty"`      // diagnostic kinds, in report order
	Lines      []int    `yaml:"lines,omitempty"`       // diagnostic lines, in report order
	Exception  string   `yaml:"exception,omitempty"`   // substring of the uncaught exception
	Emitted    []string `yaml:"emitted,omitempty"`     // classes in the program
	NotEmitted []string `yaml:"not_emitted,omitempty"` // classes gated out
}

func loadSuites(t *testing.T) map[string]conformanceSuite {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "conformance", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no conformance suites found")
	}
	suites := make(map[string]conformanceSuite)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var suite conformanceSuite
		if err := yaml.Unmarshal(data, &suite); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		suites[filepath.Base(path)] = suite
	}
	return suites
}

// diagnosticKind names an error the way the suites do: the error kind
// for semantic errors, the phase otherwise.
func diagnosticKind(err errors.JmmError) string {
	if se, ok := err.(*errors.SemanticError); ok {
		return se.Code.String()
	}
	return err.Kind()
}

func TestConformance(t *testing.T) {
	for file, suite := range loadSuites(t) {
		t.Run(file, func(t *testing.T) {
			for _, tc := range suite.Tests {
				t.Run(tc.Name, func(t *testing.T) {
					if tc.Skip != "" {
						t.Skip(tc.Skip)
					}
					runCase(t, tc)
				})
			}
		})
	}
}

func runCase(t *testing.T, tc conformanceCase) {
	cfg := config.Default()
	cfg.WarningsAsErrors = tc.Werror
	cfg.Run.StepLimit = 1000000
	opts := Options{Config: cfg}
	if len(tc.Units) > 0 {
		mem := modules.NewMemoryResolver("")
		for name, src := range tc.Units {
			mem.AddSource(name, src)
		}
		opts.Resolvers = append(opts.Resolvers, mem)
	}

	res, err := Compile(opts, source.NewSourceFile("Main.java", "", tc.Source))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var kinds []string
	var lines []int
	for _, e := range res.Errors {
		kinds = append(kinds, diagnosticKind(e))
		lines = append(lines, e.Pos().Line)
	}
	if strings.Join(kinds, ",") != strings.Join(tc.Expect.Errors, ",") {
		var buf bytes.Buffer
		res.Report(&buf)
		t.Fatalf("errors %v, want %v\n%s", kinds, tc.Expect.Errors, buf.String())
	}
	if tc.Expect.Lines != nil {
		for i, want := range tc.Expect.Lines {
			if i >= len(lines) || lines[i] != want {
				t.Errorf("diagnostic lines %v, want %v", lines, tc.Expect.Lines)
				break
			}
		}
	}
	for _, name := range tc.Expect.Emitted {
		if res.Program == nil || res.Program.Class(name) == nil {
			t.Errorf("class %s was not emitted", name)
		}
	}
	for _, name := range tc.Expect.NotEmitted {
		if res.Program != nil && res.Program.Class(name) != nil {
			t.Errorf("class %s was emitted despite errors", name)
		}
	}

	if tc.Expect.Output == nil && tc.Expect.Exception == "" {
		return
	}
	main := tc.Main
	if main == "" {
		main = cfg.Run.Main
	}
	var out bytes.Buffer
	err = res.Run(main, &out)
	if tc.Expect.Exception != "" {
		var re *errors.RuntimeError
		if !stderrors.As(err, &re) || !strings.Contains(re.Msg, tc.Expect.Exception) {
			t.Errorf("run error %v, want an uncaught %s", err, tc.Expect.Exception)
		}
	} else if err != nil {
		t.Fatalf("run: %v\noutput so far: %q", err, out.String())
	}
	if tc.Expect.Output != nil && out.String() != *tc.Expect.Output {
		t.Errorf("output %q, want %q", out.String(), *tc.Expect.Output)
	}
}
