package checker

import (
	stderrors "errors"
	"strings"
	"testing"

	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

func newMethodContext(static bool) (*Context, *errors.Collector) {
	errs := errors.NewCollector()
	arena := NewArena(errs)
	unit := arena.NewUnit(&parser.CompilationUnit{})
	class := unit.NewClass(&types.ClassType{Name: "T"})
	return class.NewMethod(nil, static), errs
}

func TestDeclareDuplicateInSameScope(t *testing.T) {
	m, _ := newMethodContext(true)
	block := m.NewLocal()
	if err := block.Declare(&Binding{Name: "x", Type: types.Int, Line: 1}); err != nil {
		t.Fatalf("first declaration failed: %v", err)
	}
	err := block.Declare(&Binding{Name: "x", Type: types.Int, Line: 2})
	if err == nil {
		t.Fatalf("expected DuplicateBinding, got nil")
	}
	var se *errors.SemanticError
	if !stderrors.As(err, &se) || se.Code != errors.DuplicateBinding {
		t.Fatalf("expected DuplicateBinding, got %v", err)
	}
}

func TestShadowingWarnsAndOuterSurvives(t *testing.T) {
	m, errs := newMethodContext(true)
	outer := m.NewLocal()
	outerX := &Binding{Name: "x", Type: types.Int, Line: 1}
	if err := outer.Declare(outerX); err != nil {
		t.Fatal(err)
	}

	inner := outer.NewLocal()
	innerX := &Binding{Name: "x", Type: types.Double, Line: 2}
	if err := inner.Declare(innerX); err != nil {
		t.Fatalf("shadowing declaration failed: %v", err)
	}
	if got := inner.Lookup("x"); got != innerX {
		t.Errorf("inner lookup = %+v, want inner binding", got)
	}
	if got := outer.Lookup("x"); got != outerX {
		t.Errorf("outer lookup after inner scope = %+v, want outer binding", got)
	}

	ws := errs.Warnings()
	if len(ws) != 1 || !strings.HasPrefix(ws[0].Msg, "shadows local variable x") {
		t.Errorf("warnings = %v, want one shadowing warning", ws)
	}
	if errs.HasErrors() {
		t.Errorf("unexpected errors: %v", errs.Errors())
	}
}

func TestLookupStopsAtMethod(t *testing.T) {
	errs := errors.NewCollector()
	arena := NewArena(errs)
	class := arena.NewUnit(&parser.CompilationUnit{}).NewClass(&types.ClassType{Name: "T"})

	first := class.NewMethod(nil, true)
	first.Declare(&Binding{Name: "a", Type: types.Int})
	second := class.NewMethod(nil, true).NewLocal()
	if b := second.Lookup("a"); b != nil {
		t.Errorf("binding leaked between methods: %+v", b)
	}
	if second.Outer().Outer() != class {
		t.Errorf("parent chain broken")
	}
	if arena.Len() != 5 {
		t.Errorf("arena holds %d contexts, want 5", arena.Len())
	}
}

func TestSlotAllocation(t *testing.T) {
	tests := []struct {
		static bool
		widths []int
		want   []int
		max    int
	}{
		{static: true, widths: []int{1, 2, 1}, want: []int{0, 1, 3}, max: 4},
		{static: false, widths: []int{1, 2, 1}, want: []int{1, 2, 4}, max: 5},
		{static: false, widths: nil, want: nil, max: 1},
	}
	for _, tt := range tests {
		m, _ := newMethodContext(tt.static)
		// Allocate from nested scopes: the counter belongs to the method.
		ctx := m
		for i, w := range tt.widths {
			ctx = ctx.NewLocal()
			if got := ctx.NextSlot(w); got != tt.want[i] {
				t.Errorf("static=%v slot %d = %d, want %d", tt.static, i, got, tt.want[i])
			}
		}
		if got := m.MaxLocals(); got != tt.max {
			t.Errorf("static=%v MaxLocals = %d, want %d", tt.static, got, tt.max)
		}
	}
}

func TestExceptionMarkAndCovers(t *testing.T) {
	reg := types.NewRegistry()
	exc := reg.Lookup("java.lang.Exception")
	npe := reg.Lookup("java.lang.NullPointerException")

	m, _ := newMethodContext(true)
	block := m.NewLocal()
	if block.Covers(exc) {
		t.Fatalf("checked exception covered with no declarations")
	}
	if !block.Covers(npe) {
		t.Fatalf("unchecked exception not covered")
	}

	mark := block.ExceptionMark()
	block.AddException(reg.Throwable)
	if !block.Covers(exc) {
		t.Errorf("Exception not covered by Throwable")
	}
	block.RestoreExceptions(mark)
	if block.Covers(exc) || len(m.Exceptions()) != 0 {
		t.Errorf("exceptions not restored: %v", m.Exceptions())
	}
}
