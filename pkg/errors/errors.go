package errors

import (
	"fmt"
	"io"
	"strings"
)

// JmmError is the interface implemented by all compiler and runtime errors.
type JmmError interface {
	error // Embed the standard error interface
	Pos() Position
	Kind() string // e.g., "Syntax", "Semantic", "Runtime"
	// Message returns the specific error message without position info.
	Message() string
	Unwrap() error // For error wrapping support (errors.Is/As)
}

// --- Concrete Error Types ---

// SyntaxError represents an error during lexing or parsing.
type SyntaxError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }

// SemanticError represents a compilation-fatal error found by the checker.
type SemanticError struct {
	Position
	Code  ErrorKind
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s at line %d: %s", e.Code, e.Line, e.Msg)
}
func (e *SemanticError) Pos() Position   { return e.Position }
func (e *SemanticError) Kind() string    { return "Semantic" }
func (e *SemanticError) Message() string { return e.Msg }
func (e *SemanticError) Unwrap() error   { return e.Cause }

// CompileError represents a failure to assemble generated code. It points
// at the class being emitted; it never stems from a user mistake the
// checker accepted.
type CompileError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("Compile Error: %s", e.Msg)
}
func (e *CompileError) Pos() Position   { return e.Position }
func (e *CompileError) Kind() string    { return "Compile" }
func (e *CompileError) Message() string { return e.Msg }
func (e *CompileError) Unwrap() error   { return e.Cause }

// RuntimeError represents an uncaught exception or a VM fault during execution.
type RuntimeError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Runtime Error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("Runtime Error: %s", e.Msg)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }
func (e *RuntimeError) Unwrap() error   { return e.Cause }

// Warning is a non-fatal diagnostic. Warnings never gate code generation
// unless the driver promotes them.
type Warning struct {
	Position
	Msg string
}

func (w *Warning) String() string {
	return fmt.Sprintf("warning at line %d: %s", w.Line, w.Msg)
}

// --- Error Reporting ---

// DisplayErrors prints errors to w in a user-friendly format, including the
// source line and a position marker when the position carries a source file.
func DisplayErrors(w io.Writer, errs []JmmError) {
	for _, err := range errs {
		pos := err.Pos()
		fmt.Fprintf(w, "%s: %s Error: %s\n", pos, err.Kind(), err.Message())
		if pos.Source == nil {
			continue
		}
		line := pos.Source.Line(pos.Line)
		if line == "" {
			continue
		}
		trimmed := strings.TrimRight(line, "\t ")
		fmt.Fprintf(w, "  %s\n", trimmed)
		if pos.Column > 0 {
			fmt.Fprintf(w, "  %s^\n", strings.Repeat(" ", pos.Column-1))
		}
	}
}

// DisplayWarnings prints warnings to w, one per line.
func DisplayWarnings(w io.Writer, warnings []*Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "%s: warning: %s\n", warn.Position, warn.Msg)
	}
}
