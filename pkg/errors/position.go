package errors

import (
	"fmt"

	"jmm/pkg/source"
)

// Position represents a specific location in the source code.
// Line and Column are 1-based; a zero Column means "whole line" (the semantic
// passes only track lines, as the AST does).
type Position struct {
	Line   int                // 1-based line number
	Column int                // 1-based column number (rune index within the line)
	Source *source.SourceFile // Reference to the source file
}

// String formats the position as file:line[:col].
func (p Position) String() string {
	name := "<unknown>"
	if p.Source != nil {
		name = p.Source.DisplayPath()
	}
	if p.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d", name, p.Line)
}
