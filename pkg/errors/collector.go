package errors

import (
	"fmt"

	"jmm/pkg/source"
)

// Collector accumulates diagnostics for one compiler invocation. Reporting
// never unwinds the caller: analysis continues after every report.
type Collector struct {
	current  *source.SourceFile
	errs     []JmmError
	warnings []*Warning

	// Suppress, when set, drops warnings whose message it matches.
	Suppress func(msg string) bool
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetSource sets the compilation unit that subsequent line-only reports
// belong to.
func (c *Collector) SetSource(sf *source.SourceFile) {
	c.current = sf
}

// Source returns the unit currently being reported against.
func (c *Collector) Source() *source.SourceFile {
	return c.current
}

// ReportSemanticError records a compilation-fatal error at line of the
// current unit.
func (c *Collector) ReportSemanticError(kind ErrorKind, line int, format string, args ...interface{}) {
	c.errs = append(c.errs, &SemanticError{
		Position: Position{Line: line, Source: c.current},
		Code:     kind,
		Msg:      fmt.Sprintf(format, args...),
	})
}

// ReportSyntaxError records a parse error at an exact position.
func (c *Collector) ReportSyntaxError(pos Position, format string, args ...interface{}) {
	if pos.Source == nil {
		pos.Source = c.current
	}
	c.errs = append(c.errs, &SyntaxError{Position: pos, Msg: fmt.Sprintf(format, args...)})
}

// Add records an already-constructed error.
func (c *Collector) Add(err JmmError) {
	c.errs = append(c.errs, err)
}

// Warnf records a warning at line of the current unit.
func (c *Collector) Warnf(line int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.Suppress != nil && c.Suppress(msg) {
		return
	}
	c.warnings = append(c.warnings, &Warning{
		Position: Position{Line: line, Source: c.current},
		Msg:      msg,
	})
}

// HasErrors reports whether any error has been recorded.
func (c *Collector) HasErrors() bool {
	return len(c.errs) > 0
}

// HasErrorsIn reports whether an error was recorded against sf.
func (c *Collector) HasErrorsIn(sf *source.SourceFile) bool {
	for _, err := range c.errs {
		if err.Pos().Source == sf {
			return true
		}
	}
	return false
}

// Errors returns the recorded errors in report order.
func (c *Collector) Errors() []JmmError {
	return c.errs
}

// Warnings returns the recorded warnings in report order.
func (c *Collector) Warnings() []*Warning {
	return c.warnings
}

// Kinds returns the semantic error kinds recorded so far, in order.
func (c *Collector) Kinds() []ErrorKind {
	var kinds []ErrorKind
	for _, err := range c.errs {
		if se, ok := err.(*SemanticError); ok {
			kinds = append(kinds, se.Code)
		}
	}
	return kinds
}

// PromoteWarnings turns every recorded warning into an error.
func (c *Collector) PromoteWarnings() {
	for _, w := range c.warnings {
		c.errs = append(c.errs, &SemanticError{Position: w.Position, Code: IllegalControlFlow, Msg: "warning treated as error: " + w.Msg})
	}
	c.warnings = nil
}
