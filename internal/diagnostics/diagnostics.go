// Package diagnostics formats the compile-time and run-time errors raised
// across the AntEater pipeline (spec §7, §6.3).
//
// Lex/parse/codegen errors are raised by panicking with an *AntError and
// recovered at the boundary that owns the corresponding pipeline stage,
// mirroring how the teacher's own cmd/sentra/main.go recovers a panic
// around parsing and how the original AntEater C++ sources used C++
// exceptions for the same purpose.
package diagnostics

import (
	"fmt"
	"strings"
)

// Kind is the closed set of error kinds from spec §7.
type Kind string

const (
	BadStringId       Kind = "BadStringId"
	UnterminatedComment Kind = "UnterminatedComment"
	UnterminatedString Kind = "UnterminatedString"
	BadNumber         Kind = "BadNumber"
	BadToken          Kind = "BadToken"
	ExpectedToken     Kind = "ExpectedToken"
	NotAnLvalue       Kind = "NotAnLvalue"
	Redeclared        Kind = "Redeclared"
	Undeclared        Kind = "Undeclared"
	UndefinedFunction Kind = "UndefinedFunction"
	BadArity          Kind = "BadArity"
	BadTypes          Kind = "BadTypes"
	TypeMismatch      Kind = "TypeMismatch"
	DivideByZero      Kind = "DivideByZero"
	IndexOutOfRange   Kind = "IndexOutOfRange"
	NotIndexable      Kind = "NotIndexable"
	BadIndexType      Kind = "BadIndexType"
	UnknownOpcode     Kind = "UnknownOpcode"
	StackUnderflow    Kind = "StackUnderflow"
	ArithOverflow     Kind = "ArithOverflow"
	InvalidReturn     Kind = "InvalidReturn"
	Unsupported       Kind = "Unsupported"
)

// AntError is the uniform error type raised by every pipeline stage.
type AntError struct {
	Kind    Kind
	Message string
	Line    int
	Column  int

	// Source, when non-empty, is the single offending source line; it is
	// filled in by WithSource once the formatter holding the line-indexed
	// source snapshot is in scope (the parser attaches it before the error
	// escapes its package; code-generator and runtime errors carry none).
	Source string
}

// New creates an AntError not yet located against a source line.
func New(kind Kind, line, column int, format string, args ...interface{}) *AntError {
	return &AntError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  column,
	}
}

// WithSource attaches the offending source line, enabling the caret-pointer
// rendering in Error().
func (e *AntError) WithSource(line string) *AntError {
	e.Source = line
	return e
}

// Error renders the exact uniform diagnostic format of spec §6.3:
//
//	ERROR: <message>
//	    line <L>, column <C>
//	    ... <source-line>
//	        <C spaces>^
func (e *AntError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ERROR: %s\n", e.Message)
	fmt.Fprintf(&b, "    line %d, column %d\n", e.Line, e.Column)
	if e.Source != "" {
		fmt.Fprintf(&b, "    ... %s\n", e.Source)
		fmt.Fprintf(&b, "        %s^\n", strings.Repeat(" ", e.Column))
	}
	return b.String()
}
