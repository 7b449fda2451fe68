// Package errors implements purple-garden's two-tier diagnostic taxonomy:
// Diagnostic (fatal, compile-time) and Anomaly (runtime). Both render against
// the original source as a short window with a caret under the offending
// column, adapted from the teacher's internal/errors.SentraError.Error() (the
// "N | source\n    ^" window) and from the original implementation's
// err.rs::render (previous line + offending line + "~ here" caret).
package errors

import (
	"fmt"
	"strings"
)

// DiagnosticKind enumerates the compile-time diagnostic kinds named in
// spec.md §7.
type DiagnosticKind string

const (
	UndefinedBinding           DiagnosticKind = "Undefined Binding"
	UndefinedFunction          DiagnosticKind = "Undefined function"
	ArgCountMismatch           DiagnosticKind = "Function argument count mismatch"
	ArgTypeMismatch            DiagnosticKind = "Function argument type mismatch"
	ReturnTypeMismatch         DiagnosticKind = "Function return type mismatch"
	CastTypeError              DiagnosticKind = "Cast type error"
	TypeError                  DiagnosticKind = "Type error"
	EmptyBindingValue          DiagnosticKind = "Empty binding value"
	NumberParsingFailure       DiagnosticKind = "Number parsing failure"
	NonBoolMatchCondition      DiagnosticKind = "Non-bool match condition"
	IncompatibleMatchCaseType  DiagnosticKind = "Incompatible match case return type"
	SyntaxErrorKind            DiagnosticKind = "Syntax error"
)

// Location pinpoints a diagnostic in the original source.
type Location struct {
	Line, Column, Length int
}

// Diagnostic is a fatal compile-time error: the first one returned by any
// pass aborts the pipeline (spec.md §7 — "Nothing is retried; there is no
// partial compilation").
type Diagnostic struct {
	Kind   DiagnosticKind
	Detail string
	Loc    Location
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (%d:%d)", d.Kind, d.Detail, d.Loc.Line, d.Loc.Column)
}

// Render prints the three-line window (previous line, offending line, caret)
// spec.md §7 asks for, against the given full source split into lines.
// Loc.Line and Loc.Column are 1-based, as the lexer stamps them; a Line of 0
// (location unknown) renders no source window.
func (d *Diagnostic) Render(lines []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-> err: %s\n   %s\n\n", d.Kind, d.Detail)
	line := d.Loc.Line
	idx := line - 1
	if idx-1 >= 0 && idx-1 < len(lines) {
		fmt.Fprintf(&sb, "%03d | %s\n", line-1, lines[idx-1])
	}
	if idx >= 0 && idx < len(lines) {
		fmt.Fprintf(&sb, "%03d | %s\n", line, lines[idx])
		col := d.Loc.Column
		if col < 1 {
			col = 1
		}
		fmt.Fprintf(&sb, "%s~ here\n", strings.Repeat(" ", col-1+6))
	}
	return sb.String()
}

func NewDiagnostic(kind DiagnosticKind, detail string, line, col, length int) *Diagnostic {
	return &Diagnostic{Kind: kind, Detail: detail, Loc: Location{Line: line, Column: col, Length: length}}
}

// AnomalyKind enumerates the runtime anomaly kinds named in spec.md §7.
type AnomalyKind string

const (
	DivisionByZero   AnomalyKind = "DivisionByZero"
	UndefinedLocal   AnomalyKind = "UndefinedLocal"
	TypeIncompatible AnomalyKind = "TypeIncompatible"
	Unimplemented    AnomalyKind = "Unimplemented"
)

// Anomaly is a runtime fault. PC is the bytecode program counter at the
// point of failure (0 when not yet mapped back to a location — the original
// implementation leaves this as a TODO: "do some prep in anomaly for finding
// out which ast node resulted in what bytecode ranges").
type Anomaly struct {
	Kind AnomalyKind
	PC   int
	Msg  string
}

func (a *Anomaly) Error() string {
	if a.Msg != "" {
		return fmt.Sprintf("anomaly %s at pc=%d: %s", a.Kind, a.PC, a.Msg)
	}
	return fmt.Sprintf("anomaly %s at pc=%d", a.Kind, a.PC)
}

func NewAnomaly(kind AnomalyKind, pc int, msg string) *Anomaly {
	return &Anomaly{Kind: kind, PC: pc, Msg: msg}
}

// Frame is one entry of an optional VM backtrace: the callee function name
// at the PC the call was made from.
type Frame struct {
	Function string
	PC       int
}

// RenderBacktrace lists callee frames innermost-first, ending with the
// pseudo-function `entry`, per spec.md §7.
func RenderBacktrace(frames []Frame) string {
	var sb strings.Builder
	sb.WriteString("Call Stack:\n")
	for i := len(frames) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "  at %s (pc=%d)\n", frames[i].Function, frames[i].PC)
	}
	sb.WriteString("  at entry\n")
	return sb.String()
}
