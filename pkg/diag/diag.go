// Package diag carries structured diagnostics produced while parsing a
// stream: positioned errors that the engine recovers from locally, plus the
// sentinel errors that are fatal for a single Feed/Finalize call.
package diag

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced directly to callers. Scanner- and coercion-level
// failures never reach these; they are recorded as Diagnostics on the
// partial view instead.
var (
	// ErrDepthExceeded means nesting depth exceeded the configured max_depth.
	ErrDepthExceeded = errors.New("tagstream: max nesting depth exceeded")

	// ErrIncompleteInput means Finalize was called with a non-empty frame stack.
	ErrIncompleteInput = errors.New("tagstream: finalize called with unclosed elements")

	// ErrUnknownVariant means no union variant could be resolved at all (strict mode).
	ErrUnknownVariant = errors.New("tagstream: no union variant resolved")

	// ErrUnexpectedTag means a start tag could not be mapped to any field,
	// item, or variant while running in strict mode.
	ErrUnexpectedTag = errors.New("tagstream: unexpected tag in strict mode")
)

// Kind classifies a recoverable Diagnostic.
type Kind string

const (
	KindScanner     Kind = "scanner"
	KindUnexpected  Kind = "unexpected-tag"
	KindCoercion    Kind = "coercion"
	KindArity       Kind = "arity"
	KindAmbiguous   Kind = "ambiguous-variant"
	KindDepthExceed Kind = "depth-exceeded"
)

// Span is a byte range into the logical (chunk-concatenated) input stream.
type Span struct {
	Start int64
	End   int64
}

func (s Span) String() string {
	return fmt.Sprintf("[%d:%d)", s.Start, s.End)
}

// Diagnostic is a structured, recoverable error record: position, the frame
// context it occurred in, and a short recovery hint. Diagnostics never abort
// a Feed call; they accumulate on the Parser and are exposed through the
// Partial-View API.
type Diagnostic struct {
	Kind    Kind
	Span    Span
	Frame   string // dotted frame-context path, e.g. "Outer.middles[2].inner"
	Message string
	Hint    string
	Cause   error
}

func (d *Diagnostic) Error() string {
	msg := fmt.Sprintf("%s at %s", d.Kind, d.Span)
	if d.Frame != "" {
		msg += fmt.Sprintf(" (in %s)", d.Frame)
	}
	msg += ": " + d.Message
	if d.Hint != "" {
		msg += " — " + d.Hint
	}
	return msg
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

// ScannerError reports malformed markup the scanner recovered from locally.
func ScannerError(span Span, message string) *Diagnostic {
	return &Diagnostic{Kind: KindScanner, Span: span, Message: message, Hint: "advanced one byte and resumed in Text state"}
}

// UnexpectedTag reports a start tag that mapped to no field, item, or variant.
func UnexpectedTag(span Span, frame, tagName string) *Diagnostic {
	return &Diagnostic{
		Kind:    KindUnexpected,
		Span:    span,
		Frame:   frame,
		Message: fmt.Sprintf("tag %q did not match any field, container item, or variant", tagName),
		Hint:    "subtree ignored; use strict mode to make this fatal",
	}
}

// CoercionError reports scalar text that failed to convert to its target kind.
func CoercionError(span Span, frame, target, text string, cause error) *Diagnostic {
	return &Diagnostic{
		Kind:    KindCoercion,
		Span:    span,
		Frame:   frame,
		Message: fmt.Sprintf("could not coerce %q to %s", text, target),
		Hint:    "field left at its default",
		Cause:   cause,
	}
}

// ArityError reports a tuple/mapping item arity violation.
func ArityError(span Span, frame, message string) *Diagnostic {
	return &Diagnostic{Kind: KindArity, Span: span, Frame: frame, Message: message}
}

// AmbiguousVariant reports a union whose structural discriminator was still
// ambiguous at seal time; the engine silently picked the first compatible
// variant, and records that choice here.
func AmbiguousVariant(span Span, frame, chosen string) *Diagnostic {
	return &Diagnostic{
		Kind:    KindAmbiguous,
		Span:    span,
		Frame:   frame,
		Message: fmt.Sprintf("union resolved ambiguously; picked first compatible variant %q", chosen),
		Hint:    "set parser.Options.Selector to override the tie-break",
	}
}
