// Package errors defines the failure kinds a recipe lifecycle can surface.
//
// Every phase fails fast with one of four kinds. Callers match a kind with
// the standard library:
//
//	if errors.Is(err, pkgerrors.ErrValidation) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a lifecycle failure.
type Kind string

const (
	KindConfiguration Kind = "ConfigurationError"
	KindLayout        Kind = "LayoutError"
	KindValidation    Kind = "ValidationError"
	KindBuild         Kind = "BuildError"
)

// Sentinels for errors.Is.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrLayout        = &Error{Kind: KindLayout}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrBuild         = &Error{Kind: KindBuild}
)

// Error is a classified lifecycle failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "options.set" or "bazel.build"
	Msg  string

	// Output holds the diagnostic output of an external tool, verbatim.
	Output string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(e.Output)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with
// an empty Op matches any operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. It returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
