// Package trap classifies every failure a call can end in.
//
// All kinds collapse into one host-visible abort string prefixed "Uncaught ".
// The kind exists for diagnostics and test assertions only.
package trap

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a trap.
type Kind string

const (
	// ShapeMismatch indicates a value did not have the declared type.
	ShapeMismatch Kind = "SHAPE_MISMATCH"

	// InterpreterException indicates the script raised an uncaught exception.
	InterpreterException Kind = "INTERPRETER_EXCEPTION"

	// InternalInconsistency indicates a generator or trampoline defect:
	// an encode-side failure or a result that can never settle.
	InternalInconsistency Kind = "INTERNAL_INCONSISTENCY"
)

// Prefix starts every host-visible trap message.
const Prefix = "Uncaught "

// Error is the single failure type crossing the trampoline boundary.
type Error struct {
	// Kind identifies the failure category.
	Kind Kind

	// Expected and Found describe a ShapeMismatch.
	Expected string
	Found    string

	// Path locates the offending value inside its root, e.g. "user.tags[2]".
	Path string

	// Param names the argument being extracted, e.g. `param 0 "a"`.
	Param string

	// Message is the exception text, or a fixed mismatch message that
	// replaces the expected/found rendering.
	Message string

	// Detail describes an InternalInconsistency.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Body())
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Body renders the message without the "Uncaught " prefix.
func (e *Error) Body() string {
	switch e.Kind {
	case ShapeMismatch:
		msg := e.Message
		if msg == "" {
			msg = fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)
		}
		var where []string
		if e.Param != "" {
			where = append(where, e.Param)
		}
		if e.Path != "" {
			where = append(where, "at "+e.Path)
		}
		if len(where) > 0 {
			return strings.Join(where, " ") + ": " + msg
		}
		return msg
	case InterpreterException:
		return e.Message
	default:
		return "internal inconsistency: " + e.Detail
	}
}

// TrapMessage is the string handed to the host abort primitive.
func (e *Error) TrapMessage() string {
	return Prefix + e.Body()
}

// At returns a copy of e with segment prepended to its path.
// Index segments ("[3]") attach without a dot.
func (e *Error) At(segment string) *Error {
	cp := *e
	switch {
	case cp.Path == "":
		cp.Path = segment
	case strings.HasPrefix(cp.Path, "["):
		cp.Path = segment + cp.Path
	default:
		cp.Path = segment + "." + cp.Path
	}
	return &cp
}

// AtIndex is At with an index segment.
func (e *Error) AtIndex(i int) *Error {
	return e.At(fmt.Sprintf("[%d]", i))
}

// ForParam returns a copy of e attributed to argument i.
func (e *Error) ForParam(i int, name string) *Error {
	cp := *e
	cp.Param = fmt.Sprintf("param %d %q", i, name)
	return &cp
}

// Mismatch creates a ShapeMismatch.
func Mismatch(expected, found string) *Error {
	return &Error{Kind: ShapeMismatch, Expected: expected, Found: found}
}

// MismatchMessage creates a ShapeMismatch with a fixed message.
func MismatchMessage(msg string) *Error {
	return &Error{Kind: ShapeMismatch, Message: msg}
}

// Exception creates an InterpreterException.
func Exception(msg string) *Error {
	return &Error{Kind: InterpreterException, Message: msg}
}

// Internal creates an InternalInconsistency.
func Internal(format string, args ...any) *Error {
	return &Error{Kind: InternalInconsistency, Detail: fmt.Sprintf(format, args...)}
}

// WrapInternal classifies an arbitrary error as an InternalInconsistency.
func WrapInternal(err error) *Error {
	return &Error{Kind: InternalInconsistency, Detail: err.Error(), Err: err}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Classify returns err's trap, or wraps it as an InternalInconsistency.
// Returns nil for a nil error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if te, ok := As(err); ok {
		return te
	}
	return WrapInternal(err)
}

// IsShapeMismatch reports whether err is a ShapeMismatch trap.
// Uses errors.As to handle wrapped errors.
func IsShapeMismatch(err error) bool {
	te, ok := As(err)
	return ok && te.Kind == ShapeMismatch
}

// IsException reports whether err is an InterpreterException trap.
func IsException(err error) bool {
	te, ok := As(err)
	return ok && te.Kind == InterpreterException
}

// IsInternal reports whether err is an InternalInconsistency trap.
func IsInternal(err error) bool {
	te, ok := As(err)
	return ok && te.Kind == InternalInconsistency
}
