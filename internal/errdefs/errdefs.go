// Package errdefs defines the classified errors shared by the deploy and
// service paths. Every failure that crosses a package boundary is wrapped in
// an *Error carrying one of the fixed classes below; the raw diagnostic text
// from the underlying cause is always preserved in the chain.
package errdefs

import (
	"errors"
	"fmt"
)

// Class identifies the failure category used for operator messaging and exit
// code decisions.
type Class string

const (
	// ClassMissingConfiguration means a required configuration key was absent.
	ClassMissingConfiguration Class = "MissingConfiguration"

	// ClassNameAlreadyTaken means a globally-unique name (an S3 bucket) is
	// held by another account.
	ClassNameAlreadyTaken Class = "NameAlreadyTaken"

	// ClassAccessDenied means the credentials lack permission for the call.
	ClassAccessDenied Class = "AccessDenied"

	// ClassInvalidRegion means the region or location constraint was rejected.
	ClassInvalidRegion Class = "InvalidRegionOrConstraint"

	// ClassTemplateValidation means the stack template or its parameters
	// failed validation before or during a change set.
	ClassTemplateValidation Class = "TemplateValidationFailure"

	// ClassRolledBack means a stack operation completed by rolling back.
	ClassRolledBack Class = "RolledBack"

	// ClassMissingOutput means a stack finished without an expected output.
	ClassMissingOutput Class = "MissingOutput"

	// ClassUnclassified is the fallback for failures no rule matched.
	ClassUnclassified Class = "Unclassified"
)

// ErrAborted is returned when the operator declines a confirmation prompt.
// It is not a failure; callers map it to a clean exit.
var ErrAborted = errors.New("aborted by user")

// Error is a classified error with operation context and an optional
// remediation hint.
type Error struct {
	Class Class
	Op    string // the operation that failed, e.g. "create bucket"
	Hint  string // remediation guidance shown to the operator
	Err   error  // underlying cause; its text is the raw diagnostic
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += fmt.Sprintf(" (hint: %s)", e.Hint)
	}
	return msg
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two classified errors by class, so errors.Is can be used with
// bare class markers like New(ClassAccessDenied, "", nil).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// New creates a classified error wrapping err.
func New(class Class, op string, err error) *Error {
	return &Error{Class: class, Op: op, Err: err}
}

// Newf creates a classified error from a formatted message with no
// underlying cause.
func Newf(class Class, op, format string, args ...any) *Error {
	return &Error{Class: class, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithHint attaches a remediation hint and returns the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// ClassOf returns the class of err, ClassUnclassified when err carries no
// classification, and the empty class for nil.
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassUnclassified
}

// IsClass reports whether err is classified as class.
func IsClass(err error, class Class) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// IsMissingConfiguration reports whether err is a MissingConfiguration error.
func IsMissingConfiguration(err error) bool { return IsClass(err, ClassMissingConfiguration) }

// IsNameAlreadyTaken reports whether err is a NameAlreadyTaken error.
func IsNameAlreadyTaken(err error) bool { return IsClass(err, ClassNameAlreadyTaken) }

// IsAccessDenied reports whether err is an AccessDenied error.
func IsAccessDenied(err error) bool { return IsClass(err, ClassAccessDenied) }

// IsInvalidRegion reports whether err is an InvalidRegionOrConstraint error.
func IsInvalidRegion(err error) bool { return IsClass(err, ClassInvalidRegion) }

// IsTemplateValidation reports whether err is a TemplateValidationFailure error.
func IsTemplateValidation(err error) bool { return IsClass(err, ClassTemplateValidation) }

// IsRolledBack reports whether err is a RolledBack error.
func IsRolledBack(err error) bool { return IsClass(err, ClassRolledBack) }

// IsMissingOutput reports whether err is a MissingOutput error.
func IsMissingOutput(err error) bool { return IsClass(err, ClassMissingOutput) }
