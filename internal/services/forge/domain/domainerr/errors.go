// Package domainerr defines the failure kinds raised by entities.
//
// Entities never perform I/O, so every failure they report is one of a
// small set of kinds: Validation (with field-level issues), Conflict (an
// illegal state transition), NotFound, Forbidden, NotAuthorized and
// FeatureDisabled. Use cases match kinds with errors.Is against the
// exported sentinels and translate them into coded results.
package domainerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindNotAuthorized   Kind = "not_authorized"
	KindFeatureDisabled Kind = "feature_disabled"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotAuthorized   = &Error{Kind: KindNotAuthorized}
	ErrFeatureDisabled = &Error{Kind: KindFeatureDisabled}
)

// Issue is one field-level validation problem.
type Issue struct {
	Path    string
	Message string
}

// Error is a domain failure of a given kind.
type Error struct {
	Kind    Kind
	Message string
	// Issues lists field problems for validation failures.
	Issues []Issue
	// Feature and ClassroomID identify a disabled classroom module.
	Feature     string
	ClassroomID string
	Cause       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a domain error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Validation builds a validation failure from issues. The message joins
// the issue messages when none is given.
func Validation(message string, issues ...Issue) *Error {
	if message == "" {
		parts := make([]string, 0, len(issues))
		for _, issue := range issues {
			parts = append(parts, issue.Message)
		}
		message = strings.Join(parts, "; ")
	}
	if message == "" {
		message = "validation failed"
	}
	return &Error{Kind: KindValidation, Message: message, Issues: issues}
}

// Invalid is shorthand for a single-issue validation failure.
func Invalid(path, message string) *Error {
	return Validation(message, Issue{Path: path, Message: message})
}

// Conflict reports a transition that is illegal from the current state.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports the current and required states of a rejected transition.
func InvalidTransition(entity, action, current string, required ...string) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("cannot %s %s in status %q (requires %s)", action, entity, current, strings.Join(required, " or ")),
	}
}

// NotFound reports a missing aggregate.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

// Forbidden reports an actor without the required role.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotAuthorized reports an actor who may not act on the target.
func NotAuthorized(message string) *Error {
	return &Error{Kind: KindNotAuthorized, Message: message}
}

// FeatureDisabled reports a classroom module that is switched off.
func FeatureDisabled(feature, classroomID string) *Error {
	return &Error{
		Kind:        KindFeatureDisabled,
		Message:     fmt.Sprintf("feature %q is disabled for classroom %q", feature, classroomID),
		Feature:     feature,
		ClassroomID: classroomID,
	}
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IssuesOf returns the validation issues carried by err, if any.
func IssuesOf(err error) []Issue {
	var e *Error
	if errors.As(err, &e) {
		return e.Issues
	}
	return nil
}
