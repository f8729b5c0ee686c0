package resolver

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the class of a resolution error. Kinds are stable
// identifiers, safe to serialize for a driving process.
type Kind string

const (
	// KindResolution is a general failure during a resolution attempt.
	KindResolution Kind = "resolution"

	// KindDependencyNotResolved signals that a dependency has not produced
	// a value yet. Errors of this kind are retryable.
	KindDependencyNotResolved Kind = "dependency_not_resolved"

	// KindDependencyInvalid signals that a dependency resolved but its
	// value failed validation. Not retryable.
	KindDependencyInvalid Kind = "dependency_invalid"
)

// A ResolutionError is a failure produced during a resolution attempt.
type ResolutionError struct {
	// Kind classifies the failure.
	Kind Kind

	// Retryable reports whether a scheduler may re-attempt resolution
	// later. Only dependency-not-resolved failures are retryable.
	Retryable bool

	// Path is the full path of the resolver that recorded the error.
	Path string

	// Target is the full path of the dependency that caused the failure,
	// if the failure was caused by one.
	Target string

	// Reason describes the failure.
	Reason string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *ResolutionError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error { return e.Cause }

// NewResolutionError wraps err into a generic, non-retryable resolution
// error for the resolver at path.
func NewResolutionError(path string, err error) *ResolutionError {
	return &ResolutionError{
		Kind:   KindResolution,
		Path:   path,
		Reason: "resolution failed",
		Cause:  err,
	}
}

// NotResolvedError returns the retryable error signalling that the
// dependency at target has not resolved yet.
func NotResolvedError(path, target string) *ResolutionError {
	return &ResolutionError{
		Kind:      KindDependencyNotResolved,
		Retryable: true,
		Path:      path,
		Target:    target,
		Reason:    fmt.Sprintf("dependency %q is not resolved yet", target),
	}
}

// InvalidDependencyError returns the non-retryable error signalling that
// the dependency at target resolved but did not pass validation.
func InvalidDependencyError(path, target string) *ResolutionError {
	return &ResolutionError{
		Kind:   KindDependencyInvalid,
		Path:   path,
		Target: target,
		Reason: fmt.Sprintf("dependency %q is invalid", target),
	}
}

// AsResolutionError returns err as a *ResolutionError, unwrapping as
// needed. The second return value is false if err is not one.
func AsResolutionError(err error) (*ResolutionError, bool) {
	for err != nil {
		if re, ok := err.(*ResolutionError); ok {
			return re, true
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

// A SchemaError is a structural error, raised during the one-time
// structural pass when a definition references something that does not
// exist.
type SchemaError struct {
	// Path is the offending path.
	Path string

	// Reason describes the problem.
	Reason string

	// Suggestion optionally names an existing path that closely matches
	// the offending one.
	Suggestion string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Reason)
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s, did you mean %q?", msg, e.Suggestion)
	}
	return msg
}
