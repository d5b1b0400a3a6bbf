// Package errs implements the abstract error taxonomy: transient-upstream,
// rate-limited, upstream-malformed, not-found, configuration-error,
// invariant-violation, fatal. Components wrap errors at the source with the
// matching Kind so callers can branch with errors.As without string matching.
package errs

import "fmt"

// Kind is one of the seven abstract error kinds.
type Kind string

const (
	KindTransientUpstream  Kind = "transient_upstream"
	KindRateLimited        Kind = "rate_limited"
	KindUpstreamMalformed  Kind = "upstream_malformed"
	KindNotFound           Kind = "not_found"
	KindConfigurationError Kind = "configuration_error"
	KindInvariantViolation Kind = "invariant_violation"
	KindFatal              Kind = "fatal"
)

// Error is a taxonomy-tagged error. Component is the package that raised it
// (e.g. "providers/tsdb", "streammatch"), used for log correlation only.
type Error struct {
	K         Kind
	Component string
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind implements the typed-kind contract used by callers that branch on
// taxonomy rather than on concrete error values.
func (e *Error) Kind() Kind { return e.K }

// New constructs a taxonomy error without an underlying cause.
func New(k Kind, component, msg string) *Error {
	return &Error{K: k, Component: component, Msg: msg}
}

// Wrap constructs a taxonomy error around an underlying cause.
func Wrap(k Kind, component, msg string, err error) *Error {
	return &Error{K: k, Component: component, Msg: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) carries the given Kind.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if te, ok := err.(interface{ Kind() Kind }); ok && te.Kind() == k {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// NotFound is a convenience constructor — not-found errors return as
// null/empty to callers per the error-handling design, but some call sites
// need a sentinel to distinguish "nothing to enrich" from "ask upstream again".
func NotFound(component, msg string) *Error {
	return New(KindNotFound, component, msg)
}
