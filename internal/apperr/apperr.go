// Package apperr defines the typed error kinds the core pipeline produces.
//
// The source this module is modeled on leans on thrown exceptions for flow
// control; here every failure a service can produce is an explicit error
// value the caller switches on, the way the rest of this codebase treats
// errors as values rather than control flow.
package apperr

import "errors"

// Kind classifies a core-domain error so callers (the WS router, the HTTP
// controller) can map it to the right response without string matching.
type Kind int

const (
	// KindInternal is the catch-all for anything unexpected.
	KindInternal Kind = iota
	// KindInvalidContext means a request lacked enough context (Teams info
	// or a meeting room) to identify a meeting.
	KindInvalidContext
	// KindNotFound means the referenced meeting does not exist.
	KindNotFound
	// KindAlreadyEnded means the meeting's end_ts has passed.
	KindAlreadyEnded
	// KindNotStarted means the meeting's start_ts is still in the future.
	KindNotStarted
	// KindOutOfBounds means a status write targeted a bucket outside the
	// meeting's [start_ts, end_ts] window.
	KindOutOfBounds
	// KindProtocol means an inbound WS frame was malformed JSON or didn't
	// match any known message shape.
	KindProtocol
	// KindState means a stateful WS request broke a precondition (joining
	// twice, sending status before joining).
	KindState
)

// Error is the typed error value every core operation returns on failure.
type Error struct {
	Kind Kind
	Msg  string
	err  error // wrapped cause, optional
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Msg + ": " + e.err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, err: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// InvalidContext is a convenience constructor for the most common invalid-context message.
func InvalidContext(msg string) *Error { return New(KindInvalidContext, msg) }

// NotFound is a convenience constructor.
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// Internal wraps an unexpected error as KindInternal.
func Internal(cause error) *Error { return Wrap(KindInternal, "internal error", cause) }
