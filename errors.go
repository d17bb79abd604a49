package fetchttp

import (
	stdErrors "errors"
	"fmt"
)

// Kind classifies a fetch failure. The three kinds are disjoint.
type Kind string

const (
	KindType    Kind = "TypeError"
	KindNetwork Kind = "NetworkError"
	KindAbort   Kind = "AbortError"
)

// Error is the failure value returned by every operation in this package.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrBodyUsed is returned by every consuming body operation after the first.
var ErrBodyUsed = &Error{Kind: KindType, Message: "body already used"}

func typeError(format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: KindType, Message: msg}
}

func typeErrorWrap(err error, msg string) error {
	return &Error{Kind: KindType, Message: msg, Err: err}
}

// networkError wraps a transport failure. Whatever the transport returned,
// including an *Error of another kind, stays in the chain under Err.
func networkError(err error, msg string) error {
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}

func abortError(reason string, ok bool) error {
	msg := "the operation was aborted"
	if ok && reason != "" {
		msg += " (" + reason + ")"
	}
	return &Error{Kind: KindAbort, Message: msg}
}

// KindOf reports the kind carried by err, or "" when err is not a fetch
// error.
func KindOf(err error) Kind {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsTypeError(err error) bool    { return err != nil && KindOf(err) == KindType }
func IsNetworkError(err error) bool { return err != nil && KindOf(err) == KindNetwork }
func IsAbortError(err error) bool   { return err != nil && KindOf(err) == KindAbort }
