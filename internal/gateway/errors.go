package gateway

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the gateway matches exactly one of
// these with errors.Is.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrServerRejected    = errors.New("server rejected request")
	ErrUnreachable       = errors.New("server unreachable")
	ErrMalformedResponse = errors.New("malformed response")
)

type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	detail := e.Message
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, detail)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidRequest(op string, err error) *Error {
	return &Error{Kind: ErrInvalidRequest, Op: op, Err: err}
}

func unauthenticated(op string) *Error {
	return &Error{Kind: ErrUnauthenticated, Op: op, Message: "Not authenticated"}
}

func serverRejected(op string, status int, msg string) *Error {
	return &Error{Kind: ErrServerRejected, Op: op, StatusCode: status, Message: msg}
}

func unreachable(op string, err error) *Error {
	return &Error{Kind: ErrUnreachable, Op: op, Err: err}
}

func malformed(op string, err error) *Error {
	return &Error{Kind: ErrMalformedResponse, Op: op, Err: err}
}

// Unauthenticated builds the error callers report when no session token is
// available for a privileged action.
func Unauthenticated(op string) error {
	return unauthenticated(op)
}

// Describe renders err the way the UI shows it to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var gerr *Error
	if !errors.As(err, &gerr) {
		return err.Error()
	}
	switch gerr.Kind {
	case ErrInvalidRequest:
		return "Invalid request"
	case ErrUnauthenticated:
		return "Not authenticated"
	case ErrServerRejected:
		if gerr.Message != "" {
			return gerr.Message
		}
		return "The server rejected the request"
	case ErrUnreachable:
		return "Network error: " + causeText(gerr)
	case ErrMalformedResponse:
		return "Failed to decode response: " + causeText(gerr)
	}
	return gerr.Error()
}

func causeText(e *Error) string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}
