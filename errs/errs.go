// Package errs provides structured error types and helpers for the terminal SDK.
package errs

import (
	"strconv"
	"strings"
)

// Code identifies an SDK error category.
type Code string

const (
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeTimeout indicates a wait that elapsed before being fulfilled.
	CodeTimeout Code = "timeout"
	// CodeNotFound indicates a missing resource.
	CodeNotFound Code = "not_found"
	// CodeNetwork indicates a network transport failure.
	CodeNetwork Code = "network"
	// CodeUnavailable indicates the gateway is temporarily unavailable.
	CodeUnavailable Code = "unavailable"
	// CodeConflict indicates a concurrent mutation conflict.
	CodeConflict Code = "conflict"
)

// E captures structured error information produced across the SDK.
type E struct {
	Component string
	Code      Code
	HTTP      int
	Message   string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the component and error code.
func New(component string, code Code, opts ...Option) *E {
	e := &E{
		Component: strings.TrimSpace(component),
		Code:      code,
		HTTP:      0,
		Message:   "",
		cause:     nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	component := strings.TrimSpace(e.Component)
	if component == "" {
		component = "unknown"
	}
	parts = append(parts, "component="+component)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// Is reports whether target carries the same component and code.
func (e *E) Is(target error) bool {
	other, ok := target.(*E)
	if !ok || e == nil || other == nil {
		return false
	}
	if other.Component != "" && other.Component != e.Component {
		return false
	}
	return other.Code == e.Code
}

// IsCode reports whether err is an *E carrying the provided code.
func IsCode(err error, code Code) bool {
	for err != nil {
		e, ok := err.(*E)
		if ok {
			return e.Code == code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
