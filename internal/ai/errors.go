package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the top-level failure class shared by every pipeline component.
type Kind string

const (
	KindInput               Kind = "input"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindProvider            Kind = "provider"
	KindParse               Kind = "parse"
)

// Reason narrows a Kind down.
type Reason string

const (
	ReasonEmpty             Reason = "empty"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonTooLarge          Reason = "too_large"
	ReasonAuthInvalid       Reason = "auth_invalid"
	ReasonTimeout           Reason = "timeout"
	ReasonQuota             Reason = "quota"
)

// Error carries enough context for a caller to decide between retrying,
// surfacing the failure or marking the result as degraded.
type Error struct {
	Kind      Kind
	Reason    Reason
	Component string
	Provider  string
	// Status is the upstream status code, zero when there was none.
	Status int
	Err    error
}

var (
	ErrInput                  = &Error{Kind: KindInput}
	ErrInputEmpty             = &Error{Kind: KindInput, Reason: ReasonEmpty}
	ErrInputUnsupportedFormat = &Error{Kind: KindInput, Reason: ReasonUnsupportedFormat}
	ErrInputTooLarge          = &Error{Kind: KindInput, Reason: ReasonTooLarge}
	ErrProviderUnavailable    = &Error{Kind: KindProviderUnavailable}
	ErrProvider               = &Error{Kind: KindProvider}
	ErrProviderAuthInvalid    = &Error{Kind: KindProvider, Reason: ReasonAuthInvalid}
	ErrParse                  = &Error{Kind: KindParse}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Reason))
		b.WriteString(")")
	}
	if e.Provider != "" {
		b.WriteString(" from ")
		b.WriteString(e.Provider)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status %d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and, when the target sets one, on Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func InputError(component string, reason Reason, err error) *Error {
	return &Error{Kind: KindInput, Reason: reason, Component: component, Err: err}
}

func Unavailable(component, provider string) *Error {
	return &Error{
		Kind:      KindProviderUnavailable,
		Component: component,
		Provider:  provider,
		Err:       errors.New("provider is not configured"),
	}
}

// ProviderError classifies a failed remote call. Deadline errors become timeouts.
func ProviderError(provider string, status int, reason Reason, err error) *Error {
	if reason == "" && errors.Is(err, context.DeadlineExceeded) {
		reason = ReasonTimeout
	}
	return &Error{Kind: KindProvider, Reason: reason, Provider: provider, Status: status, Err: err}
}

func ParseError(component, provider string, err error) *Error {
	return &Error{Kind: KindParse, Component: component, Provider: provider, Err: err}
}

// WithComponent stamps the originating component onto a taxonomy error,
// leaving the original untouched. Errors outside the taxonomy become provider errors.
func WithComponent(component string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: KindProvider, Component: component, Err: err, Reason: reasonFor(err)}
	}
	wrapped := *e
	wrapped.Component = component
	if err != error(e) {
		wrapped.Err = err
	}
	return &wrapped
}

// KindOf returns the taxonomy kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether repeating the same call can succeed.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindProvider && e.Reason != ReasonAuthInvalid
}

func reasonFor(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ""
}
