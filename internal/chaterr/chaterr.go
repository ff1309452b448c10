// ABOUTME: Tagged error type that every service boundary normalizes into
// ABOUTME: Classifies config, transport, session and unsupported-environment failures

package chaterr

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Kind classifies a failure for retry and user-messaging decisions.
type Kind string

const (
	KindConfig      Kind = "config"
	KindTransport   Kind = "transport"
	KindSession     Kind = "session"
	KindUnsupported Kind = "unsupported"
)

// Error is the single error shape the widget core reasons about.
type Error struct {
	Kind    Kind
	Message string
	Status  int // transport status code, 0 when unknown
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Config reports a missing or invalid configuration value.
func Config(message string) *Error {
	return New(KindConfig, message)
}

// Unsupported reports a facility the environment does not provide.
func Unsupported(message string) *Error {
	return New(KindUnsupported, message)
}

// FromStatus builds a transport or session error from an HTTP status and body message.
func FromStatus(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP Error: %d %s", status, http.StatusText(status))
	}
	e := &Error{Kind: KindTransport, Message: message, Status: status}
	if looksLikeSession(e) {
		e.Kind = KindSession
	}
	return e
}

// Normalize converts any error into an *Error. Errors that already carry the
// tagged shape are returned as-is; everything else becomes a transport error.
// Failed HTTP round trips keep only the underlying cause in Message, never the
// request URL.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	msg := err.Error()
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		msg = ue.Err.Error()
	}
	if msg == "" {
		msg = "Unknown error occurred"
	}
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

// IsSession reports whether err means the backend no longer recognizes the
// session: the kind is session, or the backend answered with a 404 or a
// message mentioning "session" or "expired". Local failures without a status
// are never session errors.
func IsSession(err error) bool {
	e := Normalize(err)
	if e == nil {
		return false
	}
	return e.Kind == KindSession || looksLikeSession(e)
}

// IsKind reports whether err normalizes to the given kind.
func IsKind(err error, kind Kind) bool {
	e := Normalize(err)
	return e != nil && e.Kind == kind
}

func looksLikeSession(e *Error) bool {
	if e.Status == 0 {
		return false
	}
	if e.Status == http.StatusNotFound {
		return true
	}
	lower := strings.ToLower(e.Message)
	return strings.Contains(lower, "session") || strings.Contains(lower, "expired")
}
