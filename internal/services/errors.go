package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the API layer can pick a status code
type ErrorKind string

const (
	KindInvalidRequest      ErrorKind = "InvalidRequest"
	KindNotFound            ErrorKind = "NotFound"
	KindSellerNotPayable    ErrorKind = "SellerNotPayable"
	KindInvalidSignature    ErrorKind = "InvalidSignature"
	KindConfiguration       ErrorKind = "ConfigurationError"
	KindUpstream            ErrorKind = "UpstreamError"
	KindPersistence         ErrorKind = "PersistenceError"
	KindPaymentNotCompleted ErrorKind = "PaymentNotCompleted"
)

// Error is the error type returned by every service in this package
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can write errors.Is(err, ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks
var (
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrSellerNotPayable    = &Error{Kind: KindSellerNotPayable}
	ErrInvalidSignature    = &Error{Kind: KindInvalidSignature}
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrUpstream            = &Error{Kind: KindUpstream}
	ErrPersistence         = &Error{Kind: KindPersistence}
	ErrPaymentNotCompleted = &Error{Kind: KindPaymentNotCompleted}
)

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func invalidRequest(format string, args ...interface{}) *Error {
	return newError(KindInvalidRequest, fmt.Sprintf(format, args...), nil)
}

func notFound(what string) *Error {
	return newError(KindNotFound, what+" not found", nil)
}

func upstream(message string, err error) *Error {
	return newError(KindUpstream, message, err)
}

func persistence(message string, err error) *Error {
	return newError(KindPersistence, message, err)
}

// KindOf returns the kind of err, or "" for errors not raised by this package
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
