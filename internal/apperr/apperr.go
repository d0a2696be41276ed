// Package apperr classifies failures surfaced to callers of the
// progression engine.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the category of a user-displayable failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindInsufficientResource
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindInsufficientResource:
		return "insufficient_resource"
	case KindValidation:
		return "validation_failure"
	}
	return "unknown"
}

// HTTPStatus maps the kind onto a status class for the transport layer.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindInsufficientResource:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Error is a typed failure with a message safe to show to users.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a typed error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) *Error             { return New(KindNotFound, message) }
func InvalidState(message string) *Error         { return New(KindInvalidState, message) }
func InsufficientResource(message string) *Error { return New(KindInsufficientResource, message) }
func Validation(message string) *Error           { return New(KindValidation, message) }

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf is a shortcut for KindOf(err).HTTPStatus().
func StatusOf(err error) int {
	return KindOf(err).HTTPStatus()
}
