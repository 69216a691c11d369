package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindBadRequest          Kind = "BadRequest"
	KindUnauthorized        Kind = "Unauthorized"
	KindNotFound            Kind = "NotFound"
	KindServiceUnavailable  Kind = "ServiceUnavailable"
	KindUploadFailed        Kind = "UploadFailed"
	KindPersistFailed       Kind = "PersistFailed"
	KindURLGenerationFailed Kind = "UrlGenerationFailed"
	KindInternal            Kind = "Internal"
)

var kindStatus = map[Kind]int{
	KindBadRequest:          http.StatusBadRequest,
	KindUnauthorized:        http.StatusUnauthorized,
	KindNotFound:            http.StatusNotFound,
	KindServiceUnavailable:  http.StatusServiceUnavailable,
	KindUploadFailed:        http.StatusInternalServerError,
	KindPersistFailed:       http.StatusInternalServerError,
	KindURLGenerationFailed: http.StatusInternalServerError,
	KindInternal:            http.StatusInternalServerError,
}

// Error is a classified failure rendered as {error, details?, code}.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status for the error's kind.
func (e *Error) Status() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails returns a copy carrying extra client-visible details.
func (e *Error) WithDetails(details interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func BadRequest(message string) *Error { return New(KindBadRequest, message, nil) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message, nil) }

func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

func Unavailable(message string) *Error { return New(KindServiceUnavailable, message, nil) }

func UploadFailed(message string, err error) *Error { return New(KindUploadFailed, message, err) }

func PersistFailed(message string, err error) *Error { return New(KindPersistFailed, message, err) }

func URLGenerationFailed(message string, err error) *Error {
	return New(KindURLGenerationFailed, message, err)
}

// As extracts an *Error from err's chain, wrapping unknown errors as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(KindInternal, "Internal server error", err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
