// Package apperr defines the typed error taxonomy surfaced over HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for logging and metrics
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindUpstreamAuth     Kind = "UPSTREAM_AUTH"
	KindUpstreamSearch   Kind = "UPSTREAM_SEARCH"
	KindUpstreamLLM      Kind = "UPSTREAM_LLM"
	KindUpstreamFetch    Kind = "UPSTREAM_FETCH"
	KindUnsupportedMedia Kind = "UNSUPPORTED_MEDIA_TYPE"
	KindPayloadTooLarge  Kind = "PAYLOAD_TOO_LARGE"
	KindInvalidURL       Kind = "INVALID_URL"
	KindMisconfigured    Kind = "MISCONFIGURED"
	KindNoModel          Kind = "NO_MODEL_AVAILABLE"
	KindInternal         Kind = "INTERNAL"
)

// Error is an application error carrying the HTTP status it maps to
type Error struct {
	Status  int
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error with an explicit status
func New(status int, kind Kind, message string) *Error {
	return &Error{Status: status, Kind: kind, Message: message}
}

// Wrap attaches an underlying cause
func Wrap(status int, kind Kind, message string, err error) *Error {
	return &Error{Status: status, Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, KindValidation, message)
}

func RateLimited(message string) *Error {
	return New(http.StatusTooManyRequests, KindRateLimited, message)
}

func UpstreamAuth(err error) *Error {
	return Wrap(http.StatusUnauthorized, KindUpstreamAuth, "upstream authentication failed", err)
}

func UpstreamSearch(err error) *Error {
	return Wrap(http.StatusBadGateway, KindUpstreamSearch, "search provider failure", err)
}

func UpstreamLLM(err error) *Error {
	return Wrap(http.StatusBadGateway, KindUpstreamLLM, "completion provider failure", err)
}

func UpstreamFetch(err error) *Error {
	return Wrap(http.StatusBadGateway, KindUpstreamFetch, "page fetch failure", err)
}

func UnsupportedMediaType(contentType string) *Error {
	return New(http.StatusUnsupportedMediaType, KindUnsupportedMedia, "unsupported content type: "+contentType)
}

func PayloadTooLarge(message string) *Error {
	return New(http.StatusRequestEntityTooLarge, KindPayloadTooLarge, message)
}

func InvalidURL(message string) *Error {
	return New(http.StatusBadRequest, KindInvalidURL, message)
}

func Misconfigured(message string) *Error {
	return New(http.StatusServiceUnavailable, KindMisconfigured, message)
}

func NoModelAvailable(message string) *Error {
	return New(http.StatusServiceUnavailable, KindNoModel, message)
}

func Internal(err error) *Error {
	return Wrap(http.StatusInternalServerError, KindInternal, "internal error", err)
}

// From maps any error to an *Error, wrapping unknown errors as Internal
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
